// Package domain defines the core business entities for postdigest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: One row of a source export, as an ordered field mapping
//   - Roster: The ring of model identifiers used for title generation
//   - Digest: Enriched records grouped for rendering
//   - PipelineSettings: Paths, endpoint and pacing configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
