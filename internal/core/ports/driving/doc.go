// Package driving defines what the command line can ask of the core: the
// three pipeline stages, the full pipeline run and settings management.
// Implementations live in internal/core/services.
package driving
