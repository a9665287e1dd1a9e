package domain

// ConvertStats summarises a convert run.
type ConvertStats struct {
	// FilesFound is the number of delimited files in the source directory.
	FilesFound int

	// FilesProcessed is the number of files that yielded at least one record.
	FilesProcessed int

	// Records is the number of records written.
	Records int
}

// EnrichStats summarises an enrich run.
type EnrichStats struct {
	// Lines is the number of input lines seen, blank lines included.
	Lines int

	// Titled records received a generated title.
	Titled int

	// Failed records received the generation-failed placeholder.
	Failed int

	// PassedThrough records had no content field and were copied unchanged.
	PassedThrough int

	// Skipped records were already present in the output when resuming.
	Skipped int

	// Errors counts malformed input lines.
	Errors int
}

// Succeeded returns the number of records written.
func (s EnrichStats) Succeeded() int {
	return s.Titled + s.Failed + s.PassedThrough
}

// RenderStats summarises a render run.
type RenderStats struct {
	// Records is the number of records rendered.
	Records int

	// Sources is the number of source groups.
	Sources int

	// Errors counts malformed input lines.
	Errors int

	// IndexPath and ContentPath are the written documents.
	IndexPath   string
	ContentPath string
}
