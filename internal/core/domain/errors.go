package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Source Errors.

	// ErrSourceDirMissing indicates the source directory does not exist.
	ErrSourceDirMissing = errors.New("source directory missing")

	// ErrNoSourceFiles indicates the source directory holds no delimited files.
	ErrNoSourceFiles = errors.New("no source files found")

	// ErrNoDelimiter indicates none of the candidate delimiters occurs in the file prefix.
	ErrNoDelimiter = errors.New("delimiter not detected")

	// ErrDecode indicates the file is not valid in the source code page.
	ErrDecode = errors.New("decode failed")

	// Record Errors.

	// ErrMalformedRecord indicates a line is not a JSON object.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoRecords indicates a stage found nothing to write.
	ErrNoRecords = errors.New("no records")

	// Artifact Errors.

	// ErrArtifactMissing indicates an expected stage artifact does not exist.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactEmpty indicates a stage artifact exists but is zero-length.
	ErrArtifactEmpty = errors.New("artifact empty")

	// Upstream Errors.
	// All of these are retriable: the title generator rotates the roster on them.

	// ErrAPIKeyMissing indicates no bearer token is configured.
	ErrAPIKeyMissing = errors.New("API key missing")

	// ErrModelUnavailable indicates the endpoint reported the model as not found.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrUpstreamStatus indicates the endpoint answered with a non-success status.
	ErrUpstreamStatus = errors.New("upstream status")

	// ErrUpstreamTimeout indicates the request did not complete within the timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrEmptyCompletion indicates a success response without choices.
	ErrEmptyCompletion = errors.New("empty completion")
)
