package driven

import "github.com/custodia-labs/postdigest/internal/core/domain"

// DigestWriter serialises a digest into an index document and a content document.
type DigestWriter interface {
	// Write renders both documents into dir and returns their paths.
	Write(dir string, digest domain.Digest) (indexPath, contentPath string, err error)
}
