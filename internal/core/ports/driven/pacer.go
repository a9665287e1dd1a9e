package driven

import "context"

// Pacer bounds the rate of calls to an external service.
type Pacer interface {
	// Wait blocks until the next call is allowed or ctx is done.
	Wait(ctx context.Context) error
}
