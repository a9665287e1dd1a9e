// Package pacer spaces out calls to the generation endpoint.
package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/postdigest/internal/core/ports/driven"
)

// Ensure Pacer implements the interface.
var _ driven.Pacer = (*Pacer)(nil)

// Pacer applies a fixed pause on every Wait. Time spent between calls does
// not count towards the pause, so consecutive calls are always at least one
// interval apart.
type Pacer struct {
	limit    rate.Limit
	interval time.Duration
}

// New creates a pacer. A zero or negative interval never waits.
func New(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limit:    limit,
		interval: interval,
	}
}

// Wait blocks for one full interval or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.limit == rate.Inf {
		return nil
	}

	// Drained bucket: the next token is exactly one interval away.
	limiter := rate.NewLimiter(p.limit, 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

// Interval returns the configured interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
