package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Limiter throttles backend operations to a fixed number per second.
// A zero or negative limit means unlimited and Wait returns immediately.
type Limiter struct {
	ch    chan struct{}
	l     ratelimit.Limiter
	limit int
}

func NewLimiter(ctx context.Context, limit int) *Limiter {
	if limit <= 0 {
		return &Limiter{}
	}

	brst := int(float64(limit) * 0.1)
	if brst < 1 {
		brst = 1
	}
	limiter := &Limiter{
		limit: limit,
		ch:    make(chan struct{}, brst),
		l:     ratelimit.New(limit),
	}
	go limiter.provider(ctx)
	return limiter
}

func (l *Limiter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		l.l.Take()
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

// Wait blocks until a permit is available or ctx is done.
// Once the limiter's own context is done, Wait no longer throttles.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
		return nil
	}
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Unlimited() bool { return l.ch == nil }
