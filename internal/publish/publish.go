package publish

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/platforms"
)

const (
	// DefaultMinDelay and DefaultMaxDelay bound the simulated upload time.
	DefaultMinDelay = 1500 * time.Millisecond
	DefaultMaxDelay = 3500 * time.Millisecond
)

// ErrPublisherUnavailable indicates no publisher is configured.
var ErrPublisherUnavailable = errors.New("publisher unavailable")

// Publisher uploads generated metadata to a platform.
type Publisher interface {
	Publish(ctx context.Context, platform platforms.ID, metadata platforms.Metadata) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, platform platforms.ID, metadata platforms.Metadata) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, platform platforms.ID, metadata platforms.Metadata) error {
	return f(ctx, platform, metadata)
}

// Simulated stands in for real platform uploads. Each call waits a uniformly
// random delay in [MinDelay, MaxDelay] and always succeeds unless ctx ends.
type Simulated struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// Float returns a value in [0, 1). Defaults to math/rand/v2.
	Float func() float64
}

// NewSimulated returns a Simulated publisher. Non-positive bounds fall back to
// the defaults and an inverted range is collapsed onto min.
func NewSimulated(minDelay, maxDelay time.Duration) *Simulated {
	if minDelay <= 0 {
		minDelay = DefaultMinDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Simulated{MinDelay: minDelay, MaxDelay: maxDelay, Float: rand.Float64}
}

// Publish implements Publisher.
func (s *Simulated) Publish(ctx context.Context, platform platforms.ID, _ platforms.Metadata) error {
	if s == nil {
		return ErrPublisherUnavailable
	}

	delay := s.delay()
	logging.FromContext(ctx).Debug("simulating upload", "platform", platform, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulated) delay() time.Duration {
	span := s.MaxDelay - s.MinDelay
	if span <= 0 {
		return s.MinDelay
	}
	f := rand.Float64
	if s.Float != nil {
		f = s.Float
	}
	return s.MinDelay + time.Duration(f()*float64(span))
}
