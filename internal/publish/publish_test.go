package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unipublish/backend/internal/platforms"
)

func TestNewSimulatedDefaults(t *testing.T) {
	s := NewSimulated(0, 0)
	if s.MinDelay != DefaultMinDelay || s.MaxDelay != DefaultMaxDelay {
		t.Fatalf("unexpected defaults: %v-%v", s.MinDelay, s.MaxDelay)
	}

	s = NewSimulated(2*time.Second, time.Second)
	if s.MaxDelay != s.MinDelay {
		t.Fatalf("expected inverted range to collapse got %v-%v", s.MinDelay, s.MaxDelay)
	}
}

func TestSimulatedDelayRange(t *testing.T) {
	s := NewSimulated(1500*time.Millisecond, 3500*time.Millisecond)

	s.Float = func() float64 { return 0 }
	if got := s.delay(); got != 1500*time.Millisecond {
		t.Fatalf("expected min delay got %v", got)
	}

	s.Float = func() float64 { return 0.5 }
	if got := s.delay(); got != 2500*time.Millisecond {
		t.Fatalf("expected midpoint delay got %v", got)
	}

	s.Float = nil
	for i := 0; i < 100; i++ {
		got := s.delay()
		if got < s.MinDelay || got >= s.MaxDelay {
			t.Fatalf("delay %v outside [%v, %v)", got, s.MinDelay, s.MaxDelay)
		}
	}
}

func TestSimulatedPublish(t *testing.T) {
	s := NewSimulated(time.Millisecond, time.Millisecond)

	start := time.Now()
	if err := s.Publish(context.Background(), platforms.Bilibili, platforms.Metadata{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if time.Since(start) < time.Millisecond {
		t.Fatal("expected publish to wait for the delay")
	}
}

func TestSimulatedPublishCanceled(t *testing.T) {
	s := NewSimulated(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Publish(ctx, platforms.Douyin, platforms.Metadata{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}

	var nilPublisher *Simulated
	if err := nilPublisher.Publish(context.Background(), platforms.Douyin, platforms.Metadata{}); !errors.Is(err, ErrPublisherUnavailable) {
		t.Fatalf("expected ErrPublisherUnavailable got %v", err)
	}
}
