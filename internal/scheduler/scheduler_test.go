package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsZeroInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestRunFiresUntilCancelled(t *testing.T) {
	s, err := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if ticks.Add(1) == 3 {
				cancel()
			}
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("scheduler did not stop")
	}
	if got := ticks.Load(); got != 3 {
		t.Errorf("ticks = %d, want 3", got)
	}
}

func TestRunHonoursStartupDelay(t *testing.T) {
	s, _ := New(Options{Interval: time.Millisecond, StartupDelay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ticks atomic.Int32
	err := s.Run(ctx, func(context.Context, time.Time) error {
		ticks.Add(1)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if ticks.Load() != 0 {
		t.Error("tick fired during startup delay")
	}
}

func TestNextTickAlignment(t *testing.T) {
	s, _ := New(Options{Interval: 10 * time.Minute, AlignToBucket: true}, zerolog.Nop())
	now := time.Date(2025, 1, 1, 12, 3, 0, 0, time.UTC)

	if got, want := s.nextTick(now), time.Date(2025, 1, 1, 12, 10, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("aligned next = %v, want %v", got, want)
	}

	onBoundary := time.Date(2025, 1, 1, 12, 10, 0, 0, time.UTC)
	if got, want := s.nextTick(onBoundary), time.Date(2025, 1, 1, 12, 20, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("boundary next = %v, want %v", got, want)
	}

	s.opts.AlignToBucket = false
	if got, want := s.nextTick(now), now.Add(10*time.Minute); !got.Equal(want) {
		t.Errorf("unaligned next = %v, want %v", got, want)
	}
}
