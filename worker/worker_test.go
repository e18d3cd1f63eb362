package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartTickStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w := &TickWorker{Delay: time.Millisecond}

	ticks := 0
	done := make(chan error, 1)
	go func() {
		done <- w.StartTick(ctx, func(ctx context.Context) error {
			ticks++
			if ticks >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
		require.True(t, ticks >= 3)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartTickKeepsGoingOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w := &TickWorker{Delay: time.Millisecond, ErrDelay: time.Millisecond}

	ticks := 0
	done := make(chan error, 1)
	go func() {
		done <- w.StartTick(ctx, func(ctx context.Context) error {
			ticks++
			if ticks >= 2 {
				cancel()
				return nil
			}
			return errors.New("transient")
		})
	}()

	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
		require.True(t, ticks >= 2)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
