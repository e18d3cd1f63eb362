package worker

import (
	"context"
	"time"
)

// Worker a long-running task
type Worker interface {
	Run(ctx context.Context) error
}

// TickWorker runs a task repeatedly with a delay between rounds, backing
// off on errors. Embed it and call StartTick from Run.
type TickWorker struct {
	// Delay between successful rounds
	Delay time.Duration
	// ErrDelay after a failed round
	ErrDelay time.Duration
}

// StartTick tick & work
func (w *TickWorker) StartTick(ctx context.Context, onTick func(ctx context.Context) error) error {
	delay := w.Delay
	if delay <= 0 {
		delay = time.Second
	}
	errDelay := w.ErrDelay
	if errDelay <= 0 {
		errDelay = 3 * time.Second
	}

	dur := time.Millisecond
	timer := time.NewTimer(dur)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := onTick(ctx); err != nil {
				dur = errDelay
			} else {
				dur = delay
			}
			timer.Reset(dur)
		}
	}
}
