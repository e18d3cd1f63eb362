package priceoracle

import (
	"context"

	"keel/core"
	"keel/pkg/concurrency"
	"keel/worker"

	"github.com/fox-one/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Worker pushes fresh risk-adjusted prices through the relay for every
// initialized collateral type.
type Worker struct {
	worker.TickWorker
	collaterals core.CollateralStore
	relay       core.Relay
	limit       *concurrency.GoLimit
}

// New new price oracle worker
func New(collaterals core.CollateralStore, relay core.Relay) *Worker {
	return &Worker{
		collaterals: collaterals,
		relay:       relay,
		limit:       concurrency.NewGoLimit(8),
	}
}

// Run run worker
func (w *Worker) Run(ctx context.Context) error {
	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "priceoracle")

	collaterals, err := w.collaterals.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("collaterals.All")
		return err
	}

	var g errgroup.Group
	for _, c := range collaterals {
		symbol := c.Symbol
		w.limit.Add()
		g.Go(func() error {
			defer w.limit.Done()

			if err := w.relay.UpdateCollateralPrice(ctx, symbol); err != nil {
				log.WithError(err).Errorln("update price:", symbol)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
