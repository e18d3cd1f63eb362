package cmd

import (
	"keel/worker"
	"keel/worker/priceoracle"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "keel job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		system := provideSystem(rootCmd.Version)
		e := provideEngines(database, system)

		priceWorker := priceoracle.New(e.collaterals, e.relay)
		priceWorker.Delay = cfg.Worker.PriceInterval

		workers := []worker.Worker{
			priceWorker,
			provideKeeperWorker(database, e),
		}

		g, ctx := errgroup.WithContext(ctx)
		for _, w := range workers {
			w := w
			g.Go(func() error {
				return w.Run(ctx)
			})
		}

		if err := g.Wait(); err != nil {
			log.WithError(err).Errorln("workers stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
