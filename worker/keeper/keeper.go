package keeper

import (
	"context"
	"errors"
	"fmt"

	"keel/core"
	"keel/internal/cdp"
	"keel/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
)

// KeeperAccount the identity the keeper liquidates under. Liquidation is
// open to anyone; the keeper is just the house caller.
const KeeperAccount = "keeper"

const checkpointKeyFormat = "keeper_checkpoint_%s"

// Worker scans vaults collateral type by collateral type and fires
// liquidations for the unsafe ones. Progress is checkpointed per type so a
// restart resumes mid-scan.
type Worker struct {
	worker.TickWorker
	propertyStore property.Store
	collaterals   core.CollateralStore
	vaults        core.VaultStore
	engine        core.LiquidationEngine
	batch         int
}

// New new keeper worker
func New(
	propertyStore property.Store,
	collaterals core.CollateralStore,
	vaults core.VaultStore,
	engine core.LiquidationEngine,
	batch int,
) *Worker {
	if batch <= 0 {
		batch = 100
	}

	return &Worker{
		propertyStore: propertyStore,
		collaterals:   collaterals,
		vaults:        vaults,
		engine:        engine,
		batch:         batch,
	}
}

// Run run worker
func (w *Worker) Run(ctx context.Context) error {
	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Worker) onWork(ctx context.Context) error {
	collaterals, err := w.collaterals.All(ctx)
	if err != nil {
		return err
	}

	for _, collateral := range collaterals {
		if err := w.scanCollateral(ctx, collateral); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) scanCollateral(ctx context.Context, collateral *core.CollateralType) error {
	log := logger.FromContext(ctx).WithField("worker", "keeper")

	if !collateral.LiquidationPrice.IsPositive() {
		return nil
	}

	key := fmt.Sprintf(checkpointKeyFormat, collateral.Symbol)
	v, err := w.propertyStore.Get(ctx, key)
	if err != nil {
		log.WithError(err).Errorln("property.Get error")
		return err
	}

	vaults, err := w.vaults.ListByCollateral(ctx, collateral.Symbol, uint64(v.Int64()), w.batch)
	if err != nil {
		return err
	}

	if len(vaults) == 0 {
		// wrap the scan around
		return w.propertyStore.Save(ctx, key, 0)
	}

	for _, vault := range vaults {
		if vault.HasDebt() &&
			cdp.IsUnsafe(vault.LockedCollateral, collateral.LiquidationPrice, vault.GeneratedDebt, collateral.AccumulatedRate) {
			w.liquidate(ctx, vault)
		}

		if err := w.propertyStore.Save(ctx, key, vault.ID); err != nil {
			log.WithError(err).Errorln("property.Save:", vault.ID)
			return err
		}
	}

	return nil
}

func (w *Worker) liquidate(ctx context.Context, vault *core.Vault) {
	log := logger.FromContext(ctx).WithField("worker", "keeper").
		WithField("vault", vault.CollateralSymbol+"/"+vault.Owner)

	auctionID, err := w.engine.Liquidate(ctx, KeeperAccount, vault.CollateralSymbol, vault.Owner)
	if err != nil {
		// sizing and cap rejections are routine, keep scanning
		var code core.ErrorCode
		if errors.As(err, &code) {
			log.Infoln("liquidate rejected:", code)
			return
		}

		log.WithError(err).Errorln("liquidate error")
		return
	}

	if auctionID > 0 {
		log.Infoln("liquidated into auction", auctionID)
	} else {
		log.Infoln("vault rescued by saviour")
	}
}
