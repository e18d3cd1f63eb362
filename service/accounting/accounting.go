package accounting

import (
	"context"

	"keel/core"
	"keel/pkg/number"

	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/shopspring/decimal"
)

type accountingService struct {
	db     *db.DB
	ledger core.Ledger
	queue  core.DebtQueueStore
	events core.EventStore
}

// New new accounting engine
func New(
	db *db.DB,
	ledger core.Ledger,
	queue core.DebtQueueStore,
	events core.EventStore,
) core.AccountingEngine {
	return &accountingService{
		db:     db,
		ledger: ledger,
		queue:  queue,
		events: events,
	}
}

func (s *accountingService) Account() string {
	return core.AccountingEngineAccount
}

func (s *accountingService) PushDebtToQueue(ctx context.Context, rad decimal.Decimal) error {
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	return s.db.Tx(func(tx *db.DB) error {
		entry := &core.DebtQueueEntry{Amount: number.Rad(rad)}
		if err := s.queue.Create(ctx, tx, entry); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventPushDebtToQueue, s.Account(), map[string]interface{}{
			"amount": entry.Amount,
		}))
	})
}

// SettleDebt burns coins held on the engine account against its unbacked
// debt. Anyone may trigger it; it only ever shrinks both sides.
func (s *accountingService) SettleDebt(ctx context.Context, caller string, rad decimal.Decimal) error {
	if !rad.IsPositive() {
		return core.ErrInvalidAmount
	}

	return s.ledger.SettleDebt(ctx, s.Account(), rad)
}
