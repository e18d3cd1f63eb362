package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// DebtQueueEntry bad debt queued by the liquidation engine, rad.
type DebtQueueEntry struct {
	ID     uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Amount decimal.Decimal `sql:"type:decimal(48,24)" json:"amount"`

	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// DebtQueueStore debt queue store interface
type DebtQueueStore interface {
	Create(ctx context.Context, tx *db.DB, entry *DebtQueueEntry) error
	List(ctx context.Context, fromID uint64, limit int) ([]*DebtQueueEntry, error)
	Total(ctx context.Context) (decimal.Decimal, error)
}

// AccountingEngine is the narrow fee/accounting collaborator surface the
// core consumes: it absorbs newly queued bad debt and can settle its
// unbacked debt against coins it holds. Fee and treasury bookkeeping live
// outside the core.
type AccountingEngine interface {
	// Account the collaborator's ledger account handle
	Account() string
	// PushDebtToQueue records newly confiscated bad debt (debt * rate)
	PushDebtToQueue(ctx context.Context, rad decimal.Decimal) error
	// SettleDebt burns held coins against unbacked debt
	SettleDebt(ctx context.Context, caller string, rad decimal.Decimal) error
}
