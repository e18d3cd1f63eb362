package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// CollateralType per-collateral ledger record. The ledger exclusively owns
// and mutates these rows; every other component reads them and commands
// mutation through ledger entry points.
type CollateralType struct {
	ID     uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Symbol string `sql:"size:20;unique_index:symbol_idx" json:"symbol"`
	// TotalDebt sum of generated debt across vaults of this type, wad
	TotalDebt decimal.Decimal `sql:"type:decimal(32,8)" json:"total_debt"`
	// AccumulatedRate cumulative fee-compounding multiplier, ray,
	// monotonically non-decreasing, mutated only via UpdateAccumulatedRate
	AccumulatedRate decimal.Decimal `sql:"type:decimal(32,16)" json:"accumulated_rate"`
	// SafetyPrice risk-adjusted price for new-debt limits, ray
	SafetyPrice decimal.Decimal `sql:"type:decimal(32,16)" json:"safety_price"`
	// LiquidationPrice risk-adjusted price for liquidation eligibility, ray
	LiquidationPrice decimal.Decimal `sql:"type:decimal(32,16)" json:"liquidation_price"`
	// DebtCeiling max total debt for the type, rad
	DebtCeiling decimal.Decimal `sql:"type:decimal(48,24)" json:"debt_ceiling"`
	// DebtFloor minimum non-zero vault debt, rad
	DebtFloor decimal.Decimal `sql:"type:decimal(48,24)" json:"debt_floor"`
	// TotalJoined / TotalExited collateral ever moved through the join
	// adapters, wad; anchors the collateral conservation identity
	TotalJoined decimal.Decimal `sql:"type:decimal(32,8)" json:"total_joined"`
	TotalExited decimal.Decimal `sql:"type:decimal(32,8)" json:"total_exited"`

	Version   int64     `sql:"default:0" json:"version"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// CollateralStore collateral type store interface
type CollateralStore interface {
	Create(ctx context.Context, tx *db.DB, collateral *CollateralType) error
	Find(ctx context.Context, symbol string) (*CollateralType, error)
	All(ctx context.Context) ([]*CollateralType, error)
	Update(ctx context.Context, tx *db.DB, collateral *CollateralType) error
}
