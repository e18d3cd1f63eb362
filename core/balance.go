package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// CollateralBalance free (unlocked) collateral held by an account, wad.
type CollateralBalance struct {
	ID               uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string          `sql:"size:20;unique_index:gem_idx" json:"collateral_symbol"`
	Account          string          `sql:"size:64;unique_index:gem_idx" json:"account"`
	Balance          decimal.Decimal `sql:"type:decimal(32,8)" json:"balance"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// CoinBalance internal accounting-unit balance and unbacked debt of an
// account, both rad.
type CoinBalance struct {
	ID      uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Account string          `sql:"size:64;unique_index:coin_idx" json:"account"`
	Balance decimal.Decimal `sql:"type:decimal(48,24)" json:"balance"`
	// Debt unbacked debt attributed to this account
	Debt decimal.Decimal `sql:"type:decimal(48,24)" json:"debt"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BalanceStore internal balances. Add* methods apply signed deltas and
// reject any result below zero: no account balance may go negative.
type BalanceStore interface {
	FindCollateral(ctx context.Context, symbol, account string) (*CollateralBalance, error)
	AddCollateral(ctx context.Context, tx *db.DB, symbol, account string, delta decimal.Decimal) error
	FindCoin(ctx context.Context, account string) (*CoinBalance, error)
	AddCoin(ctx context.Context, tx *db.DB, account string, balanceDelta, debtDelta decimal.Decimal) error
	SumCollateral(ctx context.Context, symbol string) (decimal.Decimal, error)
}
