package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Vault per-owner, per-collateral-type position of locked collateral and
// generated debt. While the system is enabled and the liquidation engine
// has not acted, a vault with debt is expected to satisfy
// lockedCollateral * liquidationPrice >= generatedDebt * accumulatedRate;
// the inequality may be violated transiently between price updates, which
// is exactly the liquidation trigger.
type Vault struct {
	ID               uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string          `sql:"size:20;unique_index:vault_idx" json:"collateral_symbol"`
	Owner            string          `sql:"size:64;unique_index:vault_idx" json:"owner"`
	LockedCollateral decimal.Decimal `sql:"type:decimal(32,8)" json:"locked_collateral"`
	GeneratedDebt    decimal.Decimal `sql:"type:decimal(32,8)" json:"generated_debt"`
	// Saviour name of the chosen rescue contract, empty for none
	Saviour string `sql:"size:64" json:"saviour"`

	Version   int64     `sql:"default:0" json:"version"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VaultDelegation grants delegate the right to modify owner's vaults.
type VaultDelegation struct {
	ID       uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	Owner    string `sql:"size:64;unique_index:delegation_idx" json:"owner"`
	Delegate string `sql:"size:64;unique_index:delegation_idx" json:"delegate"`

	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// VaultStore vault store interface
type VaultStore interface {
	Create(ctx context.Context, tx *db.DB, vault *Vault) error
	Find(ctx context.Context, symbol, owner string) (*Vault, error)
	FindOrZero(ctx context.Context, symbol, owner string) (*Vault, error)
	ListByCollateral(ctx context.Context, symbol string, fromID uint64, limit int) ([]*Vault, error)
	Update(ctx context.Context, tx *db.DB, vault *Vault) error

	Approve(ctx context.Context, tx *db.DB, owner, delegate string) error
	Deny(ctx context.Context, tx *db.DB, owner, delegate string) error
	Allowed(ctx context.Context, owner, delegate string) (bool, error)
}

// HasDebt reports whether the vault carries generated debt
func (v *Vault) HasDebt() bool {
	return v.GeneratedDebt.IsPositive()
}
