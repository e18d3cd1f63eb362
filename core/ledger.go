package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// LedgerState singleton row of global ledger accounting.
type LedgerState struct {
	ID      uint64 `sql:"PRIMARY_KEY" json:"id"`
	Enabled bool   `sql:"default:1" json:"enabled"`
	// GlobalDebt internal accounting-unit supply, rad
	GlobalDebt decimal.Decimal `sql:"type:decimal(48,24)" json:"global_debt"`
	// GlobalUnbackedDebt total unbacked debt, rad
	GlobalUnbackedDebt decimal.Decimal `sql:"type:decimal(48,24)" json:"global_unbacked_debt"`
	// GlobalDebtCeiling cap on GlobalDebt, rad
	GlobalDebtCeiling decimal.Decimal `sql:"type:decimal(48,24)" json:"global_debt_ceiling"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// LedgerStateStore singleton state store
type LedgerStateStore interface {
	Get(ctx context.Context) (*LedgerState, error)
	Update(ctx context.Context, tx *db.DB, state *LedgerState) error
}

// Ledger is the authoritative double-entry store of collateral, debt and
// internal balances. Every mutating entry point takes the caller identity
// and checks it against either the instance authorization set or the
// vault-delegation registry. All mutations preserve:
//
//	(a) sum of locked collateral plus free collateral balances per type
//	    equals total joined minus total exited for that type;
//	(b) sum of vault debt times accumulated rate equals global debt,
//	    modulo tracked unbacked debt;
//	(c) no account balance goes negative.
type Ledger interface {
	// InitCollateralType one-time per-type initialization, rate starts at one
	InitCollateralType(ctx context.Context, caller, symbol string) error
	// UpdateCollateralPrice price relay entry point for risk-adjusted prices
	UpdateCollateralPrice(ctx context.Context, caller, symbol string, safetyPrice, liquidationPrice decimal.Decimal) error
	// ModifyParameters typed parameter update; global when symbol is empty
	ModifyParameters(ctx context.Context, caller, symbol, key, value string) error

	// ModifyCollateralBalance join-adapter entry point, tracks joined/exited
	ModifyCollateralBalance(ctx context.Context, caller, symbol, account string, wad decimal.Decimal) error
	// TransferCollateral moves free collateral between accounts
	TransferCollateral(ctx context.Context, caller, symbol, src, dst string, wad decimal.Decimal) error
	// TransferInternalCoins moves accounting units between accounts
	TransferInternalCoins(ctx context.Context, caller, src, dst string, rad decimal.Decimal) error

	// ModifyVaultCollateralization the generalized mutation entry point:
	// atomically applies the vault deltas together with the paired
	// collateral-pool and coin-balance entries, enforcing ceilings, the
	// safety condition and the dust floor.
	ModifyVaultCollateralization(ctx context.Context, caller, symbol, vaultOwner, collateralSource, debtDestination string, deltaCollateral, deltaDebt decimal.Decimal) error
	// ConfiscateVaultCollateralization liquidation-gated forced transfer:
	// collateral moves to the counterparty, debt becomes unbacked debt of
	// the debt counterparty, solvency checks bypassed.
	ConfiscateVaultCollateralization(ctx context.Context, caller, symbol, vaultOwner, collateralCounterparty, debtCounterparty string, deltaCollateral, deltaDebt decimal.Decimal) error

	// SettleDebt burns caller's coins against caller's unbacked debt
	SettleDebt(ctx context.Context, caller string, rad decimal.Decimal) error
	// CreateUnbackedDebt mints coins against unbacked debt
	CreateUnbackedDebt(ctx context.Context, caller, debtDestination, coinDestination string, rad decimal.Decimal) error
	// UpdateAccumulatedRate fee-accrual collaborator entry point
	UpdateAccumulatedRate(ctx context.Context, caller, symbol, surplusDestination string, rateDelta decimal.Decimal) error

	// ApproveVaultModification / DenyVaultModification delegation registry
	ApproveVaultModification(ctx context.Context, owner, delegate string) error
	DenyVaultModification(ctx context.Context, owner, delegate string) error
	// CanModifyVault reports whether caller may modify owner's vaults
	CanModifyVault(ctx context.Context, owner, caller string) (bool, error)

	// DisableLedger irreversible shutdown
	DisableLedger(ctx context.Context, caller string) error

	// Authorization management for component wiring
	AllowCaller(caller string)
	DenyCaller(caller string)
}
