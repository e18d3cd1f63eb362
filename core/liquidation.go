package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// RescueSentinel is the value a candidate saviour must report for both
// amounts when probed at connection time, proving it implements the rescue
// contract. The probe is a capability check, not a real rescue.
var RescueSentinel = decimal.NewFromInt(-1)

// Saviour is a rescue contract a vault owner may designate. SaveVault is
// invoked at liquidation time with the liquidation caller's identity and the
// vault handle; it may only add collateral or repay debt. Reported amounts
// are never trusted: the engine recomputes deltas from ledger state.
type Saviour interface {
	Name() string
	SaveVault(ctx context.Context, keeper, collateralSymbol, vaultOwner string) (ok bool, collateralAdded, debtRepaid decimal.Decimal, err error)
}

// LiquidationState singleton counter of debt value currently out for
// auction, bounded by the configured limit. Both rad.
type LiquidationState struct {
	ID                    uint64          `sql:"PRIMARY_KEY" json:"id"`
	CurrentOnAuctionCoins decimal.Decimal `sql:"type:decimal(48,24)" json:"current_on_auction_coins"`
	OnAuctionCoinLimit    decimal.Decimal `sql:"type:decimal(48,24)" json:"on_auction_coin_limit"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// LiquidationParams per-collateral liquidation configuration.
type LiquidationParams struct {
	ID               uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string `sql:"size:20;unique_index:liq_params_idx" json:"collateral_symbol"`
	// Penalty liquidation penalty multiplier, ray, >= 1
	Penalty decimal.Decimal `sql:"type:decimal(32,16)" json:"penalty"`
	// Quantity max system-coin value out for auction per liquidation, rad
	Quantity decimal.Decimal `sql:"type:decimal(48,24)" json:"quantity"`
	// Venue account handle of the collateral auction venue
	Venue string `sql:"size:64" json:"venue"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// LiquidationStore liquidation persistence
type LiquidationStore interface {
	GetState(ctx context.Context) (*LiquidationState, error)
	UpdateState(ctx context.Context, tx *db.DB, state *LiquidationState) error
	CreateParams(ctx context.Context, tx *db.DB, params *LiquidationParams) error
	FindParams(ctx context.Context, symbol string) (*LiquidationParams, error)
	UpdateParams(ctx context.Context, tx *db.DB, params *LiquidationParams) error
}

// LiquidationEngine decides whether a vault is unsafe, offers the designated
// saviour a last chance, and confiscates and auctions the unsafe slice.
type LiquidationEngine interface {
	// Liquidate runs the full decision flow and returns the id of the
	// auction it started, or zero when a successful rescue made the vault
	// safe again (a valid, non-error outcome).
	Liquidate(ctx context.Context, caller, symbol, vaultOwner string) (auctionID uint64, err error)
	// GetLimitAdjustedDebtToCover read-only sizing preview
	GetLimitAdjustedDebtToCover(ctx context.Context, symbol, vaultOwner string) (decimal.Decimal, error)
	// RemoveCoinsFromAuction authorized decrement of the on-auction counter
	RemoveCoinsFromAuction(ctx context.Context, caller string, rad decimal.Decimal) error

	// InitCollateral registers liquidation params for a collateral type
	InitCollateral(ctx context.Context, caller, symbol string, penalty, quantity decimal.Decimal) error
	// ModifyParameters global (onAuctionSystemCoinLimit) and per-collateral
	// (liquidationPenalty, liquidationQuantity, auctionVenue) updates;
	// rewiring the venue moves the ledger confiscation rights from the old
	// venue to the new one.
	ModifyParameters(ctx context.Context, caller, symbol, key, value string) error

	// ConnectSaviour admits a saviour after the sentinel capability probe
	ConnectSaviour(ctx context.Context, caller string, saviour Saviour) error
	// DisconnectSaviour removes a saviour from the registry
	DisconnectSaviour(ctx context.Context, caller, name string) error
	// ProtectVault chooses a saviour for a vault; gated by the ledger's
	// vault-modification rights
	ProtectVault(ctx context.Context, caller, symbol, vaultOwner, saviourName string) error
	// Saviours lists connected saviour names in insertion order
	Saviours() []string

	AllowCaller(caller string)
	DenyCaller(caller string)
}
