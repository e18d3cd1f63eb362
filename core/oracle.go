package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// PriceFeed is the external observation source. Read returns the raw market
// price together with a validity flag; an invalid observation must never be
// treated as a price of zero by callers other than the relay, which maps it
// to zero risk-adjusted prices on purpose.
type PriceFeed interface {
	Read(ctx context.Context, symbol string) (price decimal.Decimal, valid bool, err error)
}

// PriceObservation last market observation forwarded by the relay, kept for
// the auction house's clearing-price computation.
type PriceObservation struct {
	ID               uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string          `sql:"size:20;unique_index:observation_idx" json:"collateral_symbol"`
	Price            decimal.Decimal `sql:"type:decimal(32,16)" json:"price"`
	Valid            bool            `sql:"default:0" json:"valid"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// RedemptionState the protocol's virtual peg: lazily compounded price and
// its bounded per-second drift rate, both ray. Initialized at par and reset
// to neutral only on irreversible shutdown.
type RedemptionState struct {
	ID             uint64          `sql:"PRIMARY_KEY" json:"id"`
	Price          decimal.Decimal `sql:"type:decimal(32,16)" json:"price"`
	Rate           decimal.Decimal `sql:"type:decimal(32,16)" json:"rate"`
	RateLowerBound decimal.Decimal `sql:"type:decimal(32,16)" json:"rate_lower_bound"`
	RateUpperBound decimal.Decimal `sql:"type:decimal(32,16)" json:"rate_upper_bound"`
	// UpdateTime unix seconds of the last price compounding
	UpdateTime int64 `json:"update_time"`

	Version int64 `sql:"default:0" json:"version"`
}

// RelayParams per-collateral relay configuration: the ratios dividing the
// market price into the two risk-adjusted prices. safety >= liquidation >= 1.
type RelayParams struct {
	ID               uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string          `sql:"size:20;unique_index:relay_idx" json:"collateral_symbol"`
	SafetyRatio      decimal.Decimal `sql:"type:decimal(32,16)" json:"safety_ratio"`
	LiquidationRatio decimal.Decimal `sql:"type:decimal(32,16)" json:"liquidation_ratio"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// RelayStore relay persistence
type RelayStore interface {
	GetRedemption(ctx context.Context) (*RedemptionState, error)
	UpdateRedemption(ctx context.Context, tx *db.DB, state *RedemptionState) error
	CreateParams(ctx context.Context, tx *db.DB, params *RelayParams) error
	FindParams(ctx context.Context, symbol string) (*RelayParams, error)
	UpdateParams(ctx context.Context, tx *db.DB, params *RelayParams) error
	FindObservation(ctx context.Context, symbol string) (*PriceObservation, error)
	UpsertObservation(ctx context.Context, tx *db.DB, symbol string, price decimal.Decimal, valid bool) error
}

// Relay converts raw observations into the two risk-adjusted prices and
// maintains the redemption price/rate.
type Relay interface {
	// RedemptionPrice returns the current redemption price, compounding and
	// persisting it at most once per distinct timestamp.
	RedemptionPrice(ctx context.Context) (decimal.Decimal, error)
	// UpdateCollateralPrice reads the feed and pushes risk-adjusted prices
	// into the ledger; invalid observations push zero prices.
	UpdateCollateralPrice(ctx context.Context, symbol string) error
	// InitCollateral registers relay params for a collateral type
	InitCollateral(ctx context.Context, caller, symbol string, safetyRatio, liquidationRatio decimal.Decimal) error
	// ModifyParameters global (redemptionRate bounds, redemptionRate) and
	// per-collateral (safetyRatio, liquidationRatio) updates
	ModifyParameters(ctx context.Context, caller, symbol, key, value string) error

	AllowCaller(caller string)
	DenyCaller(caller string)
}
