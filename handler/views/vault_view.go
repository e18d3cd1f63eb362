package views

import (
	"keel/core"

	"github.com/shopspring/decimal"
)

// Vault vault view
type Vault struct {
	core.Vault
	// CollateralValue locked collateral at the liquidation price, rad
	CollateralValue decimal.Decimal `json:"collateral_value"`
	// DebtValue generated debt at the accumulated rate, rad
	DebtValue decimal.Decimal `json:"debt_value"`
	Unsafe    bool            `json:"unsafe"`
	// LiquidatableDebt current limit-adjusted debt preview, wad
	LiquidatableDebt decimal.Decimal `json:"liquidatable_debt"`
}

// Collateral collateral type view
type Collateral struct {
	core.CollateralType
	// MarketPrice last raw observation
	MarketPrice decimal.Decimal `json:"market_price"`
	PriceValid  bool            `json:"price_valid"`
}

// Auction auction view
type Auction struct {
	core.Auction
	// CurrentPrice present discounted clearing price, ray; zero while the
	// feed is invalid
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Redemption redemption state view
type Redemption struct {
	core.RedemptionState
	// CurrentPrice the lazily compounded price as of now
	CurrentPrice decimal.Decimal `json:"current_price"`
}
