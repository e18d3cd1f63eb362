package core

import (
	"context"
	"sync"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Auction a decreasing-price, partial-fill collateral sale. Terminal when
// either remaining side reaches zero; terminal auctions stay on record but
// reject further bids. The discount schedule is snapshotted at start time so
// later parameter changes never reprice a running auction.
type Auction struct {
	ID               uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	CollateralSymbol string `sql:"size:20;index:auction_collateral_idx" json:"collateral_symbol"`
	// CollateralToSell remaining collateral, wad
	CollateralToSell decimal.Decimal `sql:"type:decimal(32,8)" json:"collateral_to_sell"`
	// AmountToRaise remaining accounting-unit target, rad
	AmountToRaise decimal.Decimal `sql:"type:decimal(48,24)" json:"amount_to_raise"`
	// InitialCollateral / InitialAmountToRaise creation-time totals
	InitialCollateral    decimal.Decimal `sql:"type:decimal(32,8)" json:"initial_collateral"`
	InitialAmountToRaise decimal.Decimal `sql:"type:decimal(48,24)" json:"initial_amount_to_raise"`
	// ForgoneCollateralReceiver gets any residual collateral, typically the
	// original vault owner
	ForgoneCollateralReceiver string `sql:"size:64" json:"forgone_collateral_receiver"`
	// InitialBidder absorbs the shortfall when collateral runs out before
	// the raise target is met
	InitialBidder string `sql:"size:64" json:"initial_bidder"`

	// discount schedule snapshot, all ray
	MinDiscount                 decimal.Decimal `sql:"type:decimal(32,16)" json:"min_discount"`
	MaxDiscount                 decimal.Decimal `sql:"type:decimal(32,16)" json:"max_discount"`
	PerSecondDiscountUpdateRate decimal.Decimal `sql:"type:decimal(32,16)" json:"per_second_discount_update_rate"`

	StartedAt int64 `json:"started_at"`
	SettledAt int64 `sql:"default:0" json:"settled_at"`

	Version   int64     `sql:"default:0" json:"version"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsTerminal either side exhausted
func (a *Auction) IsTerminal() bool {
	return !a.CollateralToSell.IsPositive() || !a.AmountToRaise.IsPositive()
}

// AuctionParams singleton discount schedule applied to auctions started from
// now on; running auctions keep the snapshot taken at start time. All ray.
type AuctionParams struct {
	ID                          uint64          `sql:"PRIMARY_KEY" json:"id"`
	MinDiscount                 decimal.Decimal `sql:"type:decimal(32,16)" json:"min_discount"`
	MaxDiscount                 decimal.Decimal `sql:"type:decimal(32,16)" json:"max_discount"`
	PerSecondDiscountUpdateRate decimal.Decimal `sql:"type:decimal(32,16)" json:"per_second_discount_update_rate"`

	Version   int64     `sql:"default:0" json:"version"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AuctionStore auction store interface
type AuctionStore interface {
	Create(ctx context.Context, tx *db.DB, auction *Auction) error
	Find(ctx context.Context, id uint64) (*Auction, error)
	ListActive(ctx context.Context, fromID uint64, limit int) ([]*Auction, error)
	List(ctx context.Context, fromID uint64, limit int) ([]*Auction, error)
	Update(ctx context.Context, tx *db.DB, auction *Auction) error
	GetParams(ctx context.Context) (*AuctionParams, error)
	UpdateParams(ctx context.Context, tx *db.DB, params *AuctionParams) error
}

// StartAuctionParams parameters of a new auction
type StartAuctionParams struct {
	CollateralSymbol          string
	CollateralToSell          decimal.Decimal
	AmountToRaise             decimal.Decimal
	ForgoneCollateralReceiver string
	InitialBidder             string
}

// VenueRegistry resolves auction venues by account handle. The liquidation
// engine holds the registry; venues register themselves at wiring time.
type VenueRegistry struct {
	mu sync.RWMutex
	m  map[string]AuctionHouse
}

// NewVenueRegistry new venue registry
func NewVenueRegistry() *VenueRegistry {
	return &VenueRegistry{m: make(map[string]AuctionHouse)}
}

// Register adds a venue under its account handle
func (r *VenueRegistry) Register(house AuctionHouse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[house.Account()] = house
}

// Find looks a venue up by account handle
func (r *VenueRegistry) Find(account string) (AuctionHouse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	house, ok := r.m[account]
	return house, ok
}

// AuctionHouse the collateral sale venue.
type AuctionHouse interface {
	// Account the venue's ledger account holding seized collateral
	Account() string
	// StartAuction liquidation-engine only
	StartAuction(ctx context.Context, caller string, params StartAuctionParams) (uint64, error)
	// BuyCollateral settles a bid at the current clearing price; open to any
	// caller with sufficient internal coins. Returns collateral bought and
	// coins spent (wad).
	BuyCollateral(ctx context.Context, id uint64, bidder string, bid decimal.Decimal) (bought, spent decimal.Decimal, err error)
	// DiscountedCollateralPrice current clearing price of an auction, ray
	DiscountedCollateralPrice(ctx context.Context, auction *Auction) (decimal.Decimal, error)
	// ModifyParameters discount schedule updates, admin gated
	ModifyParameters(ctx context.Context, caller, key, value string) error

	AllowCaller(caller string)
	DenyCaller(caller string)
}
