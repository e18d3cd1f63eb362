package auction

import (
	"context"

	"keel/core"
	"keel/internal/cdp"
	"keel/pkg/number"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type auctionHouse struct {
	db       *db.DB
	system   *core.System
	clock    clock.Clock
	ledger   core.Ledger
	relay    core.Relay
	relays   core.RelayStore
	auctions core.AuctionStore
	engine   core.LiquidationEngine
	events   core.EventStore
	auth     *core.AuthSet
}

// New new collateral auction house
func New(
	db *db.DB,
	system *core.System,
	clk clock.Clock,
	ledger core.Ledger,
	relay core.Relay,
	relays core.RelayStore,
	auctions core.AuctionStore,
	engine core.LiquidationEngine,
	events core.EventStore,
) core.AuctionHouse {
	return &auctionHouse{
		db:       db,
		system:   system,
		clock:    clk,
		ledger:   ledger,
		relay:    relay,
		relays:   relays,
		auctions: auctions,
		engine:   engine,
		events:   events,
		auth:     core.NewAuthSet(),
	}
}

func (s *auctionHouse) Account() string {
	return core.AuctionHouseAccount
}

func (s *auctionHouse) AllowCaller(caller string) {
	s.auth.Allow(caller)
}

func (s *auctionHouse) DenyCaller(caller string) {
	s.auth.Deny(caller)
}

func (s *auctionHouse) authorized(caller string) bool {
	return s.system.IsAdmin(caller) || s.auth.Contains(caller)
}

func (s *auctionHouse) StartAuction(ctx context.Context, caller string, params core.StartAuctionParams) (uint64, error) {
	if !s.authorized(caller) {
		return 0, core.ErrNotAuthorized
	}

	if !params.CollateralToSell.IsPositive() || !params.AmountToRaise.IsPositive() {
		return 0, core.ErrInvalidAmount
	}

	schedule, err := s.auctions.GetParams(ctx)
	if err != nil {
		return 0, err
	}

	auction := &core.Auction{
		CollateralSymbol:          params.CollateralSymbol,
		CollateralToSell:          number.Wad(params.CollateralToSell),
		AmountToRaise:             number.Rad(params.AmountToRaise),
		InitialCollateral:         number.Wad(params.CollateralToSell),
		InitialAmountToRaise:      number.Rad(params.AmountToRaise),
		ForgoneCollateralReceiver: params.ForgoneCollateralReceiver,
		InitialBidder:             params.InitialBidder,

		MinDiscount:                 schedule.MinDiscount,
		MaxDiscount:                 schedule.MaxDiscount,
		PerSecondDiscountUpdateRate: schedule.PerSecondDiscountUpdateRate,

		StartedAt: s.clock.Now().Unix(),
	}

	if err := s.db.Tx(func(tx *db.DB) error {
		if err := s.auctions.Create(ctx, tx, auction); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventStartAuction, params.CollateralSymbol, map[string]interface{}{
			"collateral_to_sell": auction.CollateralToSell,
			"amount_to_raise":    auction.AmountToRaise,
			"receiver":           params.ForgoneCollateralReceiver,
		}))
	}); err != nil {
		return 0, err
	}

	return auction.ID, nil
}

// DiscountedCollateralPrice the clearing price of the auction right now:
// market price over redemption price, cut by the decayed discount.
func (s *auctionHouse) DiscountedCollateralPrice(ctx context.Context, auction *core.Auction) (decimal.Decimal, error) {
	observation, err := s.relays.FindObservation(ctx, auction.CollateralSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !observation.Valid || !observation.Price.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	redemptionPrice, err := s.relay.RedemptionPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	discount := cdp.CurrentDiscount(auction.MinDiscount, auction.MaxDiscount, auction.PerSecondDiscountUpdateRate, s.clock.Now().Unix()-auction.StartedAt)
	return cdp.DiscountedPrice(observation.Price, redemptionPrice, discount), nil
}

// BuyCollateral settles a bid against the auction at the current clearing
// price. Partial fills are the normal case; the terminal fill routes residual
// collateral to the forgone receiver, and a collateral shortfall leaves the
// unmet remainder with the initial bidder.
func (s *auctionHouse) BuyCollateral(ctx context.Context, id uint64, bidder string, bid decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	log := logger.FromContext(ctx).WithField("auction", id)

	if !bid.IsPositive() {
		return decimal.Zero, decimal.Zero, core.ErrNullBid
	}

	auction, err := s.auctions.Find(ctx, id)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return decimal.Zero, decimal.Zero, core.ErrAuctionNotFound
		}
		return decimal.Zero, decimal.Zero, err
	}
	if auction.SettledAt > 0 || auction.IsTerminal() {
		return decimal.Zero, decimal.Zero, core.ErrAuctionSettled
	}

	price, err := s.DiscountedCollateralPrice(ctx, auction)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, core.ErrInvalidPrice
	}

	// never take more than the auction still needs
	spent := number.Min(number.Wad(bid), number.RadToWadCeil(auction.AmountToRaise))
	bought := cdp.CollateralBought(spent, price)

	if bought.GreaterThan(auction.CollateralToSell) {
		bought = auction.CollateralToSell
		spent = number.Min(spent, number.RadToWadCeil(number.WadMulRay(bought, price)))
	}

	if !bought.IsPositive() {
		return decimal.Zero, decimal.Zero, core.ErrNullBid
	}

	prevCollateral := auction.CollateralToSell
	prevToRaise := auction.AmountToRaise

	auction.CollateralToSell = auction.CollateralToSell.Sub(bought)
	auction.AmountToRaise = auction.AmountToRaise.Sub(spent)
	if auction.AmountToRaise.IsNegative() {
		auction.AmountToRaise = decimal.Zero
	}

	// target met: residual collateral goes back to the forgone receiver.
	// collateral ran out short of the target: the unmet headroom is released
	// and the shortfall stays with the initial bidder.
	residual, shortfall := decimal.Zero, decimal.Zero
	if !auction.AmountToRaise.IsPositive() && auction.CollateralToSell.IsPositive() {
		residual = auction.CollateralToSell
		auction.CollateralToSell = decimal.Zero
	}
	if !auction.CollateralToSell.IsPositive() && auction.AmountToRaise.IsPositive() {
		shortfall = auction.AmountToRaise
		auction.AmountToRaise = decimal.Zero
	}

	if auction.IsTerminal() {
		auction.SettledAt = s.clock.Now().Unix()
	}

	// claim the fill on the auction row before any funds move. A lost version
	// race against a concurrent bid costs nothing: the bidder retries against
	// the fresh row, and the same collateral can never be sold twice.
	if err := s.db.Tx(func(tx *db.DB) error {
		return s.auctions.Update(ctx, tx, auction)
	}); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if err := s.ledger.TransferInternalCoins(ctx, bidder, bidder, auction.InitialBidder, spent); err != nil {
		// the claim is durable but the bidder never paid; put the row back so
		// the collateral stays on sale
		auction.CollateralToSell = prevCollateral
		auction.AmountToRaise = prevToRaise
		auction.SettledAt = 0
		if rerr := s.db.Tx(func(tx *db.DB) error {
			return s.auctions.Update(ctx, tx, auction)
		}); rerr != nil {
			log.WithError(rerr).Errorln("restore auction after failed payment")
		}
		return decimal.Zero, decimal.Zero, err
	}

	if err := s.ledger.TransferCollateral(ctx, s.Account(), auction.CollateralSymbol, s.Account(), bidder, bought); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if err := s.engine.RemoveCoinsFromAuction(ctx, s.Account(), spent); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if residual.IsPositive() {
		if err := s.ledger.TransferCollateral(ctx, s.Account(), auction.CollateralSymbol, s.Account(), auction.ForgoneCollateralReceiver, residual); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}

	if shortfall.IsPositive() {
		if err := s.engine.RemoveCoinsFromAuction(ctx, s.Account(), shortfall); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}

	if err := s.db.Tx(func(tx *db.DB) error {
		if err := s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventBuyCollateral, auction.CollateralSymbol, map[string]interface{}{
			"auction_id": auction.ID,
			"bidder":     bidder,
			"bought":     bought,
			"spent":      spent,
		})); err != nil {
			return err
		}

		if auction.SettledAt > 0 {
			return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventSettleAuction, auction.CollateralSymbol, map[string]interface{}{
				"auction_id": auction.ID,
			}))
		}

		return nil
	}); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	log.WithField("bidder", bidder).Infoln("collateral bought:", bought, "spent:", spent)
	return bought, spent, nil
}

func (s *auctionHouse) ModifyParameters(ctx context.Context, caller, key, value string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return core.ErrInvalidAmount
	}
	amount = number.Ray(amount)

	schedule, err := s.auctions.GetParams(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "minDiscount":
		if amount.GreaterThan(number.One) || amount.LessThan(schedule.MaxDiscount) {
			return core.ErrInvalidRatio
		}
		schedule.MinDiscount = amount
	case "maxDiscount":
		if !amount.IsPositive() || amount.GreaterThan(schedule.MinDiscount) {
			return core.ErrInvalidRatio
		}
		schedule.MaxDiscount = amount
	case "perSecondDiscountUpdateRate":
		if !amount.IsPositive() || amount.GreaterThan(number.One) {
			return core.ErrInvalidRatio
		}
		schedule.PerSecondDiscountUpdateRate = amount
	default:
		return core.ErrUnrecognizedParameter
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.auctions.UpdateParams(ctx, tx, schedule); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventModifyParameters, key, map[string]interface{}{
			"value": value,
		}))
	})
}
