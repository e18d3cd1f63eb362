package relay

import (
	"context"

	"keel/core"
	"keel/pkg/number"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type relayService struct {
	db     *db.DB
	system *core.System
	clock  clock.Clock
	relays core.RelayStore
	feed   core.PriceFeed
	ledger core.Ledger
	events core.EventStore
	auth   *core.AuthSet
}

// New new relay service
func New(
	db *db.DB,
	system *core.System,
	clk clock.Clock,
	relays core.RelayStore,
	feed core.PriceFeed,
	ledger core.Ledger,
	events core.EventStore,
) core.Relay {
	return &relayService{
		db:     db,
		system: system,
		clock:  clk,
		relays: relays,
		feed:   feed,
		ledger: ledger,
		events: events,
		auth:   core.NewAuthSet(),
	}
}

func (s *relayService) AllowCaller(caller string) {
	s.auth.Allow(caller)
}

func (s *relayService) DenyCaller(caller string) {
	s.auth.Deny(caller)
}

func (s *relayService) authorized(caller string) bool {
	return s.system.IsAdmin(caller) || s.auth.Contains(caller)
}

// RedemptionPrice compounds price by rate^elapsed and persists the result.
// At most one compounding happens per distinct timestamp; repeated calls
// within the same second read the stored value.
func (s *relayService) RedemptionPrice(ctx context.Context) (decimal.Decimal, error) {
	state, err := s.relays.GetRedemption(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	now := s.clock.Now().Unix()
	if now <= state.UpdateTime {
		return state.Price, nil
	}

	price := number.RayMul(state.Price, number.RayPow(state.Rate, now-state.UpdateTime))
	if !price.IsPositive() {
		price = number.RaySmallest
	}

	state.Price = price
	state.UpdateTime = now

	if err := s.db.Tx(func(tx *db.DB) error {
		return s.relays.UpdateRedemption(ctx, tx, state)
	}); err != nil {
		return decimal.Zero, err
	}

	return price, nil
}

// UpdateCollateralPrice reads the feed and pushes the two risk-adjusted
// prices into the ledger. An invalid or non-positive observation pushes
// zero prices so no new debt can be drawn against the collateral until the
// feed recovers.
func (s *relayService) UpdateCollateralPrice(ctx context.Context, symbol string) error {
	log := logger.FromContext(ctx).WithField("service", "relay")

	params, err := s.relays.FindParams(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	price, valid, err := s.feed.Read(ctx, symbol)
	if err != nil {
		return err
	}

	redemptionPrice, err := s.RedemptionPrice(ctx)
	if err != nil {
		return err
	}

	safetyPrice, liquidationPrice := decimal.Zero, decimal.Zero
	if valid && price.IsPositive() {
		adjusted := number.RayDiv(price, redemptionPrice)
		safetyPrice = number.RayDiv(adjusted, params.SafetyRatio)
		liquidationPrice = number.RayDiv(adjusted, params.LiquidationRatio)
	} else {
		log.WithField("symbol", symbol).Infoln("invalid observation, pushing zero prices")
	}

	if err := s.db.Tx(func(tx *db.DB) error {
		return s.relays.UpsertObservation(ctx, tx, symbol, price, valid)
	}); err != nil {
		return err
	}

	return s.ledger.UpdateCollateralPrice(ctx, core.OracleRelayAccount, symbol, safetyPrice, liquidationPrice)
}

func (s *relayService) InitCollateral(ctx context.Context, caller, symbol string, safetyRatio, liquidationRatio decimal.Decimal) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	if liquidationRatio.LessThan(number.One) || safetyRatio.LessThan(liquidationRatio) {
		return core.ErrInvalidRatio
	}

	return s.db.Tx(func(tx *db.DB) error {
		params := &core.RelayParams{
			CollateralSymbol: symbol,
			SafetyRatio:      number.Ray(safetyRatio),
			LiquidationRatio: number.Ray(liquidationRatio),
		}
		return s.relays.CreateParams(ctx, tx, params)
	})
}

func (s *relayService) ModifyParameters(ctx context.Context, caller, symbol, key, value string) error {
	if !s.authorized(caller) {
		return core.ErrNotAuthorized
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return core.ErrInvalidAmount
	}
	amount = number.Ray(amount)

	if symbol == "" {
		return s.modifyGlobal(ctx, key, amount, value)
	}

	params, err := s.relays.FindParams(ctx, symbol)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrCollateralNotInitialized
		}
		return err
	}

	switch key {
	case "safetyRatio":
		if amount.LessThan(params.LiquidationRatio) {
			return core.ErrInvalidRatio
		}
		params.SafetyRatio = amount
	case "liquidationRatio":
		if amount.LessThan(number.One) || amount.GreaterThan(params.SafetyRatio) {
			return core.ErrInvalidRatio
		}
		params.LiquidationRatio = amount
	default:
		return core.ErrUnrecognizedParameter
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.relays.UpdateParams(ctx, tx, params); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventModifyParameters, symbol+"/"+key, map[string]interface{}{
			"value": value,
		}))
	})
}

func (s *relayService) modifyGlobal(ctx context.Context, key string, amount decimal.Decimal, value string) error {
	state, err := s.relays.GetRedemption(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "redemptionRate":
		// the rate only changes against a price compounded this second,
		// otherwise the pending drift would be rewritten retroactively
		if state.UpdateTime != s.clock.Now().Unix() {
			return core.ErrRedemptionPriceNotUpdated
		}
		if amount.LessThan(state.RateLowerBound) || amount.GreaterThan(state.RateUpperBound) {
			return core.ErrRedemptionRateOutOfBounds
		}
		state.Rate = amount
	case "redemptionRateLowerBound":
		if !amount.IsPositive() || amount.GreaterThan(number.One) {
			return core.ErrInvalidAmount
		}
		state.RateLowerBound = amount
	case "redemptionRateUpperBound":
		if amount.LessThan(number.One) {
			return core.ErrInvalidAmount
		}
		state.RateUpperBound = amount
	default:
		return core.ErrUnrecognizedParameter
	}

	return s.db.Tx(func(tx *db.DB) error {
		if err := s.relays.UpdateRedemption(ctx, tx, state); err != nil {
			return err
		}

		return s.events.Create(ctx, tx, core.NewEvent(uuid.New(), core.EventRedemptionPrice, key, map[string]interface{}{
			"value": value,
		}))
	})
}
