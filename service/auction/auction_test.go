package auction

import (
	"context"
	"testing"
	"time"

	"keel/core"
	"keel/pkg/number"

	"github.com/facebookgo/clock"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRelays struct {
	core.RelayStore
	observations map[string]*core.PriceObservation
}

func (f *fakeRelays) FindObservation(ctx context.Context, symbol string) (*core.PriceObservation, error) {
	if o, ok := f.observations[symbol]; ok {
		return o, nil
	}
	return &core.PriceObservation{CollateralSymbol: symbol, Price: decimal.Zero}, nil
}

type fakeRelay struct {
	core.Relay
	redemptionPrice decimal.Decimal
}

func (f *fakeRelay) RedemptionPrice(ctx context.Context) (decimal.Decimal, error) {
	return f.redemptionPrice, nil
}

type fakeAuctions struct {
	core.AuctionStore
	m map[uint64]*core.Auction
}

func (f *fakeAuctions) Find(ctx context.Context, id uint64) (*core.Auction, error) {
	if a, ok := f.m[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func d(v string) decimal.Decimal {
	return number.Decimal(v)
}

func newTestHouse(relays *fakeRelays, auctions *fakeAuctions, mock *clock.Mock) core.AuctionHouse {
	system := &core.System{Admins: []string{"admin"}}
	relay := &fakeRelay{redemptionPrice: d("2")}
	return New(nil, system, mock, nil, relay, relays, auctions, nil, nil)
}

func goldObservation() *fakeRelays {
	return &fakeRelays{observations: map[string]*core.PriceObservation{
		"GOLD": {CollateralSymbol: "GOLD", Price: d("100"), Valid: true},
	}}
}

func TestStartAuctionGates(t *testing.T) {
	ctx := context.Background()
	house := newTestHouse(goldObservation(), &fakeAuctions{}, clock.NewMock())

	_, err := house.StartAuction(ctx, "mallory", core.StartAuctionParams{
		CollateralSymbol: "GOLD",
		CollateralToSell: d("1"),
		AmountToRaise:    d("100"),
	})
	require.Equal(t, core.ErrNotAuthorized, err)

	_, err = house.StartAuction(ctx, "admin", core.StartAuctionParams{
		CollateralSymbol: "GOLD",
		CollateralToSell: decimal.Zero,
		AmountToRaise:    d("100"),
	})
	require.Equal(t, core.ErrInvalidAmount, err)
}

func TestDiscountedCollateralPrice(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	house := newTestHouse(goldObservation(), &fakeAuctions{}, mock)

	auction := &core.Auction{
		CollateralSymbol:            "GOLD",
		CollateralToSell:            d("1"),
		AmountToRaise:               d("100"),
		MinDiscount:                 d("0.95"),
		MaxDiscount:                 d("0.90"),
		PerSecondDiscountUpdateRate: d("0.99"),
		StartedAt:                   mock.Now().Unix(),
	}

	// at start: market 100 over redemption 2, discounted by 0.95
	price, err := house.DiscountedCollateralPrice(ctx, auction)
	require.Nil(t, err)
	require.Equal(t, "47.5", price.String())

	// a second later the discount has decayed once: 50 * 0.95 * 0.99
	mock.Add(time.Second)
	price, err = house.DiscountedCollateralPrice(ctx, auction)
	require.Nil(t, err)
	require.Equal(t, "47.025", price.String())

	// far into the auction the decay is floored at maxDiscount
	mock.Add(10 * time.Minute)
	price, err = house.DiscountedCollateralPrice(ctx, auction)
	require.Nil(t, err)
	require.Equal(t, "45", price.String())
}

func TestDiscountedCollateralPriceInvalidObservation(t *testing.T) {
	ctx := context.Background()
	relays := goldObservation()
	relays.observations["GOLD"].Valid = false
	house := newTestHouse(relays, &fakeAuctions{}, clock.NewMock())

	_, err := house.DiscountedCollateralPrice(ctx, &core.Auction{CollateralSymbol: "GOLD"})
	require.Equal(t, core.ErrInvalidPrice, err)
}

func TestBuyCollateralRejections(t *testing.T) {
	ctx := context.Background()
	auctions := &fakeAuctions{m: map[uint64]*core.Auction{
		1: {
			ID:                          1,
			CollateralSymbol:            "GOLD",
			CollateralToSell:            d("1"),
			AmountToRaise:               d("100"),
			MinDiscount:                 d("0.95"),
			MaxDiscount:                 d("0.90"),
			PerSecondDiscountUpdateRate: d("0.99"),
		},
		2: {
			ID:               2,
			CollateralSymbol: "GOLD",
			CollateralToSell: d("1"),
			AmountToRaise:    d("100"),
			SettledAt:        42,
		},
		3: {
			ID:               3,
			CollateralSymbol: "GOLD",
			CollateralToSell: d("1"),
			AmountToRaise:    decimal.Zero,
		},
	}}
	relays := goldObservation()
	house := newTestHouse(relays, auctions, clock.NewMock())

	_, _, err := house.BuyCollateral(ctx, 1, "bidder", decimal.Zero)
	require.Equal(t, core.ErrNullBid, err)

	_, _, err = house.BuyCollateral(ctx, 99, "bidder", d("10"))
	require.Equal(t, core.ErrAuctionNotFound, err)

	_, _, err = house.BuyCollateral(ctx, 2, "bidder", d("10"))
	require.Equal(t, core.ErrAuctionSettled, err)

	// both-sides-positive is what keeps an auction alive; a raised target is
	// terminal even before settlement is recorded
	_, _, err = house.BuyCollateral(ctx, 3, "bidder", d("10"))
	require.Equal(t, core.ErrAuctionSettled, err)

	relays.observations["GOLD"].Valid = false
	_, _, err = house.BuyCollateral(ctx, 1, "bidder", d("10"))
	require.Equal(t, core.ErrInvalidPrice, err)
}
