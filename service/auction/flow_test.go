package auction

import (
	"context"
	"testing"
	"time"

	"keel/core"
	ledgerservice "keel/service/ledger"
	liquidationservice "keel/service/liquidation"
	auctionstore "keel/store/auction"
	balancestore "keel/store/balance"
	collateralstore "keel/store/collateral"
	eventstore "keel/store/event"
	ledgerstatestore "keel/store/ledgerstate"
	liquidationstore "keel/store/liquidation"
	oraclestore "keel/store/oracle"
	vaultstore "keel/store/vault"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/store/db"
	"github.com/stretchr/testify/require"
)

// world wires the house with real stores over an in-memory database. The
// decorate hook lets a test interpose on the auction store.
type world struct {
	conn         *db.DB
	clk          *clock.Mock
	ledger       core.Ledger
	engine       core.LiquidationEngine
	house        core.AuctionHouse
	relays       core.RelayStore
	auctions     core.AuctionStore
	balances     core.BalanceStore
	liquidations core.LiquidationStore
	events       core.EventStore
}

func newWorld(t *testing.T, decorate func(core.AuctionStore) core.AuctionStore) *world {
	conn := db.MustOpen(db.SqliteInMemory())
	t.Cleanup(func() { _ = conn.Close() })
	require.Nil(t, db.Migrate(conn))

	system := &core.System{Admins: []string{"admin"}}
	clk := clock.NewMock()

	collaterals := collateralstore.New(conn)
	vaults := vaultstore.New(conn)
	balances := balancestore.New(conn)
	states := ledgerstatestore.New(conn)
	relays := oraclestore.New(conn)
	liquidations := liquidationstore.New(conn)
	auctions := auctionstore.New(conn)
	if decorate != nil {
		auctions = decorate(auctions)
	}
	events := eventstore.New(conn)

	ledger := ledgerservice.New(conn, system, states, collaterals, vaults, balances, events)
	venues := core.NewVenueRegistry()
	engine := liquidationservice.New(conn, system, ledger, collaterals, vaults, liquidations, nil, venues, events)
	house := New(conn, system, clk, ledger, &fakeRelay{redemptionPrice: d("2")}, relays, auctions, engine, events)
	venues.Register(house)

	ledger.AllowCaller(core.AuctionHouseAccount)
	engine.AllowCaller(core.AuctionHouseAccount)
	house.AllowCaller(core.LiquidationEngineAccount)

	return &world{
		conn:         conn,
		clk:          clk,
		ledger:       ledger,
		engine:       engine,
		house:        house,
		relays:       relays,
		auctions:     auctions,
		balances:     balances,
		liquidations: liquidations,
		events:       events,
	}
}

// seedLot puts 1 GOLD in the house's custody, funds the bidder, reserves
// 100 coins of on-auction headroom and opens an auction raising 100 against
// the lot under a 0.95/0.90/0.99 discount schedule.
func seedLot(t *testing.T, ctx context.Context, w *world) uint64 {
	require.Nil(t, w.ledger.InitCollateralType(ctx, "admin", "GOLD"))
	require.Nil(t, w.ledger.ModifyCollateralBalance(ctx, "admin", "GOLD", core.AuctionHouseAccount, d("1")))
	require.Nil(t, w.ledger.CreateUnbackedDebt(ctx, "admin", core.AccountingEngineAccount, "bidder", d("1000")))

	require.Nil(t, w.conn.Tx(func(tx *db.DB) error {
		return w.relays.UpsertObservation(ctx, tx, "GOLD", d("100"), true)
	}))

	require.Nil(t, w.engine.ModifyParameters(ctx, "admin", "", "onAuctionSystemCoinLimit", "1000"))
	state, err := w.liquidations.GetState(ctx)
	require.Nil(t, err)
	require.Nil(t, w.conn.Tx(func(tx *db.DB) error {
		state.CurrentOnAuctionCoins = d("100")
		return w.liquidations.UpdateState(ctx, tx, state)
	}))

	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "maxDiscount", "0.90"))
	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "minDiscount", "0.95"))
	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "perSecondDiscountUpdateRate", "0.99"))

	id, err := w.house.StartAuction(ctx, "admin", core.StartAuctionParams{
		CollateralSymbol:          "GOLD",
		CollateralToSell:          d("1"),
		AmountToRaise:             d("100"),
		ForgoneCollateralReceiver: "alice",
		InitialBidder:             core.AccountingEngineAccount,
	})
	require.Nil(t, err)
	return id
}

func TestBuyCollateralFlow(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, nil)
	id := seedLot(t, ctx, w)

	// one decay step: 100/2 * 0.95 * 0.99 = 47.025 per unit
	w.clk.Add(time.Second)

	bought, spent, err := w.house.BuyCollateral(ctx, id, "bidder", d("60"))
	require.Nil(t, err)
	require.Equal(t, "1", bought.String())
	require.Equal(t, "47.025", spent.String())

	// the bidder paid the initial bidder and took custody of the lot
	coin, err := w.balances.FindCoin(ctx, "bidder")
	require.Nil(t, err)
	require.Equal(t, "952.975", coin.Balance.String())

	proceeds, err := w.balances.FindCoin(ctx, core.AccountingEngineAccount)
	require.Nil(t, err)
	require.Equal(t, "47.025", proceeds.Balance.String())

	gem, err := w.balances.FindCollateral(ctx, "GOLD", "bidder")
	require.Nil(t, err)
	require.Equal(t, "1", gem.Balance.String())

	houseGem, err := w.balances.FindCollateral(ctx, "GOLD", core.AuctionHouseAccount)
	require.Nil(t, err)
	require.True(t, houseGem.Balance.IsZero())

	// 47.025 raised plus the 52.975 shortfall: the whole reservation came
	// back off the counter
	state, err := w.liquidations.GetState(ctx)
	require.Nil(t, err)
	require.True(t, state.CurrentOnAuctionCoins.IsZero())

	auction, err := w.auctions.Find(ctx, id)
	require.Nil(t, err)
	require.True(t, auction.CollateralToSell.IsZero())
	require.True(t, auction.AmountToRaise.IsZero())
	require.NotZero(t, auction.SettledAt)

	buys, err := w.events.ListByType(ctx, core.EventBuyCollateral, 0, 10)
	require.Nil(t, err)
	require.Len(t, buys, 1)
	settles, err := w.events.ListByType(ctx, core.EventSettleAuction, 0, 10)
	require.Nil(t, err)
	require.Len(t, settles, 1)

	_, _, err = w.house.BuyCollateral(ctx, id, "bidder", d("10"))
	require.Equal(t, core.ErrAuctionSettled, err)
}

// racingAuctions drops the first row update on the floor the way a lost
// optimistic-lock race against a concurrent bid would.
type racingAuctions struct {
	core.AuctionStore
	losses int
}

func (r *racingAuctions) Update(ctx context.Context, tx *db.DB, auction *core.Auction) error {
	if r.losses > 0 {
		r.losses--
		return core.ErrOptimisticLock
	}
	return r.AuctionStore.Update(ctx, tx, auction)
}

func TestBuyCollateralLostRaceMovesNoFunds(t *testing.T) {
	ctx := context.Background()
	racing := &racingAuctions{losses: 1}
	w := newWorld(t, func(s core.AuctionStore) core.AuctionStore {
		racing.AuctionStore = s
		return racing
	})
	id := seedLot(t, ctx, w)

	w.clk.Add(time.Second)

	// the first bid loses the claim race; no payment, no collateral, and
	// the row still carries the full lot
	_, _, err := w.house.BuyCollateral(ctx, id, "bidder", d("60"))
	require.Equal(t, core.ErrOptimisticLock, err)

	coin, err := w.balances.FindCoin(ctx, "bidder")
	require.Nil(t, err)
	require.Equal(t, "1000", coin.Balance.String())

	gem, err := w.balances.FindCollateral(ctx, "GOLD", "bidder")
	require.Nil(t, err)
	require.True(t, gem.Balance.IsZero())

	auction, err := w.auctions.Find(ctx, id)
	require.Nil(t, err)
	require.Equal(t, "1", auction.CollateralToSell.String())
	require.Equal(t, "100", auction.AmountToRaise.String())
	require.Zero(t, auction.SettledAt)

	// the retry sells the lot exactly once
	bought, spent, err := w.house.BuyCollateral(ctx, id, "bidder", d("60"))
	require.Nil(t, err)
	require.Equal(t, "1", bought.String())
	require.Equal(t, "47.025", spent.String())

	coin, err = w.balances.FindCoin(ctx, "bidder")
	require.Nil(t, err)
	require.Equal(t, "952.975", coin.Balance.String())

	gem, err = w.balances.FindCollateral(ctx, "GOLD", "bidder")
	require.Nil(t, err)
	require.Equal(t, "1", gem.Balance.String())
}

func TestModifyDiscountSchedule(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, nil)

	err := w.house.ModifyParameters(ctx, "mallory", "minDiscount", "0.95")
	require.Equal(t, core.ErrNotAuthorized, err)

	err = w.house.ModifyParameters(ctx, "admin", "minDiscount", "not-a-number")
	require.Equal(t, core.ErrInvalidAmount, err)

	// schedule starts at 1/1; max must move down before min can
	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "maxDiscount", "0.90"))
	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "minDiscount", "0.95"))
	require.Nil(t, w.house.ModifyParameters(ctx, "admin", "perSecondDiscountUpdateRate", "0.99"))

	// min stays within (max, 1]
	err = w.house.ModifyParameters(ctx, "admin", "minDiscount", "1.01")
	require.Equal(t, core.ErrInvalidRatio, err)
	err = w.house.ModifyParameters(ctx, "admin", "minDiscount", "0.89")
	require.Equal(t, core.ErrInvalidRatio, err)

	// max never exceeds min
	err = w.house.ModifyParameters(ctx, "admin", "maxDiscount", "0.96")
	require.Equal(t, core.ErrInvalidRatio, err)
	err = w.house.ModifyParameters(ctx, "admin", "maxDiscount", "0")
	require.Equal(t, core.ErrInvalidRatio, err)

	// the decay rate lives in (0, 1]
	err = w.house.ModifyParameters(ctx, "admin", "perSecondDiscountUpdateRate", "1.01")
	require.Equal(t, core.ErrInvalidRatio, err)

	err = w.house.ModifyParameters(ctx, "admin", "unknownKey", "1")
	require.Equal(t, core.ErrUnrecognizedParameter, err)

	// the schedule is a stored row, not service memory
	params, err := w.auctions.GetParams(ctx)
	require.Nil(t, err)
	require.Equal(t, "0.95", params.MinDiscount.String())
	require.Equal(t, "0.9", params.MaxDiscount.String())
	require.Equal(t, "0.99", params.PerSecondDiscountUpdateRate.String())

	// a house built fresh over the same database snapshots the stored
	// schedule into new auctions
	system := &core.System{Admins: []string{"admin"}}
	rebuilt := New(w.conn, system, clock.NewMock(), w.ledger, &fakeRelay{redemptionPrice: d("2")}, w.relays, w.auctions, w.engine, w.events)

	id, err := rebuilt.StartAuction(ctx, "admin", core.StartAuctionParams{
		CollateralSymbol:          "GOLD",
		CollateralToSell:          d("1"),
		AmountToRaise:             d("100"),
		ForgoneCollateralReceiver: "alice",
		InitialBidder:             core.AccountingEngineAccount,
	})
	require.Nil(t, err)

	auction, err := w.auctions.Find(ctx, id)
	require.Nil(t, err)
	require.Equal(t, "0.95", auction.MinDiscount.String())
	require.Equal(t, "0.9", auction.MaxDiscount.String())
	require.Equal(t, "0.99", auction.PerSecondDiscountUpdateRate.String())
}
