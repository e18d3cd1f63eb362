package cmd

import (
	"keel/core"
	accountingservice "keel/service/accounting"
	auctionservice "keel/service/auction"
	ledgerservice "keel/service/ledger"
	liquidationservice "keel/service/liquidation"
	oracleservice "keel/service/oracle"
	relayservice "keel/service/relay"
	auctionstore "keel/store/auction"
	balancestore "keel/store/balance"
	collateralstore "keel/store/collateral"
	debtqueuestore "keel/store/debtqueue"
	eventstore "keel/store/event"
	ledgerstatestore "keel/store/ledgerstate"
	liquidationstore "keel/store/liquidation"
	oraclestore "keel/store/oracle"
	vaultstore "keel/store/vault"
	"keel/worker/keeper"

	"github.com/facebookgo/clock"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideSystem(ver string) *core.System {
	return &core.System{
		Admins:   cfg.Admins,
		Genesis:  cfg.App.Genesis,
		Location: cfg.App.Location,
		Version:  ver,
	}
}

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

// engines bundles every constructed component with its wiring applied.
type engines struct {
	collaterals core.CollateralStore
	vaults      core.VaultStore
	balances    core.BalanceStore
	states      core.LedgerStateStore
	relays      core.RelayStore
	auctions    core.AuctionStore
	events      core.EventStore

	ledger     core.Ledger
	relay      core.Relay
	engine     core.LiquidationEngine
	house      core.AuctionHouse
	accounting core.AccountingEngine
}

// provideEngines builds the whole object graph. The authorized-caller wiring
// at the bottom is the capability map of the system: the relay may push
// prices, the engine may confiscate, the venue may move custody funds and
// release on-auction headroom.
func provideEngines(db *db.DB, system *core.System) *engines {
	clk := clock.New()

	collaterals := collateralstore.New(db)
	vaults := vaultstore.New(db)
	balances := balancestore.New(db)
	states := ledgerstatestore.New(db)
	relays := oraclestore.New(db)
	liquidations := liquidationstore.New(db)
	auctions := auctionstore.New(db)
	events := eventstore.New(db)
	queue := debtqueuestore.New(db)

	ledger := ledgerservice.New(db, system, states, collaterals, vaults, balances, events)
	feed := oracleservice.New(&cfg)
	relay := relayservice.New(db, system, clk, relays, feed, ledger, events)
	accounting := accountingservice.New(db, ledger, queue, events)

	venues := core.NewVenueRegistry()
	engine := liquidationservice.New(db, system, ledger, collaterals, vaults, liquidations, accounting, venues, events)
	house := auctionservice.New(db, system, clk, ledger, relay, relays, auctions, engine, events)
	venues.Register(house)

	ledger.AllowCaller(core.OracleRelayAccount)
	ledger.AllowCaller(core.LiquidationEngineAccount)
	ledger.AllowCaller(core.AuctionHouseAccount)
	ledger.AllowCaller(core.AccountingEngineAccount)
	engine.AllowCaller(core.AuctionHouseAccount)
	house.AllowCaller(core.LiquidationEngineAccount)

	return &engines{
		collaterals: collaterals,
		vaults:      vaults,
		balances:    balances,
		states:      states,
		relays:      relays,
		auctions:    auctions,
		events:      events,

		ledger:     ledger,
		relay:      relay,
		engine:     engine,
		house:      house,
		accounting: accounting,
	}
}

func provideKeeperWorker(db *db.DB, e *engines) *keeper.Worker {
	w := keeper.New(providePropertyStore(db), e.collaterals, e.vaults, e.engine, cfg.Worker.KeeperBatch)
	w.Delay = cfg.Worker.KeeperInterval
	return w
}
