package rest

import (
	"errors"
	"net/http"

	"keel/core"
	"keel/handler/render"
	"keel/handler/request"

	"github.com/go-chi/chi"
)

// Deps everything the rest api reads and drives
type Deps struct {
	System      *core.System
	Collaterals core.CollateralStore
	Vaults      core.VaultStore
	Auctions    core.AuctionStore
	Events      core.EventStore
	Relays      core.RelayStore

	Ledger core.Ledger
	Relay  core.Relay
	Engine core.LiquidationEngine
	House  core.AuctionHouse
}

// Handle handle rest api request
func Handle(deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(request.WithCaller)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/collaterals", allCollateralsHandler(deps.Collaterals, deps.Relays))
	router.Get("/collaterals/{symbol}", collateralHandler(deps.Collaterals, deps.Relays))
	router.Get("/vaults/{symbol}", vaultsHandler(deps.Vaults))
	router.Get("/vaults/{symbol}/{owner}", vaultHandler(deps.Collaterals, deps.Vaults, deps.Engine))
	router.Get("/auctions", auctionsHandler(deps.Auctions))
	router.Get("/auctions/{id}", auctionHandler(deps.Auctions, deps.House))
	router.Post("/auctions/{id}/bids", bidHandler(deps.House))
	router.Post("/liquidations", liquidateHandler(deps.Engine))
	router.Get("/redemption", redemptionHandler(deps.Relays, deps.Relay))
	router.Get("/events", eventsHandler(deps.Events))
	router.Post("/parameters", parametersHandler(deps))

	return router
}
