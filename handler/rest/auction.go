package rest

import (
	"encoding/json"
	"net/http"

	"keel/core"
	"keel/handler/render"
	"keel/handler/request"
	"keel/handler/views"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

func auctionsHandler(auctions core.AuctionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fromID := cast.ToUint64(r.URL.Query().Get("from"))
		limit := cast.ToInt(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		var (
			list []*core.Auction
			err  error
		)
		if cast.ToBool(r.URL.Query().Get("active")) {
			list, err = auctions.ListActive(ctx, fromID, limit)
		} else {
			list, err = auctions.List(ctx, fromID, limit)
		}
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, list)
	}
}

func auctionHandler(auctions core.AuctionStore, house core.AuctionHouse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := cast.ToUint64(chi.URLParam(r, "id"))

		auction, err := auctions.Find(ctx, id)
		if err != nil {
			render.NotFoundRequest(w, core.ErrAuctionNotFound)
			return
		}

		view := &views.Auction{Auction: *auction}
		if price, err := house.DiscountedCollateralPrice(ctx, auction); err == nil {
			view.CurrentPrice = price
		}

		render.JSON(w, view)
	}
}

func bidHandler(house core.AuctionHouse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := cast.ToUint64(chi.URLParam(r, "id"))

		var body struct {
			Bid decimal.Decimal `json:"bid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.BadRequest(w, err)
			return
		}

		bidder := request.Caller(ctx)
		if bidder == "" {
			render.BadRequest(w, core.ErrNotAuthorized)
			return
		}

		bought, spent, err := house.BuyCollateral(ctx, id, bidder, body.Bid)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, render.H{
			"bought": bought,
			"spent":  spent,
		})
	}
}
