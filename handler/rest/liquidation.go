package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"keel/core"
	"keel/handler/render"
	"keel/handler/request"
)

func liquidateHandler(engine core.LiquidationEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body struct {
			Collateral string `json:"collateral"`
			Owner      string `json:"owner"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.BadRequest(w, err)
			return
		}

		keeper := request.Caller(ctx)
		if keeper == "" {
			render.BadRequest(w, core.ErrNotAuthorized)
			return
		}

		auctionID, err := engine.Liquidate(ctx, keeper, strings.ToUpper(body.Collateral), body.Owner)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, render.H{
			"auction_id": auctionID,
			"rescued":    auctionID == 0,
		})
	}
}
