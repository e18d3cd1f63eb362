package rest

import (
	"net/http"

	"keel/core"
	"keel/handler/render"
	"keel/handler/views"
)

func redemptionHandler(relays core.RelayStore, relay core.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		state, err := relays.GetRedemption(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		price, err := relay.RedemptionPrice(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, &views.Redemption{
			RedemptionState: *state,
			CurrentPrice:    price,
		})
	}
}
