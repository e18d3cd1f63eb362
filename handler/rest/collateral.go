package rest

import (
	"net/http"
	"strings"

	"keel/core"
	"keel/handler/render"
	"keel/handler/views"

	"github.com/go-chi/chi"
)

func allCollateralsHandler(collaterals core.CollateralStore, relays core.RelayStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		all, err := collaterals.All(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		collateralViews := make([]*views.Collateral, 0, len(all))
		for _, c := range all {
			collateralViews = append(collateralViews, collateralView(r, relays, c))
		}

		render.JSON(w, collateralViews)
	}
}

func collateralHandler(collaterals core.CollateralStore, relays core.RelayStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

		collateral, err := collaterals.Find(ctx, symbol)
		if err != nil {
			render.NotFoundRequest(w, core.ErrCollateralNotInitialized)
			return
		}

		render.JSON(w, collateralView(r, relays, collateral))
	}
}

func collateralView(r *http.Request, relays core.RelayStore, collateral *core.CollateralType) *views.Collateral {
	view := &views.Collateral{CollateralType: *collateral}
	if observation, err := relays.FindObservation(r.Context(), collateral.Symbol); err == nil {
		view.MarketPrice = observation.Price
		view.PriceValid = observation.Valid
	}

	return view
}
