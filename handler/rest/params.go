package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"keel/core"
	"keel/handler/render"
	"keel/handler/request"
)

// parametersHandler routes a governance parameter update to the owning
// engine. The caller identity is checked downstream against admin/auth sets.
func parametersHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body struct {
			Module     string `json:"module"`
			Collateral string `json:"collateral"`
			Key        string `json:"key"`
			Value      string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			render.BadRequest(w, err)
			return
		}

		caller := request.Caller(ctx)
		if caller == "" {
			render.BadRequest(w, core.ErrNotAuthorized)
			return
		}

		symbol := strings.ToUpper(body.Collateral)

		var err error
		switch body.Module {
		case "ledger":
			err = deps.Ledger.ModifyParameters(ctx, caller, symbol, body.Key, body.Value)
		case "relay":
			err = deps.Relay.ModifyParameters(ctx, caller, symbol, body.Key, body.Value)
		case "liquidation":
			err = deps.Engine.ModifyParameters(ctx, caller, symbol, body.Key, body.Value)
		case "auction":
			err = deps.House.ModifyParameters(ctx, caller, body.Key, body.Value)
		default:
			err = core.ErrUnrecognizedParameter
		}
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, render.H{"ok": true})
	}
}
