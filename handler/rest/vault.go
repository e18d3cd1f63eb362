package rest

import (
	"net/http"
	"strings"

	"keel/core"
	"keel/handler/render"
	"keel/handler/views"
	"keel/internal/cdp"
	"keel/pkg/number"

	"github.com/go-chi/chi"
	"github.com/spf13/cast"
)

func vaultsHandler(vaults core.VaultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

		fromID := cast.ToUint64(r.URL.Query().Get("from"))
		limit := cast.ToInt(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		list, err := vaults.ListByCollateral(ctx, symbol, fromID, limit)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, list)
	}
}

func vaultHandler(collaterals core.CollateralStore, vaults core.VaultStore, engine core.LiquidationEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		owner := chi.URLParam(r, "owner")

		collateral, err := collaterals.Find(ctx, symbol)
		if err != nil {
			render.NotFoundRequest(w, core.ErrCollateralNotInitialized)
			return
		}

		vault, err := vaults.FindOrZero(ctx, symbol, owner)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		view := &views.Vault{
			Vault:           *vault,
			CollateralValue: number.WadMulRay(vault.LockedCollateral, collateral.LiquidationPrice),
			DebtValue:       number.WadMulRay(vault.GeneratedDebt, collateral.AccumulatedRate),
			Unsafe:          cdp.IsUnsafe(vault.LockedCollateral, collateral.LiquidationPrice, vault.GeneratedDebt, collateral.AccumulatedRate),
		}

		if view.Unsafe {
			if debt, err := engine.GetLimitAdjustedDebtToCover(ctx, symbol, owner); err == nil {
				view.LiquidatableDebt = debt
			}
		}

		render.JSON(w, view)
	}
}
