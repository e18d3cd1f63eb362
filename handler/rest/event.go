package rest

import (
	"net/http"

	"keel/core"
	"keel/handler/render"

	"github.com/spf13/cast"
)

func eventsHandler(events core.EventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fromID := cast.ToUint64(r.URL.Query().Get("from"))
		limit := cast.ToInt(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		var (
			list []*core.Event
			err  error
		)
		if eventType := r.URL.Query().Get("type"); eventType != "" {
			list, err = events.ListByType(ctx, eventType, fromID, limit)
		} else {
			list, err = events.List(ctx, fromID, limit)
		}
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, list)
	}
}
