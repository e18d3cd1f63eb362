package request

import (
	"context"
	"net/http"
)

type key int

const (
	callerKey key = iota
)

// CallerHeader the header carrying the caller identity. There is no wallet
// or session layer here; upstream infrastructure authenticates and sets it.
const CallerHeader = "X-Caller"

// WithCaller middleware lifting the caller identity into the context
func WithCaller(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), callerKey, r.Header.Get(CallerHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	}

	return http.HandlerFunc(fn)
}

// Caller the caller identity, empty when unauthenticated
func Caller(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}
