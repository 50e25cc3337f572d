package middleware

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const fidKey contextKey = "fid"

// Identity extracts the caller's fid from the X-Fid header or the fid query
// parameter. Identity resolution happens upstream; the fid is trusted as-is.
// Requests without one are rejected before touching any state.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Fid")
		if raw == "" {
			raw = r.URL.Query().Get("fid")
		}
		fid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || fid <= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "missing identity"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), fidKey, fid)))
	})
}

// WithFid injects a fid directly, bypassing header parsing. Handler tests
// use it to simulate an authenticated request.
func WithFid(ctx context.Context, fid int64) context.Context {
	return context.WithValue(ctx, fidKey, fid)
}

// FidFromContext returns the fid set by Identity, or 0 if absent.
func FidFromContext(ctx context.Context) int64 {
	if fid, ok := ctx.Value(fidKey).(int64); ok {
		return fid
	}
	return 0
}
