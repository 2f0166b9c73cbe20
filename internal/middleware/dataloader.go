package middleware

import (
	"context"
	"net/http"

	"github.com/mhollis/dealflow/internal/partyloader"
	"github.com/mhollis/dealflow/internal/repository"
)

type ctxKey string

const partyLoaderKey ctxKey = "partyLoader"

// PartyLoaderMiddleware attaches a per-request party loader to the
// request context.
func PartyLoaderMiddleware(repo repository.PartyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Create the party loader
			loader := partyloader.NewPartyLoader(repo)

			ctx := context.WithValue(r.Context(), partyLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PartyLoaderFromContext retrieves the party loader from context
func PartyLoaderFromContext(ctx context.Context) *partyloader.PartyLoader {
	if l, ok := ctx.Value(partyLoaderKey).(*partyloader.PartyLoader); ok {
		return l
	}
	return nil
}
