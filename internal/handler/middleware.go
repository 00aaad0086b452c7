package handler

import (
	"context"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/danaru/lending-engine/internal/auth"
	"github.com/danaru/lending-engine/pkg/response"
)

type contextKey string

const partyKey contextKey = "party"

// PartyFrom returns the authenticated party stored in ctx, or nil.
func PartyFrom(ctx context.Context) *auth.Party {
	p, _ := ctx.Value(partyKey).(*auth.Party)
	return p
}

// Authenticate enforces a Bearer token and injects the party into context.
func Authenticate(manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Unauthorized(w, "missing authorization")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			party, err := manager.ParseToken(parts[1])
			if err != nil {
				response.Unauthorized(w, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), partyKey, party)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recoverer turns panics into 500 responses instead of dropped connections.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v\n%s", rec, debug.Stack())
				response.InternalServerError(w, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
