package auth

import (
	"context"
	"net/http"

	"github.com/averho/chatgate/internal/api/apierr"
	"github.com/averho/chatgate/internal/model"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Middleware authenticates HTTP requests using the same extraction and
// verification chain as the websocket handshake, and places the resulting
// Identity on the request context.
func Middleware(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(ExtractToken(r))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a context carrying the identity
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the authenticated identity from a request
// context. ok is false when the request never passed the auth middleware.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}
