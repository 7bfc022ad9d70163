package auth

import (
	"errors"
	"net/http"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/json"
)

// Optional attaches the identity of a valid token to the request context.
// Requests without a token pass through as guests; an invalid token is refused.
func (v *Verifier) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := FromRequest(r)
		if errors.Is(err, ErrMissingToken) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			json.WriteUnauthorized(w, err)
			return
		}

		identity, err := v.Verify(raw)
		if err != nil {
			json.WriteUnauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.ContextWithIdentity(r.Context(), identity)))
	})
}

// Required refuses requests without a valid token.
func (v *Verifier) Required(next http.Handler) http.Handler {
	return v.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.IdentityFromContext(r.Context()); !ok {
			json.WriteUnauthorized(w, ErrMissingToken)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
