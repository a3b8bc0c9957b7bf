package middleware

import (
	"context"
	"net/http"

	"github.com/darmiel/localhub/internal/api/presenter"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
)

type principalKey struct{}

// PrincipalCtx returns the principal attached by RequireUser, or the unscoped principal.
func PrincipalCtx(ctx context.Context) core.Principal {
	p, _ := ctx.Value(principalKey{}).(core.Principal)
	return p
}

func WithPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequireUser rejects requests without a valid X-User-Id header and attaches the
// resulting principal to the request context.
// The header is an opaque identifier, not a credential.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := ident.RequirePrincipal(r.Header.Get(ident.UserIDHeader))
		if err != nil {
			presenter.Error(w, r, "Missing or invalid X-User-Id header", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
