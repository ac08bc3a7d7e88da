package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ferrylane/authflow"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity stored by [Guard].
func IdentityFromContext(ctx context.Context) (*authflow.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authflow.Identity)
	return id, ok
}

// Guard returns middleware that rejects requests without a valid bearer
// access token. Rejections are uniform 401s; the reason is never exposed to
// the client.
func Guard(engine *authflow.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
