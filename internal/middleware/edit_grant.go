package middleware

import (
	"context"
	"net/http"
	"strings"

	"cashgame/internal/auth"
)

const EditGrantHeader = "X-Edit-Grant"

// EditGrants turns X-Edit-Grant tokens into per-register edit grants. It must
// run after Auth: grants are bound to the operator they were issued to. A
// request may carry several grants, as repeated headers or comma separated.
func EditGrants(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := r.Header.Values(EditGrantHeader)
			if len(values) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			grants := make(map[string]bool)
			for _, value := range values {
				for _, raw := range strings.Split(value, ",") {
					raw = strings.TrimSpace(raw)
					if raw == "" {
						continue
					}
					registerID, err := auth.ParseEditGrant(secret, raw, userID)
					if err != nil {
						http.Error(w, "invalid edit grant", http.StatusUnauthorized)
						return
					}
					grants[registerID] = true
				}
			}
			next.ServeHTTP(w, r.WithContext(contextWithGrants(r.Context(), grants)))
		})
	}
}

func contextWithGrants(ctx context.Context, grants map[string]bool) context.Context {
	return context.WithValue(ctx, editGrantsKey, grants)
}
