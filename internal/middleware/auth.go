package middleware

import (
	"context"
	"net/http"
	"strings"

	"cashgame/internal/auth"
)

type contextKey string

const (
	userIDKey     contextKey = "user_id"
	editGrantsKey contextKey = "edit_grants"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ActorFromContext assembles the operator identity and any edit grants the
// request carried.
func ActorFromContext(ctx context.Context) auth.Actor {
	userID, _ := UserIDFromContext(ctx)
	grants, _ := ctx.Value(editGrantsKey).(map[string]bool)
	return auth.Actor{ID: userID, EditGrants: grants}
}

func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), claims.UserID)))
		})
	}
}
