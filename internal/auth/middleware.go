package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dostify/dostify/internal/types"
)

type contextKey struct{}

// UserFromContext returns the authenticated user id set by Middleware.
func UserFromContext(ctx context.Context) (types.UserID, bool) {
	id, ok := ctx.Value(contextKey{}).(types.UserID)
	return id, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user id on the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		userID, err := s.Verify(token)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
