package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lombarde1/backtunder/internal/auth"
	"github.com/lombarde1/backtunder/internal/logging"
	"github.com/lombarde1/backtunder/internal/model"
)

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}

// Auth validates the bearer token and puts the caller's id and role into the
// request context.
func Auth(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logg.Warn("Missing Authorization header")
				deny(w, http.StatusUnauthorized, "Não autorizado")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				deny(w, http.StatusUnauthorized, "Formato do cabeçalho de autorização inválido")
				return
			}

			claims, err := auth.ParseToken(tokenString, secret)
			if err != nil {
				logging.Logg.Warn("Invalid token", "error", err)
				deny(w, http.StatusUnauthorized, "Não autorizado")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Não autorizado")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, model.Role(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects callers without the admin role. Must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(RoleKey).(model.Role)
		if !ok || role != model.RoleAdmin {
			deny(w, http.StatusForbidden, "Acesso restrito a administradores")
			return
		}
		next.ServeHTTP(w, r)
	})
}
