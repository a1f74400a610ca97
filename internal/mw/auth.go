package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/model"
)

type contextKey string

const (
	UserCtxKey contextKey = "user_id"
	RoleCtxKey contextKey = "role"
)

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid claims", http.StatusInternalServerError)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				http.Error(w, "user_id not found in token", http.StatusInternalServerError)
				return
			}

			role, _ := claims["role"].(string)
			if !model.ValidRole(model.Role(role)) {
				role = string(model.RoleMember)
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, userID)
			ctx = context.WithValue(ctx, RoleCtxKey, model.Role(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
