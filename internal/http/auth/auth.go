// Package auth guards operator routes with HMAC-signed JWTs.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const roleOperator = "operator"

// Middleware rejects any request without a valid operator token.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}

			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}

				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if role, _ := claims["role"].(string); role != roleOperator {
				http.Error(w, "operator access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OperatorToken issues a short-lived operator token. Used by the ops tool
// and by tests.
func OperatorToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": roleOperator,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})

	return token.SignedString([]byte(secret))
}
