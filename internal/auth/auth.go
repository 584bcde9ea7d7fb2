package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type UserClaims struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

type contextKey string

const UserKey contextKey = "user"

// HashKey returns the bcrypt hash to configure as ADMIN_KEY_HASH for key.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty admin key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing admin key: %w", err)
	}
	return string(hash), nil
}

// CheckKey reports whether key matches the bcrypt hash.
func CheckKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Middleware attaches the caller's identity to the request context.
// Requests without an Authorization header continue as anonymous readers; a
// bearer key matching adminKeyHash grants admin rights and any other key is
// rejected. When devMode is true, every request is treated as admin.
func Middleware(devMode bool, adminKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devMode {
				claims := &UserClaims{Name: "Dev User", IsAdmin: true}
				ctx := context.WithValue(r.Context(), UserKey, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctx := context.WithValue(r.Context(), UserKey, &UserClaims{Name: "anonymous"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			key := strings.TrimPrefix(authHeader, "Bearer ")
			if key == authHeader {
				writeUnauthorized(w, "invalid authorization format, use Bearer token")
				return
			}
			if !CheckKey(adminKeyHash, key) {
				writeUnauthorized(w, "unauthorized: invalid key")
				return
			}

			claims := &UserClaims{Name: "admin", IsAdmin: true}
			ctx := context.WithValue(r.Context(), UserKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser extracts the caller's claims from the request context.
func GetUser(ctx context.Context) *UserClaims {
	claims, _ := ctx.Value(UserKey).(*UserClaims)
	return claims
}

// RequireAdmin is an HTTP middleware that returns 403 if the user is not an admin.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || !user.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next(w, r)
	}
}
