package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/adspredia/adspredia-api/internal/pkg/jwt"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
)

type contextKey string

const (
	DeviceIDKey contextKey = "device_id"
	StoreKey    contextKey = "state_store"
)

// DeviceAuth returns middleware that validates the device token. Browsers cannot
// set headers on websocket upgrades, so a token query parameter is accepted too.
func DeviceAuth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing authorization header")
				return
			}
			if token == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateDeviceToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), DeviceIDKey, claims.DeviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reports ok=false when no credentials were sent at all and an
// empty token when they were malformed.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if q := r.URL.Query().Get("token"); q != "" {
			return q, true
		}
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", true
	}
	return parts[1], true
}

// GetDeviceID extracts the device ID from context
func GetDeviceID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(DeviceIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
