package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/pkg/errorhandler"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
)

// StoreResolver opens the state store of a device.
type StoreResolver interface {
	Get(ctx context.Context, deviceID string) (*state.Store, error)
}

// LoadState attaches the authenticated device's store to the request context.
// It must run after DeviceAuth.
func LoadState(stores StoreResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := GetDeviceID(r.Context())
			if deviceID == uuid.Nil {
				response.Unauthorized(w, "Authentication required")
				return
			}

			store, err := stores.Get(r.Context(), deviceID.String())
			if err != nil {
				errorhandler.Internal(r.Context(), w, err, "failed to open state store")
				return
			}

			ctx := context.WithValue(r.Context(), StoreKey, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStore extracts the device's state store from context
func GetStore(ctx context.Context) *state.Store {
	if s, ok := ctx.Value(StoreKey).(*state.Store); ok {
		return s
	}
	return nil
}

// RequireUser blocks requests from devices with nobody logged in.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := GetStore(r.Context())
		if store == nil {
			response.Unauthorized(w, "Authentication required")
			return
		}
		if _, ok := store.User(); !ok {
			response.Error(w, http.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first")
			return
		}
		next.ServeHTTP(w, r)
	})
}
