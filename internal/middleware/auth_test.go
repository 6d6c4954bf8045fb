package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/adspredia/adspredia-api/internal/pkg/jwt"
)

func protectedEcho(t *testing.T, want uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetDeviceID(r.Context()); got != want {
			t.Errorf("expected device %s in context, got %s", want, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestDeviceAuthAllowsValidToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	deviceID := uuid.New()
	token, _, err := jwtSvc.GenerateDeviceToken(deviceID)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	protected := DeviceAuth(jwtSvc)(protectedEcho(t, deviceID))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestDeviceAuthAcceptsQueryToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	deviceID := uuid.New()
	token, _, _ := jwtSvc.GenerateDeviceToken(deviceID)

	protected := DeviceAuth(jwtSvc)(protectedEcho(t, deviceID))
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestDeviceAuthRejects(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Hour)
	other := jwt.NewService("other-secret", time.Hour)
	foreign, _, _ := other.GenerateDeviceToken(uuid.New())

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"bad format", "Token abc"},
		{"wrong signature", "Bearer " + foreign},
		{"garbage", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protected := DeviceAuth(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}
