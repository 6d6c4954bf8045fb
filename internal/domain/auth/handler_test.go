package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/clock"
	"github.com/adspredia/adspredia-api/internal/pkg/jwt"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) (http.Handler, *state.Registry, *Handler) {
	t.Helper()
	nop := zerolog.Nop()
	reg := state.NewRegistry(state.Options{
		Slot:   kvstore.NewMemory(),
		Clock:  clock.NewFake(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Logger: &nop,
	}, nil)
	t.Cleanup(reg.Close)

	jwtSvc := jwt.NewService("auth-test-secret", time.Hour)
	h := NewHandler(NewService(jwtSvc, reg))

	r := chi.NewRouter()
	r.Post("/devices", h.IssueDevice)
	r.Mount("/auth", h.Routes(middleware.DeviceAuth(jwtSvc), middleware.LoadState(reg)))
	return r, reg, h
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var out apiResponse
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}

func issueDevice(t *testing.T, h http.Handler) DeviceResponse {
	t.Helper()
	rr, out := do(t, h, http.MethodPost, "/devices", "", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var dev DeviceResponse
	if err := json.Unmarshal(out.Data, &dev); err != nil {
		t.Fatalf("decode device: %v", err)
	}
	return dev
}

func TestIssueDeviceSeedsState(t *testing.T) {
	h, reg, _ := newTestRouter(t)
	dev := issueDevice(t, h)

	if dev.Token == "" {
		t.Fatal("expected a token")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected the device store to be opened, got %d", reg.Len())
	}
}

func TestLoginMeLogout(t *testing.T) {
	h, _, _ := newTestRouter(t)
	dev := issueDevice(t, h)

	rr, out := do(t, h, http.MethodGet, "/auth/me", dev.Token, nil)
	if rr.Code != http.StatusUnauthorized || out.Error == nil || out.Error.Code != "NOT_LOGGED_IN" {
		t.Fatalf("expected NOT_LOGGED_IN before login, got %d %s", rr.Code, rr.Body.String())
	}

	rr, out = do(t, h, http.MethodPost, "/auth/login", dev.Token, LoginRequest{Email: "  Ali@Example.com ", Name: "Ali  Khan"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var u UserResponse
	if err := json.Unmarshal(out.Data, &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.Email != "ali@example.com" || u.Name != "Ali Khan" || u.Balance != 100 {
		t.Fatalf("unexpected user: %+v", u)
	}

	rr, _ = do(t, h, http.MethodGet, "/auth/me", dev.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after login, got %d", rr.Code)
	}

	rr, _ = do(t, h, http.MethodPost, "/auth/logout", dev.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on logout, got %d", rr.Code)
	}
	rr, _ = do(t, h, http.MethodGet, "/auth/me", dev.Token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rr.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	h, _, _ := newTestRouter(t)
	dev := issueDevice(t, h)

	rr, out := do(t, h, http.MethodPost, "/auth/login", dev.Token, map[string]string{"email": "not-an-email"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if out.Error == nil || out.Error.Details["email"] == "" || out.Error.Details["name"] == "" {
		t.Fatalf("expected email and name details, got %s", rr.Body.String())
	}
}

func TestLoginRejectsBlankNameAfterTrim(t *testing.T) {
	h, _, _ := newTestRouter(t)
	dev := issueDevice(t, h)

	rr, out := do(t, h, http.MethodPost, "/auth/login", dev.Token, LoginRequest{Email: " ali@example.com ", Name: "   "})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if out.Error == nil || out.Error.Details["name"] == "" || out.Error.Details["email"] != "" {
		t.Fatalf("expected only a name detail, got %s", rr.Body.String())
	}
}

func TestAuthRoutesRequireDeviceToken(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rr, _ := do(t, h, http.MethodGet, "/auth/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
