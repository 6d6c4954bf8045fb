package auth

import (
	"net/http"

	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/errorhandler"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
	"github.com/adspredia/adspredia-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// IssueDevice handles POST /devices
// @Summary Register a device
// @Tags Auth
// @Produce json
// @Success 201 {object} response.Response{data=DeviceResponse}
// @Failure 500 {object} response.Response
// @Router /devices [post]
func (h *Handler) IssueDevice(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.IssueDevice(r.Context())
	if err != nil {
		errorhandler.Internal(r.Context(), w, err, "failed to issue device")
		return
	}
	response.Created(w, result)
}

// Login handles POST /auth/login
// @Summary Start a profile session
// @Description Replaces the device's profile with a new one holding the welcome bonus. No password is involved.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Profile"
// @Success 200 {object} response.Response{data=UserResponse}
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = normalizeName(req.Name)
	if errors := validator.Validate(&req); errors != nil {
		errorhandler.Validation(r.Context(), w, errors)
		return
	}

	store := middleware.GetStore(r.Context())
	response.OK(w, h.service.Login(r.Context(), store, &req))
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), middleware.GetStore(r.Context()))
	response.OK(w, map[string]string{"message": "Logged out"})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.service.Me(middleware.GetStore(r.Context()))
	if !ok {
		response.Error(w, http.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first")
		return
	}
	response.OK(w, u)
}

// State handles GET /state and returns the persisted aggregate as is
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	response.OK(w, middleware.GetStore(r.Context()).Snapshot())
}
