package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
)

// Handler handles dashboard HTTP requests
type Handler struct{}

// NewHandler creates new dashboard handler
func NewHandler() *Handler {
	return &Handler{}
}

// Get returns the earnings overview of the logged-in user
// GET /api/v1/dashboard
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap := middleware.GetStore(r.Context()).Snapshot()
	if snap.User == nil {
		response.Error(w, http.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first")
		return
	}
	response.OK(w, buildResponse(snap))
}

// Routes returns dashboard routes
func Routes(h *Handler, protected ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(protected...)

	r.Get("/", h.Get)

	return r
}

// Response is the dashboard payload: headline stats, recent activity and profile card
type Response struct {
	state.DashboardStats
	Profile Profile `json:"profile"`
}

type Profile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

func buildResponse(snap state.AppState) Response {
	return Response{
		DashboardStats: state.Dashboard(snap),
		Profile: Profile{
			ID:       snap.User.ID,
			Name:     snap.User.Name,
			Email:    snap.User.Email,
			JoinedAt: snap.User.JoinedAt,
		},
	}
}
