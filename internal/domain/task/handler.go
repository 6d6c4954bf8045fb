package task

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/errorhandler"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
	"github.com/adspredia/adspredia-api/internal/pkg/validator"
)

// Handler handles task HTTP requests
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /tasks
// @Summary Browse tasks and ads
// @Tags Tasks
// @Produce json
// @Param type query string false "task, survey, video or website"
// @Param q query string false "Search in title and description"
// @Param min_reward query int false "Minimum reward"
// @Param category query string false "Category, All matches everything"
// @Param sort query string false "newest, reward-high, reward-low, duration-short, duration-long"
// @Success 200 {object} response.Response{data=[]TaskResponse}
// @Router /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := state.TaskFilter{
		Query:    query.Get("q"),
		Category: query.Get("category"),
		Sort:     state.SortNewest,
	}

	if t := query.Get("type"); t != "" {
		kind := state.TaskKind(t)
		if !kind.Valid() {
			response.BadRequest(w, "type must be one of task, survey, video, website")
			return
		}
		filter.Type = kind
	}
	if m := query.Get("min_reward"); m != "" {
		if v, err := strconv.ParseInt(m, 10, 64); err == nil && v > 0 {
			filter.MinReward = v
		}
	}
	if s := query.Get("sort"); s != "" {
		if opt := state.SortOption(s); opt.Valid() {
			filter.Sort = opt
		}
	}

	items := h.service.List(middleware.GetStore(r.Context()), filter)
	response.WithMeta(w, items, response.Meta{Total: len(items)})
}

// Categories handles GET /tasks/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	kind := state.TaskKind(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		response.BadRequest(w, "type must be one of task, survey, video, website")
		return
	}
	response.OK(w, h.service.Categories(middleware.GetStore(r.Context()), kind))
}

// Get handles GET /tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(middleware.GetStore(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, item)
}

// Create handles POST /tasks
// @Summary Publish a task paid from the balance
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} response.Response{data=CreateResponse}
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		errorhandler.Validation(r.Context(), w, errors)
		return
	}

	result, err := h.service.Create(r.Context(), middleware.GetStore(r.Context()), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	log.Info().
		Str("device_id", middleware.GetDeviceID(r.Context()).String()).
		Str("task_id", result.Task.ID).
		Int64("reward", result.Task.Reward).
		Msg("task published")
	response.Created(w, result)
}

// Complete handles POST /tasks/{id}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Complete(r.Context(), middleware.GetStore(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		response.Error(w, http.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first")
	case errors.Is(err, ErrTaskNotFound):
		response.NotFound(w, "Task not found")
	case errors.Is(err, ErrAlreadyCompleted):
		response.Error(w, http.StatusConflict, "ALREADY_COMPLETED", "Task already completed")
	case errors.Is(err, ErrInsufficientBalance):
		response.InsufficientBalance(w)
	default:
		errorhandler.Internal(r.Context(), w, err, "task request failed")
	}
}
