package wallet

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/errorhandler"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
	"github.com/adspredia/adspredia-api/internal/pkg/validator"
)

const maxTransactionsLimit = 100

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Summary handles GET /wallet
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.svc.Summary(middleware.GetStore(r.Context())))
}

// Transactions handles GET /wallet/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := state.TransactionFilter{Limit: maxTransactionsLimit}

	if t := query.Get("type"); t != "" {
		filter.Type = state.TransactionType(t)
		if !filter.Type.Valid() {
			response.BadRequest(w, "type must be one of earning, deposit, withdraw, expense")
			return
		}
	}
	if s := query.Get("status"); s != "" {
		filter.Status = state.TransactionStatus(s)
		if !filter.Status.Valid() {
			response.BadRequest(w, "status must be one of pending, completed, approved")
			return
		}
	}
	if l := query.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= maxTransactionsLimit {
			filter.Limit = v
		}
	}

	items := h.svc.Transactions(middleware.GetStore(r.Context()), filter)
	response.WithMeta(w, items, response.Meta{Total: len(items), Limit: filter.Limit})
}

// Methods handles GET /wallet/methods
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	response.OK(w, MethodsResponse{Methods: Methods, MinWithdrawal: h.svc.MinWithdrawal()})
}

// Deposit handles POST /wallet/deposit
// @Summary Submit a deposit for approval
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body DepositRequest true "Deposit"
// @Success 202 {object} response.Response{data=MutationResponse}
// @Failure 422 {object} response.Response
// @Router /wallet/deposit [post]
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	result, err := h.svc.Deposit(r.Context(), middleware.GetStore(r.Context()), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Accepted(w, result)
}

// Withdraw handles POST /wallet/withdraw
// @Summary Request a withdrawal
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body WithdrawRequest true "Withdrawal"
// @Success 202 {object} response.Response{data=MutationResponse}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /wallet/withdraw [post]
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.Validation(r.Context(), w, errs)
		return
	}

	result, err := h.svc.Withdraw(r.Context(), middleware.GetStore(r.Context()), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Accepted(w, result)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		response.Error(w, http.StatusUnauthorized, "NOT_LOGGED_IN", "Please log in first")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrUnknownMethod):
		response.BadRequest(w, "select a method and enter a valid amount")
	case errors.Is(err, ErrBelowMinimum):
		errorhandler.Validation(r.Context(), w, map[string]string{
			"amount": fmt.Sprintf("Minimum withdrawal limit is %d coins", h.svc.MinWithdrawal()),
		})
	case errors.Is(err, ErrInsufficientFunds):
		response.InsufficientBalance(w)
	default:
		errorhandler.Internal(r.Context(), w, err, "wallet request failed")
	}
}

// Routes returns wallet router. protected must authenticate the device and load its store.
func (h *Handler) Routes(protected ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(protected...)
	r.Get("/methods", h.Methods)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/", h.Summary)
		r.Get("/transactions", h.Transactions)
		r.Post("/deposit", h.Deposit)
		r.Post("/withdraw", h.Withdraw)
	})
	return r
}
