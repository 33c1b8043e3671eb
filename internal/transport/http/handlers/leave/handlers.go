package leavehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/leave"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Engine interface {
	RequestLeave(ctx context.Context, user auth.UserContext, in leave.RequestInput) (leave.LeaveRequest, error)
	DecideLeave(ctx context.Context, user auth.UserContext, requestID string, in leave.DecisionInput) (leave.LeaveRequest, error)
	CancelLeave(ctx context.Context, user auth.UserContext, requestID string) (leave.LeaveRequest, error)
	GetLeave(ctx context.Context, user auth.UserContext, requestID string) (leave.LeaveRequest, error)
	ListLeave(ctx context.Context, user auth.UserContext, filter leave.ListFilter) ([]leave.LeaveRequest, int, error)
	ListBalances(ctx context.Context, user auth.UserContext, employeeID string) ([]leave.Balance, error)
}

type Handler struct {
	Service Engine
}

func NewHandler(service Engine) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/requests", func(r chi.Router) {
		r.Get("/", h.handleListRequests)
		r.Post("/", h.handleCreateRequest)
		r.Get("/{requestID}", h.handleGetRequest)
		r.Post("/{requestID}/approve", h.handleDecide(true))
		r.Post("/{requestID}/reject", h.handleDecide(false))
		r.Post("/{requestID}/cancel", h.handleCancelRequest)
	})
	r.Get("/leave/balances", h.handleListBalances)
}

type createRequestPayload struct {
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartHalf bool   `json:"startHalf"`
	EndHalf   bool   `json:"endHalf"`
	Reason    string `json:"reason"`
}

type decisionPayload struct {
	Note string `json:"note"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload createRequestPayload
	if !shared.DecodeJSON(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("type", payload.Type)
	in := leave.RequestInput{
		Type:      payload.Type,
		StartDate: v.Date("startDate", payload.StartDate),
		EndDate:   v.Date("endDate", payload.EndDate),
		StartHalf: payload.StartHalf,
		EndHalf:   payload.EndHalf,
		Reason:    payload.Reason,
	}
	if v.Reject(w, reqID) {
		return
	}

	out, err := h.Service.RequestLeave(r.Context(), user, in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, out, reqID)
}

func (h *Handler) handleDecide(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		reqID := middleware.GetRequestID(r.Context())

		var payload decisionPayload
		if !shared.DecodeOptionalJSON(w, r, reqID, &payload) {
			return
		}
		out, err := h.Service.DecideLeave(r.Context(), user, chi.URLParam(r, "requestID"), leave.DecisionInput{Approve: approve, Note: payload.Note})
		if err != nil {
			api.FailError(w, err, reqID)
			return
		}
		api.Success(w, out, reqID)
	}
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	out, err := h.Service.CancelLeave(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	out, err := h.Service.GetLeave(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, workflow.ListPage)
	items, total, err := h.Service.ListLeave(r.Context(), user, leave.ListFilter{
		EmployeeID: r.URL.Query().Get("employeeId"),
		Status:     r.URL.Query().Get("status"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []leave.LeaveRequest{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, reqID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	items, err := h.Service.ListBalances(r.Context(), user, r.URL.Query().Get("employeeId"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}
