package onboardinghandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/onboarding"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Engine interface {
	CreateTemplate(ctx context.Context, user auth.UserContext, in onboarding.TemplateInput) (onboarding.Template, error)
	SetTemplateActive(ctx context.Context, user auth.UserContext, templateID string, active bool) (onboarding.Template, error)
	GetTemplate(ctx context.Context, user auth.UserContext, templateID string) (onboarding.Template, error)
	ListTemplates(ctx context.Context, user auth.UserContext, includeInactive bool) ([]onboarding.Template, error)
	AssignWorkflow(ctx context.Context, user auth.UserContext, in onboarding.AssignInput) (onboarding.Workflow, error)
	StartTask(ctx context.Context, user auth.UserContext, taskID string) (onboarding.TaskResult, error)
	CompleteTask(ctx context.Context, user auth.UserContext, taskID string, in onboarding.CompleteTaskInput) (onboarding.TaskResult, error)
	GetWorkflow(ctx context.Context, user auth.UserContext, workflowID string) (onboarding.Workflow, error)
	ListWorkflows(ctx context.Context, user auth.UserContext, filter onboarding.WorkflowFilter) ([]onboarding.Workflow, int, error)
}

type Handler struct {
	Service Engine
}

func NewHandler(service Engine) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Get("/templates", h.handleListTemplates)
		r.Post("/templates", h.handleCreateTemplate)
		r.Get("/templates/{templateID}", h.handleGetTemplate)
		r.Put("/templates/{templateID}/active", h.handleSetTemplateActive)
		r.Get("/workflows", h.handleListWorkflows)
		r.Post("/workflows", h.handleAssign)
		r.Get("/workflows/{workflowID}", h.handleGetWorkflow)
		r.Post("/tasks/{taskID}/start", h.handleStartTask)
		r.Post("/tasks/{taskID}/complete", h.handleCompleteTask)
	})
}

type assignPayload struct {
	EmployeeID       string            `json:"employeeId"`
	TemplateID       string            `json:"templateId"`
	StartDate        string            `json:"startDate"`
	DueDateOverrides map[string]string `json:"dueDateOverrides"`
}

type activePayload struct {
	Active *bool `json:"active"`
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var in onboarding.TemplateInput
	if !shared.DecodeJSON(w, r, reqID, &in) {
		return
	}
	out, err := h.Service.CreateTemplate(r.Context(), user, in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, out, reqID)
}

func (h *Handler) handleSetTemplateActive(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload activePayload
	if !shared.DecodeJSON(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	if payload.Active == nil {
		v.Add("active", "is required")
	}
	if v.Reject(w, reqID) {
		return
	}
	out, err := h.Service.SetTemplateActive(r.Context(), user, chi.URLParam(r, "templateID"), *payload.Active)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	out, err := h.Service.GetTemplate(r.Context(), user, chi.URLParam(r, "templateID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	items, err := h.Service.ListTemplates(r.Context(), user, r.URL.Query().Get("includeInactive") == "true")
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []onboarding.Template{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload assignPayload
	if !shared.DecodeJSON(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID)
	v.Required("templateId", payload.TemplateID)
	in := onboarding.AssignInput{
		EmployeeID: payload.EmployeeID,
		TemplateID: payload.TemplateID,
		StartDate:  v.Date("startDate", payload.StartDate),
	}
	if len(payload.DueDateOverrides) > 0 {
		in.DueDateOverrides = make(map[string]time.Time, len(payload.DueDateOverrides))
		for taskID, raw := range payload.DueDateOverrides {
			in.DueDateOverrides[taskID] = v.Date("dueDateOverrides."+taskID, raw)
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	out, err := h.Service.AssignWorkflow(r.Context(), user, in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, out, reqID)
}

func (h *Handler) handleStartTask(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	res, err := h.Service.StartTask(r.Context(), user, chi.URLParam(r, "taskID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var in onboarding.CompleteTaskInput
	if !shared.DecodeOptionalJSON(w, r, reqID, &in) {
		return
	}
	res, err := h.Service.CompleteTask(r.Context(), user, chi.URLParam(r, "taskID"), in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	out, err := h.Service.GetWorkflow(r.Context(), user, chi.URLParam(r, "workflowID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, workflow.ListPage)
	items, total, err := h.Service.ListWorkflows(r.Context(), user, onboarding.WorkflowFilter{
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
		items = []onboarding.Workflow{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, reqID)
}
