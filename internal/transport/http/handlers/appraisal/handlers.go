package appraisalhandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/appraisal"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Engine interface {
	CreateAppraisal(ctx context.Context, user auth.UserContext, in appraisal.CreateInput) (appraisal.Appraisal, error)
	SubmitSelfAssessment(ctx context.Context, user auth.UserContext, appraisalID string, in appraisal.SelfAssessmentInput) (appraisal.Result, error)
	SubmitReview(ctx context.Context, user auth.UserContext, appraisalID string, in appraisal.ReviewInput) (appraisal.Result, error)
	UpdateGoals(ctx context.Context, user auth.UserContext, appraisalID string, in appraisal.GoalChanges) (appraisal.Result, error)
	GetAppraisal(ctx context.Context, user auth.UserContext, appraisalID string) (appraisal.Appraisal, error)
	ListAppraisals(ctx context.Context, user auth.UserContext, filter appraisal.ListFilter) ([]appraisal.Appraisal, int, error)
}

type Handler struct {
	Service Engine
}

func NewHandler(service Engine) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/appraisals", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{appraisalID}", h.handleGet)
		r.Post("/{appraisalID}/self-assessment", h.handleSelfAssessment)
		r.Post("/{appraisalID}/review", h.handleReview)
		r.Put("/{appraisalID}/goals", h.handleUpdateGoals)
	})
}

type goalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetDate  string `json:"targetDate"`
	Status      string `json:"status"`
}

type goalPatchPayload struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TargetDate  *string `json:"targetDate"`
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
}

type createPayload struct {
	EmployeeID  string        `json:"employeeId"`
	ReviewerID  string        `json:"reviewerId"`
	PeriodStart string        `json:"periodStart"`
	PeriodEnd   string        `json:"periodEnd"`
	Goals       []goalPayload `json:"goals"`
}

type goalChangesPayload struct {
	Add    []goalPayload      `json:"add"`
	Update []goalPatchPayload `json:"update"`
	Remove []string           `json:"remove"`
}

func (p goalPayload) input(v *shared.Validator, field string) appraisal.GoalInput {
	return appraisal.GoalInput{
		Title:       p.Title,
		Description: p.Description,
		TargetDate:  v.OptionalDate(field+".targetDate", p.TargetDate),
		Status:      p.Status,
	}
}

func goalInputs(v *shared.Validator, field string, goals []goalPayload) []appraisal.GoalInput {
	out := make([]appraisal.GoalInput, 0, len(goals))
	for i, g := range goals {
		out = append(out, g.input(v, field+"["+strconv.Itoa(i)+"]"))
	}
	return out
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload createPayload
	if !shared.DecodeJSON(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID)
	in := appraisal.CreateInput{
		EmployeeID:  payload.EmployeeID,
		ReviewerID:  payload.ReviewerID,
		PeriodStart: v.Date("periodStart", payload.PeriodStart),
		PeriodEnd:   v.Date("periodEnd", payload.PeriodEnd),
		Goals:       goalInputs(v, "goals", payload.Goals),
	}
	if v.Reject(w, reqID) {
		return
	}

	out, err := h.Service.CreateAppraisal(r.Context(), user, in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, out, reqID)
}

func (h *Handler) handleSelfAssessment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var in appraisal.SelfAssessmentInput
	if !shared.DecodeJSON(w, r, reqID, &in) {
		return
	}
	res, err := h.Service.SubmitSelfAssessment(r.Context(), user, chi.URLParam(r, "appraisalID"), in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var in appraisal.ReviewInput
	if !shared.DecodeJSON(w, r, reqID, &in) {
		return
	}
	res, err := h.Service.SubmitReview(r.Context(), user, chi.URLParam(r, "appraisalID"), in)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleUpdateGoals(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload goalChangesPayload
	if !shared.DecodeJSON(w, r, reqID, &payload) {
		return
	}
	v := shared.NewValidator()
	changes := appraisal.GoalChanges{
		Add:    goalInputs(v, "add", payload.Add),
		Remove: payload.Remove,
	}
	for i, p := range payload.Update {
		patch := appraisal.GoalPatch{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Status:      p.Status,
			Notes:       p.Notes,
		}
		if p.TargetDate != nil {
			patch.TargetDate = v.OptionalDate("update["+strconv.Itoa(i)+"].targetDate", *p.TargetDate)
		}
		changes.Update = append(changes.Update, patch)
	}
	if v.Reject(w, reqID) {
		return
	}

	res, err := h.Service.UpdateGoals(r.Context(), user, chi.URLParam(r, "appraisalID"), changes)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	out, err := h.Service.GetAppraisal(r.Context(), user, chi.URLParam(r, "appraisalID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, workflow.ListPage)
	q := r.URL.Query()
	items, total, err := h.Service.ListAppraisals(r.Context(), user, appraisal.ListFilter{
		EmployeeID: q.Get("employeeId"),
		ReviewerID: q.Get("reviewerId"),
		Status:     q.Get("status"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []appraisal.Appraisal{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, reqID)
}
