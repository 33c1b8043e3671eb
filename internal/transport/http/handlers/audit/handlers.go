package audithandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

// auditPage allows larger pages than the engine lists for exports.
var auditPage = workflow.PageBounds{Default: 100, Max: 500}

type Trail interface {
	Count(ctx context.Context, tenantID string, filter audit.Filter) (int, error)
	List(ctx context.Context, tenantID string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Trail
	Logger  *zap.Logger
}

func NewHandler(service Trail, logger *zap.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/events", h.handleListEvents)
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if !auth.IsAdmin(user.RoleName) {
		api.FailError(w, workflow.Unauthorized(workflow.ReasonRoleRequired, "hr role required"), reqID)
		return
	}

	page := shared.ParsePagination(r, auditPage)
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		h.Logger.Warn("audit count failed", zap.String("requestId", reqID), zap.Error(err))
	}

	events, err := h.Service.List(r.Context(), user.TenantID, filter, q.Get("includeDetails") == "true", page.Limit, page.Offset)
	if err != nil {
		h.Logger.Error("audit list failed", zap.String("requestId", reqID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", reqID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	shared.SetTotal(w, total)
	api.Success(w, events, reqID)
}
