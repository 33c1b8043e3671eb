package notificationshandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/transport/http/middleware"
)

type stubInbox struct {
	unreadOnly bool
	markErr    error
}

func (s *stubInbox) List(_ context.Context, _, _ string, unreadOnly bool, _, _ int) ([]notifications.Item, error) {
	s.unreadOnly = unreadOnly
	return []notifications.Item{{ID: "n1", Kind: notifications.KindLeaveApproved}}, nil
}

func (s *stubInbox) Count(context.Context, string, string, bool) (int, error) {
	return 0, errors.New("count unavailable")
}

func (s *stubInbox) MarkRead(context.Context, string, string, string) error {
	return s.markErr
}

func serve(inbox Inbox, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(inbox, zap.NewNop()).RegisterRoutes(r)
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleEmployee}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListSurvivesCountFailure(t *testing.T) {
	inbox := &stubInbox{}
	rec := serve(inbox, http.MethodGet, "/notifications?unread=true")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inbox.unreadOnly)
	assert.Contains(t, rec.Body.String(), `"type":"leave_approved"`)
}

func TestMarkRead(t *testing.T) {
	rec := serve(&stubInbox{}, http.MethodPost, "/notifications/n1/read")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(&stubInbox{markErr: notifications.ErrNotFound}, http.MethodPost, "/notifications/n1/read")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(&stubInbox{markErr: errors.New("boom")}, http.MethodPost, "/notifications/n1/read")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
