package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/leave"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/metrics"
)

const secret = "router-test-secret"

type leaveStub struct {
	calls int
}

func (s *leaveStub) RequestLeave(_ context.Context, user auth.UserContext, in leave.RequestInput) (leave.LeaveRequest, error) {
	s.calls++
	return leave.LeaveRequest{ID: "lr1", TenantID: user.TenantID, Type: in.Type, Status: workflow.LeavePending}, nil
}

func (s *leaveStub) DecideLeave(context.Context, auth.UserContext, string, leave.DecisionInput) (leave.LeaveRequest, error) {
	return leave.LeaveRequest{}, workflow.Unauthorized(workflow.ReasonSelfDecision, "cannot decide on your own request")
}

func (s *leaveStub) CancelLeave(context.Context, auth.UserContext, string) (leave.LeaveRequest, error) {
	return leave.LeaveRequest{}, workflow.InvalidTransition("approved -> cancelled")
}

func (s *leaveStub) GetLeave(context.Context, auth.UserContext, string) (leave.LeaveRequest, error) {
	return leave.LeaveRequest{}, workflow.NotFound("leave request not found")
}

func (s *leaveStub) ListLeave(context.Context, auth.UserContext, leave.ListFilter) ([]leave.LeaveRequest, int, error) {
	return nil, 0, errors.New("db down")
}

func (s *leaveStub) ListBalances(context.Context, auth.UserContext, string) ([]leave.Balance, error) {
	return []leave.Balance{}, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       secret,
		MaxBodyBytes:    1024,
		RateLimitPerMin: 1000,
		MetricsEnabled:  true,
	}
}

func newTestRouter(t *testing.T, stub *leaveStub, ready func(context.Context) error) http.Handler {
	t.Helper()
	return NewRouter(testConfig(), zap.NewNop(), Deps{Leave: stub, Metrics: metrics.New(), Ready: ready})
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", TenantID: "t1", RoleName: auth.RoleEmployee}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router http.Handler, method, path, body, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	router := newTestRouter(t, &leaveStub{}, func(context.Context) error { return errors.New("db down") })

	rec := do(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(router, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(newTestRouter(t, &leaveStub{}, nil), http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	stub := &leaveStub{}
	router := newTestRouter(t, stub, nil)

	rec := do(router, http.MethodPost, "/api/v1/leave/requests", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(router, http.MethodPost, "/api/v1/leave/requests", `{}`, "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, stub.calls)
}

func TestRequestReachesEngine(t *testing.T) {
	stub := &leaveStub{}
	router := newTestRouter(t, stub, nil)

	rec := do(router, http.MethodPost, "/api/v1/leave/requests", `{"type":"annual","startDate":"2025-03-03","endDate":"2025-03-04"}`, bearer(t))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tenantId":"t1"`)
	assert.Equal(t, 1, stub.calls)
}

func TestErrorMappingThroughRouter(t *testing.T) {
	router := newTestRouter(t, &leaveStub{}, nil)
	token := bearer(t)

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodPost, "/api/v1/leave/requests/lr1/approve", http.StatusForbidden},
		{http.MethodPost, "/api/v1/leave/requests/lr1/cancel", http.StatusConflict},
		{http.MethodGet, "/api/v1/leave/requests/lr1", http.StatusNotFound},
		{http.MethodGet, "/api/v1/leave/requests", http.StatusInternalServerError},
		{http.MethodGet, "/api/v1/nowhere", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(router, tc.method, tc.path, "", token)
		assert.Equal(t, tc.status, rec.Code, tc.path)
	}
}

func TestMalformedPayloads(t *testing.T) {
	stub := &leaveStub{}
	router := newTestRouter(t, stub, nil)
	token := bearer(t)

	rec := do(router, http.MethodPost, "/api/v1/leave/requests", `{"type":`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leave/requests", `{"type":"annual","startDate":"03/03/2025","endDate":"2025-03-04"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "startDate")

	rec = do(router, http.MethodPost, "/api/v1/leave/requests", `{"reason":"`+strings.Repeat("x", 2048)+`"}`, token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, stub.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &leaveStub{}, nil)
	do(router, http.MethodGet, "/healthz", "", "")

	rec := do(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requestsTotal":1`)
}
