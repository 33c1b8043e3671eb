package leave

import (
	"context"
	"sort"
	"sync"
	"time"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
)

type balanceKey struct {
	tenantID, employeeID, leaveType string
}

type memStore struct {
	mu       sync.Mutex
	requests map[string]LeaveRequest
	balances map[balanceKey]Balance
	audits   []audit.Entry
	failSave error
	locked   []string
}

func newMemStore() *memStore {
	return &memStore{requests: map[string]LeaveRequest{}, balances: map[balanceKey]Balance{}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		requests: make(map[string]LeaveRequest, len(m.requests)),
		balances: make(map[balanceKey]Balance, len(m.balances)),
		failSave: m.failSave,
	}
	for id, r := range m.requests {
		tx.requests[id] = r
	}
	for k, b := range m.balances {
		tx.balances[k] = b
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.requests = tx.requests
	m.balances = tx.balances
	m.audits = append(m.audits, tx.audits...)
	m.locked = append(m.locked, tx.locked...)
	return nil
}

func (m *memStore) ListBalances(_ context.Context, tenantID, employeeID string) ([]Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Balance, 0)
	for k, b := range m.balances {
		if k.tenantID == tenantID && k.employeeID == employeeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (m *memStore) balance(employeeID, leaveType string) Balance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[balanceKey{tenant, employeeID, leaveType}]
}

func (m *memStore) lockedEmployees() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locked...)
}

func (m *memStore) GetRequest(_ context.Context, tenantID, requestID string) (LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok || r.TenantID != tenantID {
		return LeaveRequest{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListRequests(_ context.Context, tenantID string, f ListFilter) ([]LeaveRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LeaveRequest
	for _, r := range m.requests {
		if r.TenantID != tenantID {
			continue
		}
		if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.VisibleTo != "" && r.EmployeeID != f.VisibleTo && !(f.IncludeReports && r.ManagerID == f.VisibleTo) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) get(id string) LeaveRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.audits))
	for i, e := range m.audits {
		out[i] = e.Action
	}
	return out
}

type memTx struct {
	requests map[string]LeaveRequest
	balances map[balanceKey]Balance
	audits   []audit.Entry
	failSave error
	locked   []string
}

func (t *memTx) LockEmployee(_ context.Context, _, employeeID string) error {
	if employeeID == "" {
		return ErrEmployeeNotFound
	}
	t.locked = append(t.locked, employeeID)
	return nil
}

func (t *memTx) ShiftBalance(_ context.Context, tenantID, employeeID, leaveType string, pending, used float64, at time.Time) error {
	k := balanceKey{tenantID, employeeID, leaveType}
	b := t.balances[k]
	b.EmployeeID, b.Type = employeeID, leaveType
	b.Pending += pending
	b.Used += used
	b.UpdatedAt = at
	t.balances[k] = b
	return nil
}

func (t *memTx) LockRequest(_ context.Context, tenantID, requestID string) (LeaveRequest, error) {
	r, ok := t.requests[requestID]
	if !ok || r.TenantID != tenantID {
		return LeaveRequest{}, ErrNotFound
	}
	return r, nil
}

func (t *memTx) OverlapExists(_ context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	for _, r := range t.requests {
		if r.TenantID != tenantID || r.EmployeeID != employeeID {
			continue
		}
		if r.Status != workflow.LeavePending && r.Status != workflow.LeaveApproved {
			continue
		}
		if !r.StartDate.After(end) && !r.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertRequest(_ context.Context, r LeaveRequest) error {
	t.requests[r.ID] = r
	return nil
}

func (t *memTx) SaveRequest(_ context.Context, r LeaveRequest) error {
	if t.failSave != nil {
		return t.failSave
	}
	t.requests[r.ID] = r
	return nil
}

func (t *memTx) RecordAudit(_ context.Context, _ string, entry audit.Entry) error {
	t.audits = append(t.audits, entry)
	return nil
}

type memDirectory map[string]core.Employee

func (d memDirectory) EmployeeByUserID(_ context.Context, _, userID string) (core.Employee, error) {
	for _, emp := range d {
		if emp.UserID == userID {
			return emp, nil
		}
	}
	return core.Employee{}, core.ErrNotFound
}

func (d memDirectory) Employee(_ context.Context, _, employeeID string) (core.Employee, error) {
	emp, ok := d[employeeID]
	if !ok {
		return core.Employee{}, core.ErrNotFound
	}
	return emp, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) all() []notifications.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Notification(nil), r.sent...)
}
