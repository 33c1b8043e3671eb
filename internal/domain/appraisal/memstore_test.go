package appraisal

import (
	"context"
	"sort"
	"sync"
	"time"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/notifications"
)

// memStore serializes transactions on one mutex, the way the row lock does
// in PostgreSQL, and only publishes a transaction's writes when fn succeeds.
type memStore struct {
	mu         sync.Mutex
	appraisals map[string]Appraisal
	audits     []audit.Entry
	txCalls    int
	failSave   error
}

func newMemStore() *memStore {
	return &memStore{appraisals: map[string]Appraisal{}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++

	tx := &memTx{appraisals: make(map[string]Appraisal, len(m.appraisals)), failSave: m.failSave}
	for id, a := range m.appraisals {
		tx.appraisals[id] = clone(a)
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.appraisals = tx.appraisals
	m.audits = append(m.audits, tx.audits...)
	return nil
}

func (m *memStore) GetAppraisal(_ context.Context, tenantID, appraisalID string) (Appraisal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appraisals[appraisalID]
	if !ok || a.TenantID != tenantID {
		return Appraisal{}, ErrNotFound
	}
	return clone(a), nil
}

func (m *memStore) ListAppraisals(_ context.Context, tenantID string, f ListFilter) ([]Appraisal, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appraisal
	for _, a := range m.appraisals {
		if a.TenantID != tenantID {
			continue
		}
		if f.EmployeeID != "" && a.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.VisibleTo != "" {
			visible := a.EmployeeID == f.VisibleTo || a.ReviewerID == f.VisibleTo ||
				(f.IncludeReports && a.ManagerID == f.VisibleTo)
			if !visible {
				continue
			}
		}
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) get(id string) Appraisal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.appraisals[id])
}

func (m *memStore) auditCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.audits)
}

type memTx struct {
	appraisals map[string]Appraisal
	audits     []audit.Entry
	failSave   error
}

func (t *memTx) LockAppraisal(_ context.Context, tenantID, appraisalID string) (Appraisal, error) {
	a, ok := t.appraisals[appraisalID]
	if !ok || a.TenantID != tenantID {
		return Appraisal{}, ErrNotFound
	}
	return clone(a), nil
}

func (t *memTx) AppraisalExists(_ context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	for _, a := range t.appraisals {
		if a.TenantID == tenantID && a.EmployeeID == employeeID && a.PeriodStart.Equal(start) && a.PeriodEnd.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertAppraisal(_ context.Context, a Appraisal) error {
	t.appraisals[a.ID] = clone(a)
	return nil
}

func (t *memTx) SaveAppraisal(_ context.Context, a Appraisal) error {
	if t.failSave != nil {
		return t.failSave
	}
	t.appraisals[a.ID] = clone(a)
	return nil
}

func (t *memTx) RecordAudit(_ context.Context, _ string, entry audit.Entry) error {
	t.audits = append(t.audits, entry)
	return nil
}

func clone(a Appraisal) Appraisal {
	a.Goals = append([]Goal(nil), a.Goals...)
	return a
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

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Kind
	}
	return out
}

func (r *recordingNotifier) last() notifications.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}
