package onboarding

import (
	"context"
	"sort"
	"sync"
	"time"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/notifications"
)

type memStore struct {
	mu        sync.Mutex
	employees map[string]core.Employee
	templates map[string]Template
	workflows map[string]Workflow
	audits    []audit.Entry
	txCalls   int
	failSave  error
	locks     []string
}

func newMemStore(employees map[string]core.Employee) *memStore {
	return &memStore{employees: employees, templates: map[string]Template{}, workflows: map[string]Workflow{}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++

	tx := &memTx{
		employees: m.employees,
		templates: make(map[string]Template, len(m.templates)),
		workflows: make(map[string]Workflow, len(m.workflows)),
		failSave:  m.failSave,
	}
	for id, t := range m.templates {
		tx.templates[id] = cloneTemplate(t)
	}
	for id, w := range m.workflows {
		tx.workflows[id] = cloneWorkflow(w)
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.templates, m.workflows = tx.templates, tx.workflows
	m.audits = append(m.audits, tx.audits...)
	m.locks = append(m.locks, tx.locks...)
	return nil
}

func (m *memStore) GetTemplate(_ context.Context, tenantID, templateID string) (Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok || t.TenantID != tenantID {
		return Template{}, ErrTemplateNotFound
	}
	return cloneTemplate(t), nil
}

func (m *memStore) ListTemplates(_ context.Context, tenantID string, activeOnly bool) ([]Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Template, 0)
	for _, t := range m.templates {
		if t.TenantID == tenantID && (!activeOnly || t.Active) {
			out = append(out, cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetWorkflow(_ context.Context, tenantID, workflowID string) (Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[workflowID]
	if !ok || w.TenantID != tenantID {
		return Workflow{}, ErrWorkflowNotFound
	}
	return cloneWorkflow(w), nil
}

func (m *memStore) ListWorkflows(_ context.Context, tenantID string, f WorkflowFilter) ([]Workflow, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Workflow, 0)
	for _, w := range m.workflows {
		if w.TenantID != tenantID || (f.Status != "" && w.Status != f.Status) {
			continue
		}
		if f.VisibleTo != "" && w.EmployeeID != f.VisibleTo && !(f.IncludeReports && w.ManagerID == f.VisibleTo) {
			continue
		}
		out = append(out, cloneWorkflow(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) workflow(id string) Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneWorkflow(m.workflows[id])
}

func (m *memStore) counts() (workflows, audits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workflows), len(m.audits)
}

func (m *memStore) takenLocks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locks...)
}

type memTx struct {
	employees map[string]core.Employee
	templates map[string]Template
	workflows map[string]Workflow
	audits    []audit.Entry
	failSave  error
	locks     []string
}

func (t *memTx) InsertTemplate(_ context.Context, tmpl Template) error {
	t.templates[tmpl.ID] = cloneTemplate(tmpl)
	return nil
}

func (t *memTx) LockTemplate(_ context.Context, tenantID, templateID string) (Template, error) {
	t.locks = append(t.locks, "share:"+templateID)
	return t.template(tenantID, templateID)
}

func (t *memTx) LockTemplateForUpdate(_ context.Context, tenantID, templateID string) (Template, error) {
	t.locks = append(t.locks, "update:"+templateID)
	return t.template(tenantID, templateID)
}

func (t *memTx) template(tenantID, templateID string) (Template, error) {
	tmpl, ok := t.templates[templateID]
	if !ok || tmpl.TenantID != tenantID {
		return Template{}, ErrTemplateNotFound
	}
	return cloneTemplate(tmpl), nil
}

func (t *memTx) SetTemplateActive(_ context.Context, _, templateID string, active bool, at time.Time) error {
	tmpl := t.templates[templateID]
	tmpl.Active = active
	tmpl.UpdatedAt = at
	t.templates[templateID] = tmpl
	return nil
}

func (t *memTx) LockEmployee(_ context.Context, _, employeeID string) (core.Employee, error) {
	emp, ok := t.employees[employeeID]
	if !ok {
		return core.Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (t *memTx) OpenWorkflowExists(_ context.Context, tenantID, employeeID string) (bool, error) {
	for _, w := range t.workflows {
		if w.TenantID == tenantID && w.EmployeeID == employeeID && w.Status != "completed" {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertWorkflow(_ context.Context, w Workflow) error {
	t.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (t *memTx) LockWorkflowByTask(_ context.Context, tenantID, taskID string) (Workflow, error) {
	for _, w := range t.workflows {
		if w.TenantID != tenantID {
			continue
		}
		if _, ok := w.task(taskID); ok {
			return cloneWorkflow(w), nil
		}
	}
	return Workflow{}, ErrTaskNotFound
}

func (t *memTx) SaveWorkflow(_ context.Context, w Workflow) error {
	if t.failSave != nil {
		return t.failSave
	}
	t.workflows[w.ID] = cloneWorkflow(w)
	return nil
}

func (t *memTx) RecordAudit(_ context.Context, _ string, entry audit.Entry) error {
	t.audits = append(t.audits, entry)
	return nil
}

func cloneTemplate(t Template) Template {
	t.Tasks = append([]TemplateTask(nil), t.Tasks...)
	return t
}

func cloneWorkflow(w Workflow) Workflow {
	w.Tasks = append([]Task(nil), w.Tasks...)
	return w
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
}

func (r *recordingNotifier) Send(_ context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
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
