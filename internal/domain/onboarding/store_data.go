package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
	"hrflow/internal/platform/db"
)

type Store struct {
	Tx *db.TxRunner
}

func NewStore(tx *db.TxRunner) *Store {
	return &Store{Tx: tx}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.Tx.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

const templateColumns = `
    id, tenant_id, name, COALESCE(description, ''), COALESCE(department_id::text, ''),
    active, estimated_days, created_at, updated_at`

func (s *Store) GetTemplate(ctx context.Context, tenantID, templateID string) (Template, error) {
	return loadTemplate(ctx, s.Tx.Pool, tenantID, templateID, "")
}

func (s *Store) ListTemplates(ctx context.Context, tenantID string, activeOnly bool) ([]Template, error) {
	rows, err := s.Tx.Pool.Query(ctx, `
    SELECT`+templateColumns+`
    FROM onboarding_templates
    WHERE tenant_id = $1 AND (NOT $2 OR active)
    ORDER BY name
  `, tenantID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Tasks, err = loadTemplateTasks(ctx, s.Tx.Pool, tenantID, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadTemplate(ctx context.Context, q querier, tenantID, templateID, lock string) (Template, error) {
	t, err := scanTemplate(q.QueryRow(ctx, `
    SELECT`+templateColumns+`
    FROM onboarding_templates
    WHERE tenant_id = $1 AND id = $2`+lock, tenantID, templateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrTemplateNotFound
	}
	if err != nil {
		return Template{}, err
	}
	t.Tasks, err = loadTemplateTasks(ctx, q, tenantID, t.ID)
	return t, err
}

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &t.DepartmentID, &t.Active, &t.EstimatedDays, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func loadTemplateTasks(ctx context.Context, q querier, tenantID, templateID string) ([]TemplateTask, error) {
	rows, err := q.Query(ctx, `
    SELECT id, title, COALESCE(description, ''), day_offset, sort_order, requires_document, created_at, updated_at
    FROM onboarding_template_tasks
    WHERE tenant_id = $1 AND template_id = $2
    ORDER BY sort_order, id
  `, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]TemplateTask, 0)
	for rows.Next() {
		var t TemplateTask
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DayOffset, &t.Order, &t.RequiresDocument, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

const workflowColumns = `
    w.id, w.tenant_id, w.employee_id, COALESCE(e.manager_id::text, ''), w.template_id, w.status, w.progress,
    COALESCE(w.assigned_by::text, ''), w.assigned_at, w.started_at, w.completed_at, w.target_completion_date,
    w.created_at, w.updated_at`

const workflowFrom = `
    FROM onboarding_workflows w
    JOIN employees e ON e.id = w.employee_id AND e.tenant_id = w.tenant_id`

func (s *Store) GetWorkflow(ctx context.Context, tenantID, workflowID string) (Workflow, error) {
	return loadWorkflow(ctx, s.Tx.Pool, tenantID, workflowID, "")
}

func (s *Store) ListWorkflows(ctx context.Context, tenantID string, filter WorkflowFilter) ([]Workflow, int, error) {
	where := workflowFrom + " WHERE w.tenant_id = $1"
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND w.employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND w.status = $%d", len(args))
	}
	if filter.VisibleTo != "" {
		args = append(args, filter.VisibleTo)
		n := len(args)
		if filter.IncludeReports {
			where += fmt.Sprintf(" AND (w.employee_id = $%d OR e.manager_id = $%d)", n, n)
		} else {
			where += fmt.Sprintf(" AND w.employee_id = $%d", n)
		}
	}

	var total int
	if err := s.Tx.Pool.QueryRow(ctx, "SELECT COUNT(1)"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT" + workflowColumns + where + fmt.Sprintf(" ORDER BY w.assigned_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.Tx.Pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		if out[i].Tasks, err = loadTasks(ctx, s.Tx.Pool, tenantID, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func loadWorkflow(ctx context.Context, q querier, tenantID, workflowID, lock string) (Workflow, error) {
	w, err := scanWorkflow(q.QueryRow(ctx, "SELECT"+workflowColumns+workflowFrom+`
    WHERE w.tenant_id = $1 AND w.id = $2`+lock, tenantID, workflowID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Workflow{}, ErrWorkflowNotFound
	}
	if err != nil {
		return Workflow{}, err
	}
	w.Tasks, err = loadTasks(ctx, q, tenantID, w.ID)
	return w, err
}

func scanWorkflow(row pgx.Row) (Workflow, error) {
	var w Workflow
	err := row.Scan(
		&w.ID, &w.TenantID, &w.EmployeeID, &w.ManagerID, &w.TemplateID, &w.Status, &w.Progress,
		&w.AssignedBy, &w.AssignedAt, &w.StartedAt, &w.CompletedAt, &w.TargetCompletionDate,
		&w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

func loadTasks(ctx context.Context, q querier, tenantID, workflowID string) ([]Task, error) {
	rows, err := q.Query(ctx, `
    SELECT id, COALESCE(template_task_id::text, ''), title, COALESCE(description, ''), due_date, status,
           COALESCE(document_ref, ''), sort_order, requires_document, completed_at, created_at, updated_at
    FROM onboarding_tasks
    WHERE tenant_id = $1 AND workflow_id = $2
    ORDER BY sort_order, id
  `, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.TemplateTaskID, &t.Title, &t.Description, &t.DueDate, &t.Status,
			&t.DocumentRef, &t.Order, &t.RequiresDocument, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) InsertTemplate(ctx context.Context, t Template) error {
	if _, err := s.tx.Exec(ctx, `
    INSERT INTO onboarding_templates (id, tenant_id, name, description, department_id, active, estimated_days, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, t.ID, t.TenantID, t.Name, db.NullIfEmpty(t.Description), db.NullIfEmpty(t.DepartmentID), t.Active, t.EstimatedDays, t.CreatedAt, t.UpdatedAt); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, task := range t.Tasks {
		batch.Queue(`
      INSERT INTO onboarding_template_tasks (id, tenant_id, template_id, title, description, day_offset, sort_order, requires_document, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, task.ID, t.TenantID, t.ID, task.Title, db.NullIfEmpty(task.Description), task.DayOffset, task.Order, task.RequiresDocument, task.CreatedAt, task.UpdatedAt)
	}
	return s.tx.SendBatch(ctx, batch).Close()
}

func (s *txStore) LockTemplate(ctx context.Context, tenantID, templateID string) (Template, error) {
	return loadTemplate(ctx, s.tx, tenantID, templateID, " FOR SHARE")
}

func (s *txStore) LockTemplateForUpdate(ctx context.Context, tenantID, templateID string) (Template, error) {
	return loadTemplate(ctx, s.tx, tenantID, templateID, " FOR UPDATE")
}

func (s *txStore) SetTemplateActive(ctx context.Context, tenantID, templateID string, active bool, at time.Time) error {
	tag, err := s.tx.Exec(ctx, `
    UPDATE onboarding_templates SET active = $3, updated_at = $4
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID, active, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *txStore) LockEmployee(ctx context.Context, tenantID, employeeID string) (core.Employee, error) {
	var emp core.Employee
	err := s.tx.QueryRow(ctx, `
    SELECT id, COALESCE(user_id::text, ''), COALESCE(manager_id::text, ''), email, first_name, last_name, status
    FROM employees
    WHERE tenant_id = $1 AND id = $2
    FOR UPDATE
  `, tenantID, employeeID).Scan(&emp.ID, &emp.UserID, &emp.ManagerID, &emp.Email, &emp.FirstName, &emp.LastName, &emp.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *txStore) OpenWorkflowExists(ctx context.Context, tenantID, employeeID string) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM onboarding_workflows
      WHERE tenant_id = $1 AND employee_id = $2 AND status <> 'completed'
    )
  `, tenantID, employeeID).Scan(&exists)
	return exists, err
}

func (s *txStore) InsertWorkflow(ctx context.Context, w Workflow) error {
	_, err := s.tx.Exec(ctx, `
    INSERT INTO onboarding_workflows (id, tenant_id, employee_id, template_id, status, progress, assigned_by, assigned_at,
                                      target_completion_date, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, w.ID, w.TenantID, w.EmployeeID, w.TemplateID, w.Status, w.Progress, db.NullIfEmpty(w.AssignedBy), w.AssignedAt,
		w.TargetCompletionDate, w.CreatedAt, w.UpdatedAt)
	if db.IsUniqueViolation(err, "onboarding_workflows_open_employee_idx") {
		return ErrWorkflowExists
	}
	if err != nil {
		return err
	}
	return s.upsertTasks(ctx, w)
}

func (s *txStore) LockWorkflowByTask(ctx context.Context, tenantID, taskID string) (Workflow, error) {
	var workflowID string
	err := s.tx.QueryRow(ctx, `
    SELECT workflow_id FROM onboarding_tasks WHERE tenant_id = $1 AND id = $2
  `, tenantID, taskID).Scan(&workflowID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workflow{}, ErrTaskNotFound
	}
	if err != nil {
		return Workflow{}, err
	}
	return loadWorkflow(ctx, s.tx, tenantID, workflowID, " FOR UPDATE OF w")
}

func (s *txStore) SaveWorkflow(ctx context.Context, w Workflow) error {
	if _, err := s.tx.Exec(ctx, `
    UPDATE onboarding_workflows
    SET status = $3, progress = $4, started_at = $5, completed_at = $6, updated_at = $7
    WHERE tenant_id = $1 AND id = $2
  `, w.TenantID, w.ID, w.Status, w.Progress, w.StartedAt, w.CompletedAt, w.UpdatedAt); err != nil {
		return err
	}
	return s.upsertTasks(ctx, w)
}

func (s *txStore) upsertTasks(ctx context.Context, w Workflow) error {
	batch := &pgx.Batch{}
	for _, t := range w.Tasks {
		batch.Queue(`
      INSERT INTO onboarding_tasks (id, tenant_id, workflow_id, template_task_id, title, description, due_date, status,
                                    document_ref, sort_order, requires_document, completed_at, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
      ON CONFLICT (id) DO UPDATE
        SET status = EXCLUDED.status,
            document_ref = EXCLUDED.document_ref,
            due_date = EXCLUDED.due_date,
            completed_at = EXCLUDED.completed_at,
            updated_at = EXCLUDED.updated_at
    `, t.ID, w.TenantID, w.ID, db.NullIfEmpty(t.TemplateTaskID), t.Title, db.NullIfEmpty(t.Description), t.DueDate, t.Status,
			db.NullIfEmpty(t.DocumentRef), t.Order, t.RequiresDocument, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.tx.SendBatch(ctx, batch).Close()
}

func (s *txStore) RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error {
	return audit.Insert(ctx, s.tx, tenantID, entry)
}
