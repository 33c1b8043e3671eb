package appraisal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/audit"
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

const appraisalColumns = `
    a.id, a.tenant_id, a.employee_id, a.reviewer_id, COALESCE(e.manager_id::text, ''),
    a.period_start, a.period_end, COALESCE(a.self_assessment, ''), COALESCE(a.manager_feedback, ''),
    a.rating, a.status, a.self_assessment_submitted_at, a.review_completed_at, a.created_at, a.updated_at`

func (s *Store) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.Tx.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) GetAppraisal(ctx context.Context, tenantID, appraisalID string) (Appraisal, error) {
	return loadAppraisal(ctx, s.Tx.Pool, tenantID, appraisalID, "")
}

func (s *Store) ListAppraisals(ctx context.Context, tenantID string, filter ListFilter) ([]Appraisal, int, error) {
	where := " FROM appraisals a JOIN employees e ON e.id = a.employee_id AND e.tenant_id = a.tenant_id WHERE a.tenant_id = $1"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.EmployeeID != "" {
		add(" AND a.employee_id = $%d", filter.EmployeeID)
	}
	if filter.ReviewerID != "" {
		add(" AND a.reviewer_id = $%d", filter.ReviewerID)
	}
	if filter.Status != "" {
		add(" AND a.status = $%d", filter.Status)
	}
	if filter.VisibleTo != "" {
		args = append(args, filter.VisibleTo)
		n := len(args)
		if filter.IncludeReports {
			where += fmt.Sprintf(" AND (a.employee_id = $%d OR a.reviewer_id = $%d OR e.manager_id = $%d)", n, n, n)
		} else {
			where += fmt.Sprintf(" AND (a.employee_id = $%d OR a.reviewer_id = $%d)", n, n)
		}
	}

	var total int
	if err := s.Tx.Pool.QueryRow(ctx, "SELECT COUNT(1)"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT" + appraisalColumns + where + fmt.Sprintf(" ORDER BY a.period_start DESC, a.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.Tx.Pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Appraisal, 0)
	for rows.Next() {
		a, err := scanAppraisal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range out {
		goals, err := loadGoals(ctx, s.Tx.Pool, tenantID, out[i].ID)
		if err != nil {
			return nil, 0, err
		}
		out[i].Goals = goals
		out[i].refreshProgress()
	}
	return out, total, nil
}

func loadAppraisal(ctx context.Context, q querier, tenantID, appraisalID, lock string) (Appraisal, error) {
	a, err := scanAppraisal(q.QueryRow(ctx, `
    SELECT`+appraisalColumns+`
    FROM appraisals a
    JOIN employees e ON e.id = a.employee_id AND e.tenant_id = a.tenant_id
    WHERE a.tenant_id = $1 AND a.id = $2`+lock, tenantID, appraisalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Appraisal{}, ErrNotFound
	}
	if err != nil {
		return Appraisal{}, err
	}
	goals, err := loadGoals(ctx, q, tenantID, a.ID)
	if err != nil {
		return Appraisal{}, err
	}
	a.Goals = goals
	a.refreshProgress()
	return a, nil
}

func scanAppraisal(row pgx.Row) (Appraisal, error) {
	var a Appraisal
	err := row.Scan(
		&a.ID, &a.TenantID, &a.EmployeeID, &a.ReviewerID, &a.ManagerID,
		&a.PeriodStart, &a.PeriodEnd, &a.SelfAssessment, &a.ManagerFeedback,
		&a.Rating, &a.Status, &a.SelfAssessmentSubmittedAt, &a.ReviewCompletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func loadGoals(ctx context.Context, q querier, tenantID, appraisalID string) ([]Goal, error) {
	rows, err := q.Query(ctx, `
    SELECT id, title, COALESCE(description, ''), target_date, status, COALESCE(notes, ''), created_at, updated_at
    FROM appraisal_goals
    WHERE tenant_id = $1 AND appraisal_id = $2
    ORDER BY sort_order, created_at, id
  `, tenantID, appraisalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]Goal, 0)
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.TargetDate, &g.Status, &g.Notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) LockAppraisal(ctx context.Context, tenantID, appraisalID string) (Appraisal, error) {
	return loadAppraisal(ctx, s.tx, tenantID, appraisalID, " FOR UPDATE OF a")
}

func (s *txStore) AppraisalExists(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM appraisals
      WHERE tenant_id = $1 AND employee_id = $2 AND period_start = $3 AND period_end = $4
    )
  `, tenantID, employeeID, start, end).Scan(&exists)
	return exists, err
}

func (s *txStore) InsertAppraisal(ctx context.Context, a Appraisal) error {
	_, err := s.tx.Exec(ctx, `
    INSERT INTO appraisals (id, tenant_id, employee_id, reviewer_id, period_start, period_end, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, a.ID, a.TenantID, a.EmployeeID, a.ReviewerID, a.PeriodStart, a.PeriodEnd, a.Status, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err, "appraisals_employee_period_key") {
		return ErrDuplicatePeriod
	}
	if err != nil {
		return err
	}
	return s.syncGoals(ctx, a)
}

func (s *txStore) SaveAppraisal(ctx context.Context, a Appraisal) error {
	_, err := s.tx.Exec(ctx, `
    UPDATE appraisals
    SET self_assessment = $3, manager_feedback = $4, rating = $5, status = $6,
        self_assessment_submitted_at = $7, review_completed_at = $8, updated_at = $9
    WHERE tenant_id = $1 AND id = $2
  `, a.TenantID, a.ID, db.NullIfEmpty(a.SelfAssessment), db.NullIfEmpty(a.ManagerFeedback), a.Rating, a.Status,
		a.SelfAssessmentSubmittedAt, a.ReviewCompletedAt, a.UpdatedAt)
	if err != nil {
		return err
	}
	return s.syncGoals(ctx, a)
}

// syncGoals makes the stored goal rows match a.Goals exactly, with
// sort_order holding each goal's position in the slice.
func (s *txStore) syncGoals(ctx context.Context, a Appraisal) error {
	ids := make([]string, len(a.Goals))
	for i, g := range a.Goals {
		ids[i] = g.ID
	}
	if _, err := s.tx.Exec(ctx, `
    DELETE FROM appraisal_goals
    WHERE tenant_id = $1 AND appraisal_id = $2 AND NOT (id::text = ANY($3))
  `, a.TenantID, a.ID, ids); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, g := range a.Goals {
		batch.Queue(`
      INSERT INTO appraisal_goals (id, tenant_id, appraisal_id, title, description, target_date, status, notes, sort_order, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
      ON CONFLICT (id) DO UPDATE
        SET title = EXCLUDED.title,
            sort_order = EXCLUDED.sort_order,
            description = EXCLUDED.description,
            target_date = EXCLUDED.target_date,
            status = EXCLUDED.status,
            notes = EXCLUDED.notes,
            updated_at = EXCLUDED.updated_at
    `, g.ID, a.TenantID, a.ID, g.Title, db.NullIfEmpty(g.Description), g.TargetDate, g.Status, db.NullIfEmpty(g.Notes), i, g.CreatedAt, g.UpdatedAt)
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.tx.SendBatch(ctx, batch).Close()
}

func (s *txStore) RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error {
	return audit.Insert(ctx, s.tx, tenantID, entry)
}
