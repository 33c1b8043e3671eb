package leave

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

const requestColumns = `
    r.id, r.tenant_id, r.employee_id, COALESCE(e.manager_id::text, ''), r.leave_type, r.start_date, r.end_date,
    r.start_half, r.end_half, r.days, COALESCE(r.reason, ''), r.status, COALESCE(r.decided_by::text, ''),
    COALESCE(r.decision_note, ''), r.decided_at, r.created_at, r.updated_at`

const requestFrom = `
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id AND e.tenant_id = r.tenant_id`

func (s *Store) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.Tx.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	return scanRequest(s.Tx.Pool.QueryRow(ctx, "SELECT"+requestColumns+requestFrom+`
    WHERE r.tenant_id = $1 AND r.id = $2`, tenantID, requestID))
}

func (s *Store) ListRequests(ctx context.Context, tenantID string, filter ListFilter) ([]LeaveRequest, int, error) {
	where := requestFrom + " WHERE r.tenant_id = $1"
	args := []any{tenantID}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND r.employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if filter.VisibleTo != "" {
		args = append(args, filter.VisibleTo)
		n := len(args)
		if filter.IncludeReports {
			where += fmt.Sprintf(" AND (r.employee_id = $%d OR e.manager_id = $%d)", n, n)
		} else {
			where += fmt.Sprintf(" AND r.employee_id = $%d", n)
		}
	}

	var total int
	if err := s.Tx.Pool.QueryRow(ctx, "SELECT COUNT(1)"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := "SELECT" + requestColumns + where + fmt.Sprintf(" ORDER BY r.start_date DESC, r.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := s.Tx.Pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]LeaveRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) ListBalances(ctx context.Context, tenantID, employeeID string) ([]Balance, error) {
	rows, err := s.Tx.Pool.Query(ctx, `
    SELECT employee_id, leave_type, pending, used, updated_at
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY leave_type
  `, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Balance, 0)
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.EmployeeID, &b.Type, &b.Pending, &b.Used, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(
		&r.ID, &r.TenantID, &r.EmployeeID, &r.ManagerID, &r.Type, &r.StartDate, &r.EndDate,
		&r.StartHalf, &r.EndHalf, &r.Days, &r.Reason, &r.Status, &r.DecidedBy,
		&r.DecisionNote, &r.DecidedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	return r, err
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) LockRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error) {
	return scanRequest(s.tx.QueryRow(ctx, "SELECT"+requestColumns+requestFrom+`
    WHERE r.tenant_id = $1 AND r.id = $2
    FOR UPDATE OF r`, tenantID, requestID))
}

func (s *txStore) LockEmployee(ctx context.Context, tenantID, employeeID string) error {
	var id string
	err := s.tx.QueryRow(ctx, `
    SELECT id FROM employees
    WHERE tenant_id = $1 AND id = $2
    FOR UPDATE
  `, tenantID, employeeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEmployeeNotFound
	}
	return err
}

func (s *txStore) OverlapExists(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE tenant_id = $1 AND employee_id = $2 AND status IN ('pending', 'approved')
        AND start_date <= $4 AND end_date >= $3
    )
  `, tenantID, employeeID, start, end).Scan(&exists)
	return exists, err
}

func (s *txStore) InsertRequest(ctx context.Context, r LeaveRequest) error {
	_, err := s.tx.Exec(ctx, `
    INSERT INTO leave_requests (id, tenant_id, employee_id, leave_type, start_date, end_date, start_half, end_half,
                                days, reason, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, r.ID, r.TenantID, r.EmployeeID, r.Type, r.StartDate, r.EndDate, r.StartHalf, r.EndHalf,
		r.Days, db.NullIfEmpty(r.Reason), r.Status, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *txStore) SaveRequest(ctx context.Context, r LeaveRequest) error {
	_, err := s.tx.Exec(ctx, `
    UPDATE leave_requests
    SET status = $3, decided_by = $4, decision_note = $5, decided_at = $6, updated_at = $7
    WHERE tenant_id = $1 AND id = $2
  `, r.TenantID, r.ID, r.Status, db.NullIfEmpty(r.DecidedBy), db.NullIfEmpty(r.DecisionNote), r.DecidedAt, r.UpdatedAt)
	return err
}

func (s *txStore) ShiftBalance(ctx context.Context, tenantID, employeeID, leaveType string, pending, used float64, at time.Time) error {
	_, err := s.tx.Exec(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type, pending, used, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (tenant_id, employee_id, leave_type) DO UPDATE
    SET pending = leave_balances.pending + EXCLUDED.pending,
        used = leave_balances.used + EXCLUDED.used,
        updated_at = EXCLUDED.updated_at
  `, tenantID, employeeID, leaveType, pending, used, at)
	return err
}

func (s *txStore) RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error {
	return audit.Insert(ctx, s.tx, tenantID, entry)
}
