package appraisal

import (
	"context"
	"time"

	"hrflow/internal/domain/audit"
)

type StoreAPI interface {
	// WithinTx runs fn in one transaction; an error from fn rolls back.
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
	GetAppraisal(ctx context.Context, tenantID, appraisalID string) (Appraisal, error)
	ListAppraisals(ctx context.Context, tenantID string, filter ListFilter) ([]Appraisal, int, error)
}

type TxStore interface {
	// LockAppraisal loads the aggregate and holds its row lock until the
	// transaction ends.
	LockAppraisal(ctx context.Context, tenantID, appraisalID string) (Appraisal, error)
	AppraisalExists(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error)
	InsertAppraisal(ctx context.Context, a Appraisal) error
	SaveAppraisal(ctx context.Context, a Appraisal) error
	RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error
}
