package leave

import (
	"context"
	"time"

	"hrflow/internal/domain/audit"
)

type StoreAPI interface {
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
	GetRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, tenantID string, filter ListFilter) ([]LeaveRequest, int, error)
	ListBalances(ctx context.Context, tenantID, employeeID string) ([]Balance, error)
}

type TxStore interface {
	// LockEmployee serialises request filing for one employee so the overlap
	// check and the insert see the same set of open requests.
	LockEmployee(ctx context.Context, tenantID, employeeID string) error
	LockRequest(ctx context.Context, tenantID, requestID string) (LeaveRequest, error)
	// OverlapExists reports pending or approved leave for the employee that
	// intersects [start, end].
	OverlapExists(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error)
	InsertRequest(ctx context.Context, r LeaveRequest) error
	SaveRequest(ctx context.Context, r LeaveRequest) error
	ShiftBalance(ctx context.Context, tenantID, employeeID, leaveType string, pending, used float64, at time.Time) error
	RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error
}
