package onboarding

import (
	"context"
	"time"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
)

type StoreAPI interface {
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
	GetTemplate(ctx context.Context, tenantID, templateID string) (Template, error)
	ListTemplates(ctx context.Context, tenantID string, activeOnly bool) ([]Template, error)
	GetWorkflow(ctx context.Context, tenantID, workflowID string) (Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string, filter WorkflowFilter) ([]Workflow, int, error)
}

type TxStore interface {
	InsertTemplate(ctx context.Context, t Template) error
	// LockTemplate takes a shared lock: assignments read the template while
	// LockTemplateForUpdate holders wait.
	LockTemplate(ctx context.Context, tenantID, templateID string) (Template, error)
	LockTemplateForUpdate(ctx context.Context, tenantID, templateID string) (Template, error)
	SetTemplateActive(ctx context.Context, tenantID, templateID string, active bool, at time.Time) error
	// LockEmployee serializes workflow assignment per employee.
	LockEmployee(ctx context.Context, tenantID, employeeID string) (core.Employee, error)
	OpenWorkflowExists(ctx context.Context, tenantID, employeeID string) (bool, error)
	InsertWorkflow(ctx context.Context, w Workflow) error
	LockWorkflowByTask(ctx context.Context, tenantID, taskID string) (Workflow, error)
	SaveWorkflow(ctx context.Context, w Workflow) error
	RecordAudit(ctx context.Context, tenantID string, entry audit.Entry) error
}
