package workflow

// Kind identifies an entity type with its own transition graph.
type Kind string

const (
	KindAppraisal Kind = "appraisal"
	KindWorkflow  Kind = "onboarding_workflow"
	KindTask      Kind = "onboarding_task"
	KindLeave     Kind = "leave_request"
)

const (
	AppraisalDraft     = "draft"
	AppraisalSubmitted = "submitted"
	AppraisalCompleted = "completed"

	WorkflowNotStarted = "not_started"
	WorkflowInProgress = "in_progress"
	WorkflowCompleted  = "completed"

	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"

	LeavePending   = "pending"
	LeaveApproved  = "approved"
	LeaveRejected  = "rejected"
	LeaveCancelled = "cancelled"
)
