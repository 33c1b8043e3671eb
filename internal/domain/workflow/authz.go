package workflow

import "hrflow/internal/domain/auth"

// Action is an operation a caller attempts on an entity.
type Action string

const (
	ActionRead                 Action = "read"
	ActionCreateAppraisal      Action = "appraisal.create"
	ActionSubmitSelfAssessment Action = "appraisal.self_assessment"
	ActionSubmitReview         Action = "appraisal.review"
	ActionEditGoals            Action = "appraisal.goals"
	ActionManageTemplates      Action = "onboarding.templates"
	ActionAssignWorkflow       Action = "onboarding.assign"
	ActionWorkTask             Action = "onboarding.task"
	ActionRequestLeave         Action = "leave.request"
	ActionCancelLeave          Action = "leave.cancel"
	ActionDecideLeave          Action = "leave.decide"
)

// Caller is an authenticated account resolved to its employee record.
// EmployeeID is empty when the account has no employee record.
type Caller struct {
	TenantID   string
	UserID     string
	Role       string
	EmployeeID string
}

func (c Caller) Linked() bool { return c.EmployeeID != "" }

// Subject carries the relationship fields of the target entity.
type Subject struct {
	EmployeeID string
	ReviewerID string
	ManagerID  string
}

// Authorize decides whether caller may perform action on subject. It is pure:
// the same role, relationship and subject fields always give the same answer.
func Authorize(caller Caller, subject Subject, action Action) Decision {
	if !caller.Linked() {
		return Decision{Reason: ReasonEmployeeNotLinked}
	}
	admin := auth.IsAdmin(caller.Role)
	owner := subject.EmployeeID != "" && subject.EmployeeID == caller.EmployeeID
	reviewer := subject.ReviewerID != "" && subject.ReviewerID == caller.EmployeeID
	manager := caller.Role == auth.RoleManager && subject.ManagerID != "" && subject.ManagerID == caller.EmployeeID

	switch action {
	case ActionRead:
		return allowIf(admin || owner || reviewer || manager, ReasonNotRelated)
	case ActionCreateAppraisal:
		if admin || manager {
			return Decision{Allowed: true}
		}
		if caller.Role == auth.RoleManager {
			return Decision{Reason: ReasonNotRelated}
		}
		return Decision{Reason: ReasonRoleRequired}
	case ActionManageTemplates, ActionAssignWorkflow:
		return allowIf(admin, ReasonRoleRequired)
	case ActionSubmitSelfAssessment, ActionWorkTask, ActionRequestLeave, ActionCancelLeave:
		return allowIf(owner, ReasonNotRelated)
	case ActionSubmitReview, ActionEditGoals:
		if caller.Role != auth.RoleManager && !admin {
			return Decision{Reason: ReasonRoleRequired}
		}
		return allowIf(reviewer, ReasonNotRelated)
	case ActionDecideLeave:
		if owner {
			return Decision{Reason: ReasonSelfDecision}
		}
		if admin || manager {
			return Decision{Allowed: true}
		}
		if caller.Role == auth.RoleManager {
			return Decision{Reason: ReasonNotRelated}
		}
		return Decision{Reason: ReasonRoleRequired}
	}
	return Decision{Reason: ReasonRoleRequired}
}

func allowIf(ok bool, reason string) Decision {
	if ok {
		return Decision{Allowed: true}
	}
	return Decision{Reason: reason}
}

// RequireAuthorized is Authorize as an UNAUTHORIZED error.
func RequireAuthorized(caller Caller, subject Subject, action Action) error {
	d := Authorize(caller, subject, action)
	if d.Allowed {
		return nil
	}
	return Unauthorized(d.Reason, deniedMessage(d.Reason, action))
}

// RequireLinked rejects callers without an employee record, for operations
// that scope results to the caller rather than to one subject.
func RequireLinked(caller Caller) error {
	if caller.Linked() {
		return nil
	}
	return Unauthorized(ReasonEmployeeNotLinked, deniedMessage(ReasonEmployeeNotLinked, ActionRead))
}

func deniedMessage(reason string, action Action) string {
	switch reason {
	case ReasonEmployeeNotLinked:
		return "no employee record is linked to this account"
	case ReasonRoleRequired:
		return "role does not permit " + string(action)
	case ReasonSelfDecision:
		return "cannot decide on your own request"
	}
	return "not related to this record"
}
