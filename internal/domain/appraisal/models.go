package appraisal

import (
	"time"

	"hrflow/internal/domain/workflow"
)

type Appraisal struct {
	ID                        string            `json:"id"`
	TenantID                  string            `json:"tenantId"`
	EmployeeID                string            `json:"employeeId"`
	ReviewerID                string            `json:"reviewerId"`
	ManagerID                 string            `json:"-"`
	PeriodStart               time.Time         `json:"periodStart"`
	PeriodEnd                 time.Time         `json:"periodEnd"`
	SelfAssessment            string            `json:"selfAssessment,omitempty"`
	ManagerFeedback           string            `json:"managerFeedback,omitempty"`
	Rating                    *int              `json:"rating,omitempty"`
	Status                    string            `json:"status"`
	Goals                     []Goal            `json:"goals"`
	GoalProgress              workflow.Progress `json:"goalProgress"`
	SelfAssessmentSubmittedAt *time.Time        `json:"selfAssessmentSubmittedAt,omitempty"`
	ReviewCompletedAt         *time.Time        `json:"reviewCompletedAt,omitempty"`
	CreatedAt                 time.Time         `json:"createdAt"`
	UpdatedAt                 time.Time         `json:"updatedAt"`
}

// Subject is the relationship view the authorizer sees.
func (a Appraisal) Subject() workflow.Subject {
	return workflow.Subject{EmployeeID: a.EmployeeID, ReviewerID: a.ReviewerID, ManagerID: a.ManagerID}
}

func (a *Appraisal) refreshProgress() {
	states := make([]workflow.ItemState, len(a.Goals))
	for i, g := range a.Goals {
		states[i] = g.itemState()
	}
	a.GoalProgress = workflow.ComputeProgress(states)
}

type Goal struct {
	workflow.Meta
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
}

func (g Goal) itemState() workflow.ItemState {
	switch g.Status {
	case GoalAchieved, GoalNotAchieved:
		return workflow.ItemState{Started: true, Completed: true}
	case GoalInProgress:
		return workflow.ItemState{Started: true}
	}
	return workflow.ItemState{}
}

type GoalInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"targetDate"`
	Status      string     `json:"status"`
}

// GoalPatch changes the named fields of one goal; nil fields are left alone.
type GoalPatch struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	TargetDate  *time.Time `json:"targetDate"`
	Status      *string    `json:"status"`
	Notes       *string    `json:"notes"`
}

// GoalStatusUpdate is the goal change allowed alongside a submission.
type GoalStatusUpdate struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type GoalChanges struct {
	Add    []GoalInput `json:"add"`
	Update []GoalPatch `json:"update"`
	Remove []string    `json:"remove"`
}

type CreateInput struct {
	EmployeeID  string      `json:"employeeId"`
	ReviewerID  string      `json:"reviewerId"`
	PeriodStart time.Time   `json:"periodStart"`
	PeriodEnd   time.Time   `json:"periodEnd"`
	Goals       []GoalInput `json:"goals"`
}

type SelfAssessmentInput struct {
	SelfAssessment string             `json:"selfAssessment"`
	GoalUpdates    []GoalStatusUpdate `json:"goalUpdates"`
}

type ReviewInput struct {
	Feedback    string             `json:"managerFeedback"`
	Rating      int                `json:"rating"`
	GoalUpdates []GoalStatusUpdate `json:"goalUpdates"`
}

// Result is a mutated appraisal plus what the goal changes matched.
type Result struct {
	Appraisal Appraisal `json:"appraisal"`
	Matched   int       `json:"matchedCount"`
	Unmatched []string  `json:"unmatchedIds,omitempty"`
}

type ListFilter struct {
	EmployeeID string
	ReviewerID string
	Status     string
	Limit      int
	Offset     int

	// VisibleTo restricts rows to those the employee owns or reviews, plus
	// those of their direct reports when IncludeReports is set.
	VisibleTo      string
	IncludeReports bool
}
