package leave

import (
	"time"

	"hrflow/internal/domain/workflow"
)

type LeaveRequest struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenantId"`
	EmployeeID   string     `json:"employeeId"`
	ManagerID    string     `json:"-"`
	Type         string     `json:"type"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	StartHalf    bool       `json:"startHalf"`
	EndHalf      bool       `json:"endHalf"`
	Days         float64    `json:"days"`
	Reason       string     `json:"reason,omitempty"`
	Status       string     `json:"status"`
	DecidedBy    string     `json:"decidedBy,omitempty"`
	DecisionNote string     `json:"decisionNote,omitempty"`
	DecidedAt    *time.Time `json:"decidedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (r LeaveRequest) Subject() workflow.Subject {
	return workflow.Subject{EmployeeID: r.EmployeeID, ManagerID: r.ManagerID}
}

type RequestInput struct {
	Type      string    `json:"type"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	StartHalf bool      `json:"startHalf"`
	EndHalf   bool      `json:"endHalf"`
	Reason    string    `json:"reason"`
}

type DecisionInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

type ListFilter struct {
	EmployeeID string
	Status     string
	Limit      int
	Offset     int

	VisibleTo      string
	IncludeReports bool
}

// Balance tracks the days an employee has booked per leave type. Pending
// holds open requests; approval moves them to Used.
type Balance struct {
	EmployeeID string    `json:"employeeId"`
	Type       string    `json:"type"`
	Pending    float64   `json:"pending"`
	Used       float64   `json:"used"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
