package onboarding

import (
	"time"

	"hrflow/internal/domain/workflow"
)

type Template struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenantId"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	DepartmentID  string         `json:"departmentId,omitempty"`
	Active        bool           `json:"active"`
	EstimatedDays int            `json:"estimatedDays"`
	Tasks         []TemplateTask `json:"tasks"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type TemplateTask struct {
	workflow.Meta
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DayOffset        int    `json:"dayOffset"`
	Order            int    `json:"order"`
	RequiresDocument bool   `json:"requiresDocument"`
}

type Workflow struct {
	ID                   string     `json:"id"`
	TenantID             string     `json:"tenantId"`
	EmployeeID           string     `json:"employeeId"`
	ManagerID            string     `json:"-"`
	TemplateID           string     `json:"templateId"`
	Status               string     `json:"status"`
	Progress             int        `json:"progress"`
	AssignedBy           string     `json:"assignedBy"`
	AssignedAt           time.Time  `json:"assignedAt"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	TargetCompletionDate time.Time  `json:"targetCompletionDate"`
	Tasks                []Task     `json:"tasks"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (w Workflow) Subject() workflow.Subject {
	return workflow.Subject{EmployeeID: w.EmployeeID, ManagerID: w.ManagerID}
}

// refresh re-derives progress and status from the tasks and stamps the
// workflow's start and completion times.
func (w *Workflow) refresh(now time.Time) error {
	states := make([]workflow.ItemState, len(w.Tasks))
	for i, t := range w.Tasks {
		states[i] = workflow.ItemState{
			Started:   t.Status == workflow.TaskInProgress,
			Completed: t.Status == workflow.TaskCompleted,
		}
	}
	p := workflow.ComputeProgress(states)
	if p.Status != w.Status {
		if err := workflow.RequireTransition(workflow.KindWorkflow, w.Status, p.Status); err != nil {
			return err
		}
		stamps := workflow.Stamp(w.Status, p.Status, workflow.Stamps{StartedAt: w.StartedAt, CompletedAt: w.CompletedAt}, now)
		w.StartedAt, w.CompletedAt = stamps.StartedAt, stamps.CompletedAt
		w.Status = p.Status
	}
	w.Progress = p.Percent
	return nil
}

func (w Workflow) task(taskID string) (Task, bool) {
	for _, t := range w.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

type Task struct {
	workflow.Meta
	TemplateTaskID   string     `json:"templateTaskId,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	DueDate          time.Time  `json:"dueDate"`
	Status           string     `json:"status"`
	DocumentRef      string     `json:"documentRef,omitempty"`
	Order            int        `json:"order"`
	RequiresDocument bool       `json:"requiresDocument"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

type TemplateInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	DepartmentID string              `json:"departmentId"`
	Tasks        []TemplateTaskInput `json:"tasks"`
}

type TemplateTaskInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	DayOffset        int    `json:"dayOffset"`
	RequiresDocument bool   `json:"requiresDocument"`
}

type AssignInput struct {
	EmployeeID string    `json:"employeeId"`
	TemplateID string    `json:"templateId"`
	StartDate  time.Time `json:"startDate"`
	// DueDateOverrides is keyed by template task id.
	DueDateOverrides map[string]time.Time `json:"dueDateOverrides"`
}

type CompleteTaskInput struct {
	DocumentRef string `json:"documentRef"`
}

// TaskResult is the changed task with its recomputed workflow.
type TaskResult struct {
	Workflow Workflow `json:"workflow"`
	Task     Task     `json:"task"`
}

type WorkflowFilter struct {
	EmployeeID string
	Status     string
	Limit      int
	Offset     int

	VisibleTo      string
	IncludeReports bool
}
