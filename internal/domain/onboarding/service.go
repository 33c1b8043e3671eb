package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/platform/metrics"
)

type Service struct {
	store   StoreAPI
	dir     core.Directory
	notify  notifications.Sender
	logger  *zap.Logger
	metrics *metrics.Collector

	Now   func() time.Time
	NewID func() string
}

func NewService(store StoreAPI, dir core.Directory, notify notifications.Sender, logger *zap.Logger, m *metrics.Collector) *Service {
	return &Service{
		store:   store,
		dir:     dir,
		notify:  notify,
		logger:  logger,
		metrics: m,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   uuid.NewString,
	}
}

func (s *Service) CreateTemplate(ctx context.Context, user auth.UserContext, in TemplateInput) (out Template, err error) {
	defer func() { err = s.finish(opCreateTemplate, err) }()

	if err := validateTemplate(in); err != nil {
		return Template{}, err
	}
	if _, err := s.authorize(ctx, user, workflow.Subject{}, workflow.ActionManageTemplates); err != nil {
		return Template{}, err
	}

	now := s.Now()
	t := Template{
		ID:            s.NewID(),
		TenantID:      user.TenantID,
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		DepartmentID:  strings.TrimSpace(in.DepartmentID),
		Active:        true,
		EstimatedDays: estimatedDays(in.Tasks),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	var changes workflow.Changes[TemplateTask]
	for i, task := range in.Tasks {
		changes.Add = append(changes.Add, TemplateTask{
			Title:            strings.TrimSpace(task.Title),
			Description:      strings.TrimSpace(task.Description),
			DayOffset:        task.DayOffset,
			Order:            i + 1,
			RequiresDocument: task.RequiresDocument,
		})
	}
	t.Tasks = workflow.Mutate(nil, changes, now, s.NewID).Items

	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		if err := tx.InsertTemplate(ctx, t); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, t.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      opCreateTemplate,
			EntityType:  entityTemplate,
			EntityID:    t.ID,
			After:       map[string]any{"name": t.Name, "tasks": len(t.Tasks)},
		})
	})
	if err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Service) SetTemplateActive(ctx context.Context, user auth.UserContext, templateID string, active bool) (out Template, err error) {
	defer func() { err = s.finish(opTemplateActive, err) }()

	if _, err := s.authorize(ctx, user, workflow.Subject{}, workflow.ActionManageTemplates); err != nil {
		return Template{}, err
	}
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		t, err := tx.LockTemplateForUpdate(ctx, user.TenantID, templateID)
		if err != nil {
			return err
		}
		before := t.Active
		t.Active = active
		t.UpdatedAt = s.Now()
		if err := tx.SetTemplateActive(ctx, t.TenantID, t.ID, active, t.UpdatedAt); err != nil {
			return err
		}
		out = t
		return tx.RecordAudit(ctx, t.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      opTemplateActive,
			EntityType:  entityTemplate,
			EntityID:    t.ID,
			Before:      map[string]bool{"active": before},
			After:       map[string]bool{"active": active},
		})
	})
	if err != nil {
		return Template{}, err
	}
	return out, nil
}

func (s *Service) GetTemplate(ctx context.Context, user auth.UserContext, templateID string) (out Template, err error) {
	defer func() { err = s.finish(opGetTemplate, err) }()

	if err := s.requireLinked(ctx, user); err != nil {
		return Template{}, err
	}
	return s.store.GetTemplate(ctx, user.TenantID, templateID)
}

// ListTemplates returns active templates, or all of them for admin roles
// that ask for inactive ones too.
func (s *Service) ListTemplates(ctx context.Context, user auth.UserContext, includeInactive bool) (out []Template, err error) {
	defer func() { err = s.finish(opListTemplates, err) }()

	if err := s.requireLinked(ctx, user); err != nil {
		return nil, err
	}
	activeOnly := !(includeInactive && auth.IsAdmin(user.RoleName))
	return s.store.ListTemplates(ctx, user.TenantID, activeOnly)
}

// AssignWorkflow copies an active template into a new workflow for the
// employee. Due dates count from the start date unless overridden per task.
func (s *Service) AssignWorkflow(ctx context.Context, user auth.UserContext, in AssignInput) (out Workflow, err error) {
	defer func() { err = s.finish(opAssign, err) }()

	if err := validateAssign(in); err != nil {
		return Workflow{}, err
	}
	caller, err := s.authorize(ctx, user, workflow.Subject{EmployeeID: in.EmployeeID}, workflow.ActionAssignWorkflow)
	if err != nil {
		return Workflow{}, err
	}

	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		emp, err := tx.LockEmployee(ctx, user.TenantID, in.EmployeeID)
		if err != nil {
			return err
		}
		tmpl, err := tx.LockTemplate(ctx, user.TenantID, in.TemplateID)
		if err != nil {
			return err
		}
		if !tmpl.Active {
			return workflow.InvalidState(workflow.ReasonTemplateInactive, "template is not active")
		}
		exists, err := tx.OpenWorkflowExists(ctx, user.TenantID, emp.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrWorkflowExists
		}

		w, err := s.buildWorkflow(caller, emp, tmpl, in)
		if err != nil {
			return err
		}
		if err := tx.InsertWorkflow(ctx, w); err != nil {
			return err
		}
		out = w
		return tx.RecordAudit(ctx, w.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      opAssign,
			EntityType:  string(workflow.KindWorkflow),
			EntityID:    w.ID,
			After:       map[string]any{"status": w.Status, "templateId": w.TemplateID, "tasks": len(w.Tasks)},
		})
	})
	if err != nil {
		return Workflow{}, err
	}

	s.send(ctx, notifications.Notification{
		Kind:                notifications.KindOnboardingAssigned,
		TenantID:            out.TenantID,
		RecipientEmployeeID: out.EmployeeID,
		Title:               "Onboarding assigned",
		Body:                "Your onboarding plan is ready. Target completion: " + out.TargetCompletionDate.Format("2006-01-02") + ".",
		Data:                map[string]string{"workflowId": out.ID},
	})
	return out, nil
}

func (s *Service) buildWorkflow(caller workflow.Caller, emp core.Employee, tmpl Template, in AssignInput) (Workflow, error) {
	known := make(map[string]struct{}, len(tmpl.Tasks))
	for _, t := range tmpl.Tasks {
		known[t.ID] = struct{}{}
	}
	v := workflow.NewValidator()
	for id := range in.DueDateOverrides {
		if _, ok := known[id]; !ok {
			v.Add("dueDateOverrides."+id, "does not match a template task")
		}
	}
	if err := v.Err(); err != nil {
		return Workflow{}, err
	}

	now := s.Now()
	w := Workflow{
		ID:                   s.NewID(),
		TenantID:             tmpl.TenantID,
		EmployeeID:           emp.ID,
		ManagerID:            emp.ManagerID,
		TemplateID:           tmpl.ID,
		Status:               workflow.WorkflowNotStarted,
		AssignedBy:           caller.EmployeeID,
		AssignedAt:           now,
		TargetCompletionDate: in.StartDate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	var changes workflow.Changes[Task]
	for _, tt := range tmpl.Tasks {
		due := in.StartDate.AddDate(0, 0, tt.DayOffset)
		if override, ok := in.DueDateOverrides[tt.ID]; ok {
			due = override
		}
		if due.After(w.TargetCompletionDate) {
			w.TargetCompletionDate = due
		}
		changes.Add = append(changes.Add, Task{
			TemplateTaskID:   tt.ID,
			Title:            tt.Title,
			Description:      tt.Description,
			DueDate:          due,
			Status:           workflow.TaskPending,
			Order:            tt.Order,
			RequiresDocument: tt.RequiresDocument,
		})
	}
	w.Tasks = workflow.Mutate(nil, changes, now, s.NewID).Items
	if err := w.refresh(now); err != nil {
		return Workflow{}, err
	}
	return w, nil
}

// StartTask moves a pending task to in progress for the workflow's employee.
func (s *Service) StartTask(ctx context.Context, user auth.UserContext, taskID string) (res TaskResult, err error) {
	defer func() { err = s.finish(opStartTask, err) }()

	return s.taskTransition(ctx, user, taskID, opStartTask, func(w *Workflow, task Task, now time.Time) error {
		if task.Status == workflow.TaskCompleted {
			return taskAlreadyCompleted()
		}
		if err := workflow.RequireTransition(workflow.KindTask, task.Status, workflow.TaskInProgress); err != nil {
			return err
		}
		w.Tasks = workflow.Mutate(w.Tasks, workflow.Changes[Task]{Update: []workflow.Update[Task]{{
			ID:    task.ID,
			Apply: func(t *Task) { t.Status = workflow.TaskInProgress },
		}}}, now, s.NewID).Items
		return nil
	})
}

// CompleteTask marks a task completed and recomputes the workflow. Checks
// run in a fixed order: existence, ownership, repeat completion, then the
// document requirement.
func (s *Service) CompleteTask(ctx context.Context, user auth.UserContext, taskID string, in CompleteTaskInput) (res TaskResult, err error) {
	defer func() { err = s.finish(opCompleteTask, err) }()

	if err := validateComplete(in); err != nil {
		return TaskResult{}, err
	}
	documentRef := strings.TrimSpace(in.DocumentRef)
	res, err = s.taskTransition(ctx, user, taskID, opCompleteTask, func(w *Workflow, task Task, now time.Time) error {
		if task.Status == workflow.TaskCompleted {
			return taskAlreadyCompleted()
		}
		if task.RequiresDocument && documentRef == "" {
			return workflow.ValidationReason(workflow.ReasonDocumentRequired, "documentRef", "a document is required to complete this task")
		}
		if err := workflow.RequireTransition(workflow.KindTask, task.Status, workflow.TaskCompleted); err != nil {
			return err
		}
		w.Tasks = workflow.Mutate(w.Tasks, workflow.Changes[Task]{Update: []workflow.Update[Task]{{
			ID: task.ID,
			Apply: func(t *Task) {
				at := now
				t.Status = workflow.TaskCompleted
				t.CompletedAt = &at
				if documentRef != "" {
					t.DocumentRef = documentRef
				}
			},
		}}}, now, s.NewID).Items
		return nil
	})
	if err != nil {
		return TaskResult{}, err
	}

	w := res.Workflow
	if w.AssignedBy != "" {
		s.send(ctx, notifications.Notification{
			Kind:                notifications.KindOnboardingTaskCompleted,
			TenantID:            w.TenantID,
			RecipientEmployeeID: w.AssignedBy,
			Title:               "Onboarding task completed",
			Body:                "\"" + res.Task.Title + "\" was completed.",
			Data:                map[string]string{"workflowId": w.ID, "taskId": res.Task.ID, "employeeId": w.EmployeeID},
		})
		if w.Status == workflow.WorkflowCompleted {
			s.send(ctx, notifications.Notification{
				Kind:                notifications.KindOnboardingCompleted,
				TenantID:            w.TenantID,
				RecipientEmployeeID: w.AssignedBy,
				Title:               "Onboarding completed",
				Body:                "Every onboarding task has been completed.",
				Data:                map[string]string{"workflowId": w.ID, "employeeId": w.EmployeeID},
			})
		}
	}
	return res, nil
}

func (s *Service) taskTransition(ctx context.Context, user auth.UserContext, taskID, op string,
	mutate func(w *Workflow, task Task, now time.Time) error) (TaskResult, error) {
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return TaskResult{}, err
	}

	var res TaskResult
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		w, err := tx.LockWorkflowByTask(ctx, user.TenantID, taskID)
		if err != nil {
			return err
		}
		task, ok := w.task(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		if err := workflow.RequireAuthorized(caller, w.Subject(), workflow.ActionWorkTask); err != nil {
			return err
		}

		before := map[string]any{"status": w.Status, "progress": w.Progress, "taskStatus": task.Status}
		now := s.Now()
		if err := mutate(&w, task, now); err != nil {
			return err
		}
		if err := w.refresh(now); err != nil {
			return err
		}
		w.UpdatedAt = now
		if err := tx.SaveWorkflow(ctx, w); err != nil {
			return err
		}

		updated, _ := w.task(taskID)
		res = TaskResult{Workflow: w, Task: updated}
		return tx.RecordAudit(ctx, w.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      op,
			EntityType:  string(workflow.KindTask),
			EntityID:    taskID,
			Before:      before,
			After:       map[string]any{"status": w.Status, "progress": w.Progress, "taskStatus": updated.Status},
		})
	})
	if err != nil {
		return TaskResult{}, err
	}
	return res, nil
}

func (s *Service) GetWorkflow(ctx context.Context, user auth.UserContext, workflowID string) (out Workflow, err error) {
	defer func() { err = s.finish(opGetWorkflow, err) }()

	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return Workflow{}, err
	}
	w, err := s.store.GetWorkflow(ctx, user.TenantID, workflowID)
	if err != nil {
		return Workflow{}, err
	}
	if err := workflow.RequireAuthorized(caller, w.Subject(), workflow.ActionRead); err != nil {
		return Workflow{}, err
	}
	return w, nil
}

func (s *Service) ListWorkflows(ctx context.Context, user auth.UserContext, filter WorkflowFilter) (items []Workflow, total int, err error) {
	defer func() { err = s.finish(opListWorkflows, err) }()

	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return nil, 0, err
	}
	if err := workflow.RequireLinked(caller); err != nil {
		return nil, 0, err
	}
	filter.VisibleTo, filter.IncludeReports = "", false
	if !auth.IsAdmin(caller.Role) {
		filter.VisibleTo = caller.EmployeeID
		filter.IncludeReports = caller.Role == auth.RoleManager
	}
	if filter.Status != "" {
		v := workflow.NewValidator()
		v.OneOf("status", filter.Status, workflow.WorkflowNotStarted, workflow.WorkflowInProgress, workflow.WorkflowCompleted)
		if err := v.Err(); err != nil {
			return nil, 0, err
		}
	}
	page := workflow.ListPage.Clamp(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.store.ListWorkflows(ctx, user.TenantID, filter)
}

func (s *Service) authorize(ctx context.Context, user auth.UserContext, subject workflow.Subject, action workflow.Action) (workflow.Caller, error) {
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return caller, err
	}
	return caller, workflow.RequireAuthorized(caller, subject, action)
}

func (s *Service) requireLinked(ctx context.Context, user auth.UserContext) error {
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return err
	}
	return workflow.RequireLinked(caller)
}

func (s *Service) send(ctx context.Context, n notifications.Notification) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Send(context.WithoutCancel(ctx), n); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("kind", n.Kind),
			zap.String("tenantId", n.TenantID),
			zap.Error(err),
		)
	}
}

// finish maps store sentinels onto the engine taxonomy and records the outcome.
func (s *Service) finish(op string, err error) error {
	switch {
	case err == nil:
	case errors.Is(err, ErrTemplateNotFound):
		err = workflow.NotFound("template not found")
	case errors.Is(err, ErrWorkflowNotFound):
		err = workflow.NotFound("workflow not found")
	case errors.Is(err, ErrTaskNotFound):
		err = workflow.NotFound("task not found")
	case errors.Is(err, ErrEmployeeNotFound):
		err = workflow.NotFound("employee not found")
	case errors.Is(err, ErrWorkflowExists):
		err = workflow.Conflict(workflow.ReasonWorkflowExists, "employee already has an onboarding workflow in progress")
	default:
		err = workflow.Wrap(err)
	}
	code := "ok"
	if err != nil {
		code = string(workflow.CodeOf(err))
	}
	s.metrics.Outcome(op, code)
	if workflow.CodeOf(err) == workflow.CodePersistence {
		s.logger.Error("onboarding operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func taskAlreadyCompleted() error {
	return workflow.InvalidState(workflow.ReasonTaskAlreadyCompleted, "task is already completed")
}
