package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
)

const tenant = "t1"

var (
	hrUser      = auth.UserContext{UserID: "u-hr", TenantID: tenant, RoleName: auth.RoleHR}
	managerUser = auth.UserContext{UserID: "u-mgr", TenantID: tenant, RoleName: auth.RoleManager}
	hireUser    = auth.UserContext{UserID: "u-hire", TenantID: tenant, RoleName: auth.RoleEmployee}
	otherUser   = auth.UserContext{UserID: "u-other", TenantID: tenant, RoleName: auth.RoleEmployee}
	ghostUser   = auth.UserContext{UserID: "u-ghost", TenantID: tenant, RoleName: auth.RoleEmployee}

	startDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc      *Service
	store    *memStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	employees := map[string]core.Employee{
		"e-hr":    {ID: "e-hr", UserID: "u-hr"},
		"e-mgr":   {ID: "e-mgr", UserID: "u-mgr"},
		"e-hire":  {ID: "e-hire", UserID: "u-hire", ManagerID: "e-mgr"},
		"e-other": {ID: "e-other", UserID: "u-other"},
	}
	f := &fixture{store: newMemStore(employees), notifier: &recordingNotifier{}}
	f.svc = NewService(f.store, memDirectory(employees), f.notifier, zap.NewNop(), nil)

	var seq atomic.Int64
	f.svc.NewID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }
	f.svc.Now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) template(t *testing.T, tasks ...TemplateTaskInput) Template {
	t.Helper()
	tmpl, err := f.svc.CreateTemplate(context.Background(), hrUser, TemplateInput{Name: "Engineering onboarding", Tasks: tasks})
	require.NoError(t, err)
	return tmpl
}

func (f *fixture) assign(t *testing.T, tmpl Template) Workflow {
	t.Helper()
	w, err := f.svc.AssignWorkflow(context.Background(), hrUser, AssignInput{EmployeeID: "e-hire", TemplateID: tmpl.ID, StartDate: startDate})
	require.NoError(t, err)
	return w
}

func TestOnboardingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl := f.template(t,
		TemplateTaskInput{Title: "Sign contract", DayOffset: 0, RequiresDocument: true},
		TemplateTaskInput{Title: "Laptop setup", DayOffset: 1},
		TemplateTaskInput{Title: "Meet the team", DayOffset: 5},
	)
	assert.Equal(t, 5, tmpl.EstimatedDays)
	assert.True(t, tmpl.Active)

	w := f.assign(t, tmpl)
	assert.Equal(t, workflow.WorkflowNotStarted, w.Status)
	assert.Equal(t, "e-hr", w.AssignedBy)
	assert.Equal(t, startDate.AddDate(0, 0, 5), w.TargetCompletionDate)
	require.Len(t, w.Tasks, 3)
	for _, task := range w.Tasks {
		assert.Equal(t, workflow.TaskPending, task.Status)
	}

	_, err := f.svc.CompleteTask(ctx, hireUser, w.Tasks[0].ID, CompleteTaskInput{})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeValidation, Reason: workflow.ReasonDocumentRequired})

	res, err := f.svc.CompleteTask(ctx, hireUser, w.Tasks[0].ID, CompleteTaskInput{DocumentRef: "docs/contract.pdf"})
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowInProgress, res.Workflow.Status)
	assert.Equal(t, 33, res.Workflow.Progress)
	assert.NotNil(t, res.Workflow.StartedAt)
	assert.Nil(t, res.Workflow.CompletedAt)
	assert.Equal(t, "docs/contract.pdf", res.Task.DocumentRef)
	startedAt := *res.Workflow.StartedAt

	res, err = f.svc.StartTask(ctx, hireUser, w.Tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.TaskInProgress, res.Task.Status)

	_, err = f.svc.CompleteTask(ctx, hireUser, w.Tasks[1].ID, CompleteTaskInput{})
	require.NoError(t, err)
	res, err = f.svc.CompleteTask(ctx, hireUser, w.Tasks[2].ID, CompleteTaskInput{})
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowCompleted, res.Workflow.Status)
	assert.Equal(t, 100, res.Workflow.Progress)
	require.NotNil(t, res.Workflow.CompletedAt)
	assert.Equal(t, startedAt, *res.Workflow.StartedAt, "start is stamped once")

	_, err = f.svc.CompleteTask(ctx, hireUser, w.Tasks[2].ID, CompleteTaskInput{})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeInvalidState, Reason: workflow.ReasonTaskAlreadyCompleted})

	assert.Equal(t, []string{
		notifications.KindOnboardingAssigned,
		notifications.KindOnboardingTaskCompleted,
		notifications.KindOnboardingTaskCompleted,
		notifications.KindOnboardingTaskCompleted,
		notifications.KindOnboardingCompleted,
	}, f.notifier.kinds())
}

func TestSingleTaskWorkflowCompletesDirectly(t *testing.T) {
	f := newFixture(t)
	w := f.assign(t, f.template(t, TemplateTaskInput{Title: "Badge photo"}))

	res, err := f.svc.CompleteTask(context.Background(), hireUser, w.Tasks[0].ID, CompleteTaskInput{})
	require.NoError(t, err)
	assert.Equal(t, workflow.WorkflowCompleted, res.Workflow.Status)
	assert.NotNil(t, res.Workflow.StartedAt)
	assert.NotNil(t, res.Workflow.CompletedAt)
}

func TestCompleteTaskCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.assign(t, f.template(t, TemplateTaskInput{Title: "Sign contract", RequiresDocument: true}))

	_, err := f.svc.CompleteTask(ctx, hireUser, "missing", CompleteTaskInput{})
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.svc.CompleteTask(ctx, otherUser, w.Tasks[0].ID, CompleteTaskInput{})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeUnauthorized, Reason: workflow.ReasonNotRelated})

	_, err = f.svc.CompleteTask(ctx, hrUser, w.Tasks[0].ID, CompleteTaskInput{DocumentRef: "x"})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized, "admins cannot complete someone else's task")

	_, err = f.svc.CompleteTask(ctx, ghostUser, w.Tasks[0].ID, CompleteTaskInput{})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeUnauthorized, Reason: workflow.ReasonEmployeeNotLinked})

	assert.Equal(t, workflow.TaskPending, f.store.workflow(w.ID).Tasks[0].Status)
}

func TestAssignWorkflowRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.template(t, TemplateTaskInput{Title: "Laptop", DayOffset: 2})

	_, err := f.svc.AssignWorkflow(ctx, managerUser, AssignInput{EmployeeID: "e-hire", TemplateID: tmpl.ID, StartDate: startDate})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeUnauthorized, Reason: workflow.ReasonRoleRequired})

	_, err = f.svc.AssignWorkflow(ctx, hrUser, AssignInput{EmployeeID: "e-nobody", TemplateID: tmpl.ID, StartDate: startDate})
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.svc.AssignWorkflow(ctx, hrUser, AssignInput{EmployeeID: "e-hire", TemplateID: "missing", StartDate: startDate})
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.svc.AssignWorkflow(ctx, hrUser, AssignInput{EmployeeID: "e-hire", TemplateID: tmpl.ID})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	f.assign(t, tmpl)
	_, err = f.svc.AssignWorkflow(ctx, hrUser, AssignInput{EmployeeID: "e-hire", TemplateID: tmpl.ID, StartDate: startDate})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeConflict, Reason: workflow.ReasonWorkflowExists})

	_, err = f.svc.SetTemplateActive(ctx, hrUser, tmpl.ID, false)
	require.NoError(t, err)
	_, err = f.svc.AssignWorkflow(ctx, hrUser, AssignInput{EmployeeID: "e-other", TemplateID: tmpl.ID, StartDate: startDate})
	assert.ErrorIs(t, err, &workflow.Error{Code: workflow.CodeInvalidState, Reason: workflow.ReasonTemplateInactive})
}

func TestTemplateLockModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.template(t, TemplateTaskInput{Title: "Badge"})

	f.assign(t, tmpl)
	_, err := f.svc.SetTemplateActive(ctx, hrUser, tmpl.ID, false)
	require.NoError(t, err)
	_, err = f.svc.SetTemplateActive(ctx, hrUser, tmpl.ID, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"share:" + tmpl.ID, "update:" + tmpl.ID, "update:" + tmpl.ID}, f.store.takenLocks())
}

func TestAssignAfterCompletionAllowed(t *testing.T) {
	f := newFixture(t)
	tmpl := f.template(t, TemplateTaskInput{Title: "Badge"})
	w := f.assign(t, tmpl)
	_, err := f.svc.CompleteTask(context.Background(), hireUser, w.Tasks[0].ID, CompleteTaskInput{})
	require.NoError(t, err)

	second := f.assign(t, tmpl)
	assert.NotEqual(t, w.ID, second.ID)
}

func TestAssignDueDateOverrides(t *testing.T) {
	f := newFixture(t)
	tmpl := f.template(t, TemplateTaskInput{Title: "Laptop", DayOffset: 2}, TemplateTaskInput{Title: "Training", DayOffset: 10})
	override := startDate.AddDate(0, 0, 20)

	w, err := f.svc.AssignWorkflow(context.Background(), hrUser, AssignInput{
		EmployeeID:       "e-hire",
		TemplateID:       tmpl.ID,
		StartDate:        startDate,
		DueDateOverrides: map[string]time.Time{tmpl.Tasks[0].ID: override},
	})
	require.NoError(t, err)
	assert.Equal(t, override, w.Tasks[0].DueDate)
	assert.Equal(t, startDate.AddDate(0, 0, 10), w.Tasks[1].DueDate)
	assert.Equal(t, override, w.TargetCompletionDate)

	_, err = f.svc.AssignWorkflow(context.Background(), hrUser, AssignInput{
		EmployeeID:       "e-other",
		TemplateID:       tmpl.ID,
		StartDate:        startDate,
		DueDateOverrides: map[string]time.Time{"not-a-task": override},
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestCreateTemplateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTemplate(ctx, hrUser, TemplateInput{Name: "Empty"})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = f.svc.CreateTemplate(ctx, hrUser, TemplateInput{Name: "Bad", Tasks: []TemplateTaskInput{{Title: "x", DayOffset: -1}}})
	var engineErr *workflow.Error
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "tasks[0].dayOffset", engineErr.Fields[0].Field)

	_, err = f.svc.CreateTemplate(ctx, managerUser, TemplateInput{Name: "Mine", Tasks: []TemplateTaskInput{{Title: "x"}}})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
	assert.Equal(t, 0, f.store.txCalls)
}

func TestTemplatesReadable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tmpl := f.template(t, TemplateTaskInput{Title: "x"})
	_, err := f.svc.SetTemplateActive(ctx, hrUser, tmpl.ID, false)
	require.NoError(t, err)

	items, err := f.svc.ListTemplates(ctx, hireUser, true)
	require.NoError(t, err)
	assert.Empty(t, items, "inactive templates are admin-only")

	items, err = f.svc.ListTemplates(ctx, hrUser, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.GetTemplate(ctx, hireUser, "missing")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestConcurrentCompletionOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	w := f.assign(t, f.template(t, TemplateTaskInput{Title: "Laptop"}, TemplateTaskInput{Title: "Badge"}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CompleteTask(context.Background(), hireUser, w.Tasks[0].ID, CompleteTaskInput{})
		}(i)
	}
	wg.Wait()

	var ok, repeated int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case workflow.ReasonOf(err) == workflow.ReasonTaskAlreadyCompleted:
			repeated++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, repeated)
	assert.Equal(t, 50, f.store.workflow(w.ID).Progress)
}

func TestConcurrentAssignmentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	tmpl := f.template(t, TemplateTaskInput{Title: "Laptop"})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AssignWorkflow(context.Background(), hrUser, AssignInput{EmployeeID: "e-hire", TemplateID: tmpl.ID, StartDate: startDate})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, workflow.ReasonWorkflowExists, workflow.ReasonOf(err))
	}
	assert.Equal(t, 1, ok)
	workflows, _ := f.store.counts()
	assert.Equal(t, 1, workflows)
}

func TestProgressMatchesStatusAfterEveryStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.assign(t, f.template(t,
		TemplateTaskInput{Title: "a"}, TemplateTaskInput{Title: "b"}, TemplateTaskInput{Title: "c"},
	))

	check := func() {
		current := f.store.workflow(w.ID)
		assert.Equal(t, current.Progress == 100, current.Status == workflow.WorkflowCompleted)
		assert.Equal(t, current.CompletedAt != nil, current.Status == workflow.WorkflowCompleted)
	}
	check()
	for _, task := range w.Tasks {
		_, err := f.svc.StartTask(ctx, hireUser, task.ID)
		require.NoError(t, err)
		check()
		_, err = f.svc.CompleteTask(ctx, hireUser, task.ID, CompleteTaskInput{})
		require.NoError(t, err)
		check()
	}
}

func TestPersistenceFailureLeavesWorkflowUntouched(t *testing.T) {
	f := newFixture(t)
	w := f.assign(t, f.template(t, TemplateTaskInput{Title: "Laptop"}))
	_, audits := f.store.counts()
	f.store.failSave = errors.New("deadlock detected")

	_, err := f.svc.CompleteTask(context.Background(), hireUser, w.Tasks[0].ID, CompleteTaskInput{})
	assert.ErrorIs(t, err, workflow.ErrPersistence)
	assert.Equal(t, workflow.WorkflowNotStarted, f.store.workflow(w.ID).Status)
	_, after := f.store.counts()
	assert.Equal(t, audits, after)
}

func TestWorkflowVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.assign(t, f.template(t, TemplateTaskInput{Title: "Laptop"}))

	_, err := f.svc.GetWorkflow(ctx, managerUser, w.ID)
	require.NoError(t, err)
	_, err = f.svc.GetWorkflow(ctx, otherUser, w.ID)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	items, total, err := f.svc.ListWorkflows(ctx, otherUser, WorkflowFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, total, err = f.svc.ListWorkflows(ctx, managerUser, WorkflowFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
