package appraisal

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

// CreateAppraisal opens a draft appraisal for one employee and period. The
// reviewer defaults to the employee's manager.
func (s *Service) CreateAppraisal(ctx context.Context, user auth.UserContext, in CreateInput) (out Appraisal, err error) {
	defer func() { err = s.finish(opCreate, err) }()

	if err := validateCreate(in); err != nil {
		return Appraisal{}, err
	}
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return Appraisal{}, err
	}
	emp, err := s.employee(ctx, user.TenantID, in.EmployeeID, "employee not found")
	if err != nil {
		return Appraisal{}, err
	}
	if err := workflow.RequireAuthorized(caller, workflow.Subject{EmployeeID: emp.ID, ManagerID: emp.ManagerID}, workflow.ActionCreateAppraisal); err != nil {
		return Appraisal{}, err
	}

	reviewerID := strings.TrimSpace(in.ReviewerID)
	if reviewerID == "" {
		reviewerID = emp.ManagerID
	}
	if reviewerID == "" {
		return Appraisal{}, workflow.Validation(workflow.FieldIssue{Field: "reviewerId", Reason: "is required when the employee has no manager"})
	}
	if reviewerID == emp.ID {
		return Appraisal{}, workflow.Validation(workflow.FieldIssue{Field: "reviewerId", Reason: "must differ from employeeId"})
	}
	if _, err := s.employee(ctx, user.TenantID, reviewerID, "reviewer not found"); err != nil {
		return Appraisal{}, err
	}

	now := s.Now()
	a := Appraisal{
		ID:          s.NewID(),
		TenantID:    user.TenantID,
		EmployeeID:  emp.ID,
		ReviewerID:  reviewerID,
		ManagerID:   emp.ManagerID,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Status:      workflow.AppraisalDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var initial workflow.Changes[Goal]
	for _, g := range in.Goals {
		initial.Add = append(initial.Add, newGoal(g))
	}
	a.Goals = workflow.Mutate(nil, initial, now, s.NewID).Items
	a.refreshProgress()

	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		exists, err := tx.AppraisalExists(ctx, a.TenantID, a.EmployeeID, a.PeriodStart, a.PeriodEnd)
		if err != nil {
			return err
		}
		if exists {
			return duplicatePeriod()
		}
		if err := tx.InsertAppraisal(ctx, a); err != nil {
			if errors.Is(err, ErrDuplicatePeriod) {
				return duplicatePeriod()
			}
			return err
		}
		return tx.RecordAudit(ctx, a.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      opCreate,
			EntityType:  string(workflow.KindAppraisal),
			EntityID:    a.ID,
			After:       snapshot(a),
		})
	})
	if err != nil {
		return Appraisal{}, err
	}

	s.send(ctx, notifications.Notification{
		Kind:                notifications.KindAppraisalCreated,
		TenantID:            a.TenantID,
		RecipientEmployeeID: a.EmployeeID,
		Title:               "New appraisal opened",
		Body:                "An appraisal for " + periodLabel(a) + " is ready for your self-assessment.",
		Data:                map[string]string{"appraisalId": a.ID},
	})
	return a, nil
}

// SubmitSelfAssessment moves a draft appraisal to submitted on behalf of the
// employee it belongs to, applying goal status updates in the same write.
func (s *Service) SubmitSelfAssessment(ctx context.Context, user auth.UserContext, appraisalID string, in SelfAssessmentInput) (res Result, err error) {
	defer func() { err = s.finish(opSelfAssessment, err) }()

	if err := validateSelfAssessment(in); err != nil {
		return Result{}, err
	}
	res, err = s.transition(ctx, user, appraisalID, workflow.ActionSubmitSelfAssessment, opSelfAssessment,
		func(a *Appraisal, now time.Time) (workflow.Outcome[Goal], error) {
			if err := workflow.RequireTransition(workflow.KindAppraisal, a.Status, workflow.AppraisalSubmitted); err != nil {
				return workflow.Outcome[Goal]{}, err
			}
			out := workflow.Mutate(a.Goals, statusChanges(in.GoalUpdates), now, s.NewID)
			a.Goals = out.Items
			a.SelfAssessment = strings.TrimSpace(in.SelfAssessment)
			a.Status = workflow.AppraisalSubmitted
			a.SelfAssessmentSubmittedAt = stampOnce(a.SelfAssessmentSubmittedAt, now)
			return out, nil
		})
	if err != nil {
		return Result{}, err
	}

	a := res.Appraisal
	s.send(ctx, notifications.Notification{
		Kind:                notifications.KindSelfAssessmentSubmitted,
		TenantID:            a.TenantID,
		RecipientEmployeeID: a.ReviewerID,
		Title:               "Self-assessment submitted",
		Body:                "A self-assessment for " + periodLabel(a) + " is waiting for your review.",
		Data:                map[string]string{"appraisalId": a.ID, "employeeId": a.EmployeeID},
	})
	return res, nil
}

// SubmitReview completes a submitted appraisal with the reviewer's feedback
// and rating.
func (s *Service) SubmitReview(ctx context.Context, user auth.UserContext, appraisalID string, in ReviewInput) (res Result, err error) {
	defer func() { err = s.finish(opReview, err) }()

	if err := validateReview(in); err != nil {
		return Result{}, err
	}
	res, err = s.transition(ctx, user, appraisalID, workflow.ActionSubmitReview, opReview,
		func(a *Appraisal, now time.Time) (workflow.Outcome[Goal], error) {
			if err := workflow.RequireTransition(workflow.KindAppraisal, a.Status, workflow.AppraisalCompleted); err != nil {
				return workflow.Outcome[Goal]{}, err
			}
			out := workflow.Mutate(a.Goals, statusChanges(in.GoalUpdates), now, s.NewID)
			rating := in.Rating
			a.Goals = out.Items
			a.ManagerFeedback = strings.TrimSpace(in.Feedback)
			a.Rating = &rating
			a.Status = workflow.AppraisalCompleted
			a.ReviewCompletedAt = stampOnce(a.ReviewCompletedAt, now)
			return out, nil
		})
	if err != nil {
		return Result{}, err
	}

	a := res.Appraisal
	s.send(ctx, notifications.Notification{
		Kind:                notifications.KindReviewCompleted,
		TenantID:            a.TenantID,
		RecipientEmployeeID: a.EmployeeID,
		Title:               "Appraisal review completed",
		Body:                "Your reviewer has completed the appraisal for " + periodLabel(a) + ".",
		Data:                map[string]string{"appraisalId": a.ID},
	})
	return res, nil
}

// UpdateGoals adds, edits and removes goals while the appraisal is a draft.
func (s *Service) UpdateGoals(ctx context.Context, user auth.UserContext, appraisalID string, in GoalChanges) (res Result, err error) {
	defer func() { err = s.finish(opGoals, err) }()

	if err := validateGoalChanges(in); err != nil {
		return Result{}, err
	}
	res, err = s.transition(ctx, user, appraisalID, workflow.ActionEditGoals, opGoals,
		func(a *Appraisal, now time.Time) (workflow.Outcome[Goal], error) {
			if a.Status != workflow.AppraisalDraft {
				return workflow.Outcome[Goal]{}, workflow.InvalidState(workflow.ReasonGoalsFrozen, "goals can only be changed while the appraisal is a draft")
			}
			out := workflow.Mutate(a.Goals, goalChanges(in), now, s.NewID)
			a.Goals = out.Items
			return out, nil
		})
	if err != nil {
		return Result{}, err
	}

	a := res.Appraisal
	s.send(ctx, notifications.Notification{
		Kind:                notifications.KindGoalsUpdated,
		TenantID:            a.TenantID,
		RecipientEmployeeID: a.EmployeeID,
		Title:               "Appraisal goals updated",
		Body:                "Goals for " + periodLabel(a) + " were updated by your reviewer.",
		Data:                map[string]string{"appraisalId": a.ID},
	})
	return res, nil
}

func (s *Service) GetAppraisal(ctx context.Context, user auth.UserContext, appraisalID string) (out Appraisal, err error) {
	defer func() { err = s.finish(opGet, err) }()

	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return Appraisal{}, err
	}
	a, err := s.store.GetAppraisal(ctx, user.TenantID, appraisalID)
	if errors.Is(err, ErrNotFound) {
		return Appraisal{}, workflow.NotFound("appraisal not found")
	}
	if err != nil {
		return Appraisal{}, err
	}
	if err := workflow.RequireAuthorized(caller, a.Subject(), workflow.ActionRead); err != nil {
		return Appraisal{}, err
	}
	return a, nil
}

// ListAppraisals returns the appraisals the caller may read. Admin roles see
// the whole tenant.
func (s *Service) ListAppraisals(ctx context.Context, user auth.UserContext, filter ListFilter) (items []Appraisal, total int, err error) {
	defer func() { err = s.finish(opList, err) }()

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
		v.OneOf("status", filter.Status, workflow.AppraisalDraft, workflow.AppraisalSubmitted, workflow.AppraisalCompleted)
		if err := v.Err(); err != nil {
			return nil, 0, err
		}
	}
	page := workflow.ListPage.Clamp(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.store.ListAppraisals(ctx, user.TenantID, filter)
}

// transition runs the shared read-modify-write pipeline: lock, authorize,
// mutate, recompute, save and audit, all in one transaction.
func (s *Service) transition(ctx context.Context, user auth.UserContext, appraisalID string, action workflow.Action, op string,
	mutate func(a *Appraisal, now time.Time) (workflow.Outcome[Goal], error)) (Result, error) {
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		a, err := tx.LockAppraisal(ctx, user.TenantID, appraisalID)
		if errors.Is(err, ErrNotFound) {
			return workflow.NotFound("appraisal not found")
		}
		if err != nil {
			return err
		}
		if err := workflow.RequireAuthorized(caller, a.Subject(), action); err != nil {
			return err
		}

		before := snapshot(a)
		now := s.Now()
		out, err := mutate(&a, now)
		if err != nil {
			return err
		}
		a.UpdatedAt = now
		a.refreshProgress()

		if err := tx.SaveAppraisal(ctx, a); err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, a.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      op,
			EntityType:  string(workflow.KindAppraisal),
			EntityID:    a.ID,
			Before:      before,
			After:       snapshot(a),
		}); err != nil {
			return err
		}
		res = Result{Appraisal: a, Matched: out.Matched(), Unmatched: out.Unmatched}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) employee(ctx context.Context, tenantID, employeeID, missing string) (core.Employee, error) {
	emp, err := s.dir.Employee(ctx, tenantID, employeeID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Employee{}, workflow.NotFound(missing)
	}
	if err != nil {
		return core.Employee{}, workflow.Persistence(err)
	}
	return emp, nil
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

func (s *Service) finish(op string, err error) error {
	err = workflow.Wrap(err)
	code := "ok"
	if err != nil {
		code = string(workflow.CodeOf(err))
	}
	s.metrics.Outcome(op, code)
	if workflow.CodeOf(err) == workflow.CodePersistence {
		s.logger.Error("appraisal operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func duplicatePeriod() error {
	return workflow.Conflict(workflow.ReasonAppraisalExists, "an appraisal already exists for this employee and period")
}

func stampOnce(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	at := now
	return &at
}

func snapshot(a Appraisal) map[string]any {
	return map[string]any{
		"status":       a.Status,
		"goalCount":    len(a.Goals),
		"goalProgress": a.GoalProgress.Percent,
	}
}

func periodLabel(a Appraisal) string {
	return a.PeriodStart.Format("2006-01-02") + " to " + a.PeriodEnd.Format("2006-01-02")
}
