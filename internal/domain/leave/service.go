package leave

import (
	"context"
	"errors"
	"fmt"
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

func validateRequest(in RequestInput) (float64, error) {
	v := workflow.NewValidator()
	v.OneOf("type", in.Type, leaveTypes...)
	v.Length("reason", in.Reason, 0, maxReason)
	if in.StartDate.IsZero() {
		v.Add("startDate", "is required")
	}
	if in.EndDate.IsZero() {
		v.Add("endDate", "is required")
	}
	if v.HasIssues() {
		return 0, v.Err()
	}
	if in.EndDate.Sub(in.StartDate) >= maxRequestDays*24*time.Hour {
		v.Add("endDate", fmt.Sprintf("request cannot span more than %d days", maxRequestDays))
		return 0, v.Err()
	}
	return RequestDays(in.StartDate, in.EndDate, in.StartHalf, in.EndHalf)
}

// RequestLeave files a pending request for the caller's own employee record.
func (s *Service) RequestLeave(ctx context.Context, user auth.UserContext, in RequestInput) (out LeaveRequest, err error) {
	defer func() { err = s.finish(opRequest, err) }()

	days, err := validateRequest(in)
	if err != nil {
		return LeaveRequest{}, err
	}
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := workflow.RequireAuthorized(caller, workflow.Subject{EmployeeID: caller.EmployeeID}, workflow.ActionRequestLeave); err != nil {
		return LeaveRequest{}, err
	}
	emp, err := s.dir.Employee(ctx, user.TenantID, caller.EmployeeID)
	if err != nil {
		return LeaveRequest{}, workflow.Persistence(err)
	}

	now := s.Now()
	r := LeaveRequest{
		ID:         s.NewID(),
		TenantID:   user.TenantID,
		EmployeeID: emp.ID,
		ManagerID:  emp.ManagerID,
		Type:       in.Type,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		StartHalf:  in.StartHalf,
		EndHalf:    in.EndHalf,
		Days:       days,
		Reason:     strings.TrimSpace(in.Reason),
		Status:     workflow.LeavePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		if err := tx.LockEmployee(ctx, r.TenantID, r.EmployeeID); err != nil {
			return err
		}
		overlap, err := tx.OverlapExists(ctx, r.TenantID, r.EmployeeID, r.StartDate, r.EndDate)
		if err != nil {
			return err
		}
		if overlap {
			return workflow.Conflict(workflow.ReasonLeaveOverlap, "an open leave request already covers these dates")
		}
		if err := tx.InsertRequest(ctx, r); err != nil {
			return err
		}
		if err := tx.ShiftBalance(ctx, r.TenantID, r.EmployeeID, r.Type, r.Days, 0, now); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, r.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      opRequest,
			EntityType:  string(workflow.KindLeave),
			EntityID:    r.ID,
			After:       map[string]any{"status": r.Status, "days": r.Days},
		})
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	if r.ManagerID != "" {
		s.send(ctx, notifications.Notification{
			Kind:                notifications.KindLeaveRequested,
			TenantID:            r.TenantID,
			RecipientEmployeeID: r.ManagerID,
			Title:               "Leave request awaiting approval",
			Body:                fmt.Sprintf("%s leave requested for %s (%g days).", r.Type, dateRange(r), r.Days),
			Data:                map[string]string{"leaveRequestId": r.ID, "employeeId": r.EmployeeID},
		})
	}
	return r, nil
}

// DecideLeave approves or rejects a pending request.
func (s *Service) DecideLeave(ctx context.Context, user auth.UserContext, requestID string, in DecisionInput) (out LeaveRequest, err error) {
	defer func() { err = s.finish(opDecide, err) }()

	v := workflow.NewValidator()
	v.Length("note", in.Note, 0, maxNote)
	if err := v.Err(); err != nil {
		return LeaveRequest{}, err
	}
	target := workflow.LeaveRejected
	if in.Approve {
		target = workflow.LeaveApproved
	}

	out, err = s.transition(ctx, user, requestID, workflow.ActionDecideLeave, opDecide, func(r *LeaveRequest, caller workflow.Caller, now time.Time) error {
		if err := workflow.RequireTransition(workflow.KindLeave, r.Status, target); err != nil {
			return err
		}
		at := now
		r.Status = target
		r.DecidedBy = caller.EmployeeID
		r.DecisionNote = strings.TrimSpace(in.Note)
		r.DecidedAt = &at
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	kind, title := notifications.KindLeaveRejected, "Leave request rejected"
	if out.Status == workflow.LeaveApproved {
		kind, title = notifications.KindLeaveApproved, "Leave request approved"
	}
	s.send(ctx, notifications.Notification{
		Kind:                kind,
		TenantID:            out.TenantID,
		RecipientEmployeeID: out.EmployeeID,
		Title:               title,
		Body:                "Your leave for " + dateRange(out) + " was " + out.Status + ".",
		Data:                map[string]string{"leaveRequestId": out.ID},
	})
	return out, nil
}

// CancelLeave withdraws the caller's own pending request.
func (s *Service) CancelLeave(ctx context.Context, user auth.UserContext, requestID string) (out LeaveRequest, err error) {
	defer func() { err = s.finish(opCancel, err) }()

	out, err = s.transition(ctx, user, requestID, workflow.ActionCancelLeave, opCancel, func(r *LeaveRequest, _ workflow.Caller, _ time.Time) error {
		if err := workflow.RequireTransition(workflow.KindLeave, r.Status, workflow.LeaveCancelled); err != nil {
			return err
		}
		r.Status = workflow.LeaveCancelled
		return nil
	})
	if err != nil {
		return LeaveRequest{}, err
	}

	if out.ManagerID != "" {
		s.send(ctx, notifications.Notification{
			Kind:                notifications.KindLeaveCancelled,
			TenantID:            out.TenantID,
			RecipientEmployeeID: out.ManagerID,
			Title:               "Leave request cancelled",
			Body:                "The leave request for " + dateRange(out) + " was withdrawn.",
			Data:                map[string]string{"leaveRequestId": out.ID, "employeeId": out.EmployeeID},
		})
	}
	return out, nil
}

func (s *Service) GetLeave(ctx context.Context, user auth.UserContext, requestID string) (out LeaveRequest, err error) {
	defer func() { err = s.finish(opGet, err) }()

	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return LeaveRequest{}, err
	}
	r, err := s.store.GetRequest(ctx, user.TenantID, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := workflow.RequireAuthorized(caller, r.Subject(), workflow.ActionRead); err != nil {
		return LeaveRequest{}, err
	}
	return r, nil
}

func (s *Service) ListLeave(ctx context.Context, user auth.UserContext, filter ListFilter) (items []LeaveRequest, total int, err error) {
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
		v.OneOf("status", filter.Status, workflow.LeavePending, workflow.LeaveApproved, workflow.LeaveRejected, workflow.LeaveCancelled)
		if err := v.Err(); err != nil {
			return nil, 0, err
		}
	}
	page := workflow.ListPage.Clamp(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.store.ListRequests(ctx, user.TenantID, filter)
}

// ListBalances returns the booked days per leave type for an employee,
// defaulting to the caller's own record.
func (s *Service) ListBalances(ctx context.Context, user auth.UserContext, employeeID string) (items []Balance, err error) {
	defer func() { err = s.finish(opBalance, err) }()

	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return nil, err
	}
	if err := workflow.RequireLinked(caller); err != nil {
		return nil, err
	}
	if employeeID == "" {
		employeeID = caller.EmployeeID
	}
	emp, err := s.dir.Employee(ctx, user.TenantID, employeeID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := workflow.RequireAuthorized(caller, workflow.Subject{EmployeeID: emp.ID, ManagerID: emp.ManagerID}, workflow.ActionRead); err != nil {
		return nil, err
	}
	return s.store.ListBalances(ctx, user.TenantID, emp.ID)
}

// balanceShift moves a request's days out of pending when it leaves the
// pending state, into used when it was approved.
func balanceShift(from, to string, days float64) (pending, used float64) {
	if from != workflow.LeavePending || from == to {
		return 0, 0
	}
	switch to {
	case workflow.LeaveApproved:
		return -days, days
	case workflow.LeaveRejected, workflow.LeaveCancelled:
		return -days, 0
	}
	return 0, 0
}

func (s *Service) transition(ctx context.Context, user auth.UserContext, requestID string, action workflow.Action, op string,
	mutate func(r *LeaveRequest, caller workflow.Caller, now time.Time) error) (LeaveRequest, error) {
	caller, err := core.ResolveCaller(ctx, s.dir, user)
	if err != nil {
		return LeaveRequest{}, err
	}

	var out LeaveRequest
	err = s.store.WithinTx(ctx, func(tx TxStore) error {
		r, err := tx.LockRequest(ctx, user.TenantID, requestID)
		if err != nil {
			return err
		}
		if err := workflow.RequireAuthorized(caller, r.Subject(), action); err != nil {
			return err
		}
		before := r.Status
		now := s.Now()
		if err := mutate(&r, caller, now); err != nil {
			return err
		}
		r.UpdatedAt = now
		if err := tx.SaveRequest(ctx, r); err != nil {
			return err
		}
		if pending, used := balanceShift(before, r.Status, r.Days); pending != 0 || used != 0 {
			if err := tx.ShiftBalance(ctx, r.TenantID, r.EmployeeID, r.Type, pending, used, now); err != nil {
				return err
			}
		}
		out = r
		return tx.RecordAudit(ctx, r.TenantID, audit.Entry{
			ActorUserID: user.UserID,
			Action:      op,
			EntityType:  string(workflow.KindLeave),
			EntityID:    r.ID,
			Before:      map[string]string{"status": before},
			After:       map[string]string{"status": r.Status},
		})
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return out, nil
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
	switch {
	case errors.Is(err, ErrNotFound):
		err = workflow.NotFound("leave request not found")
	case errors.Is(err, ErrEmployeeNotFound):
		err = workflow.NotFound("employee not found")
	}
	err = workflow.Wrap(err)
	code := "ok"
	if err != nil {
		code = string(workflow.CodeOf(err))
	}
	s.metrics.Outcome(op, code)
	if workflow.CodeOf(err) == workflow.CodePersistence {
		s.logger.Error("leave operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func dateRange(r LeaveRequest) string {
	if r.StartDate.Equal(r.EndDate) {
		return r.StartDate.Format("2006-01-02")
	}
	return r.StartDate.Format("2006-01-02") + " to " + r.EndDate.Format("2006-01-02")
}
