package workflow

import (
	"errors"
	"strings"
)

// Code is the engine-level failure category returned by every operation.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeConflict          Code = "CONFLICT"
	CodePersistence       Code = "PERSISTENCE_ERROR"
)

// Reasons refine a code so callers can tell apart failures sharing one.
const (
	ReasonEmployeeNotLinked    = "EMPLOYEE_NOT_LINKED"
	ReasonNotRelated           = "NOT_RELATED"
	ReasonRoleRequired         = "ROLE_REQUIRED"
	ReasonSelfDecision         = "SELF_DECISION"
	ReasonWorkflowExists       = "WORKFLOW_EXISTS"
	ReasonAppraisalExists      = "APPRAISAL_EXISTS"
	ReasonTaskAlreadyCompleted = "TASK_ALREADY_COMPLETED"
	ReasonDocumentRequired     = "DOCUMENT_REQUIRED"
	ReasonTemplateInactive     = "TEMPLATE_INACTIVE"
	ReasonGoalsFrozen          = "GOALS_FROZEN"
	ReasonLeaveOverlap         = "LEAVE_OVERLAP"
	ReasonNoWorkingDays        = "NO_WORKING_DAYS"
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is the structured failure every orchestrator operation returns.
type Error struct {
	Code    Code
	Reason  string
	Message string
	Fields  []FieldIssue
	Err     error
}

var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrInvalidState      = &Error{Code: CodeInvalidState}
	ErrConflict          = &Error{Code: CodeConflict}
	ErrPersistence       = &Error{Code: CodePersistence}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Reason != "" {
		b.WriteString("/")
		b.WriteString(e.Reason)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code, and on reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func Validation(fields ...FieldIssue) error {
	msg := "payload validation failed"
	if len(fields) == 1 {
		msg = fields[0].Field + " " + fields[0].Reason
	}
	return &Error{Code: CodeValidation, Message: msg, Fields: fields}
}

// ValidationReason is a validation failure tied to a domain rule rather than a field shape.
func ValidationReason(reason, field, message string) error {
	return &Error{Code: CodeValidation, Reason: reason, Message: message, Fields: []FieldIssue{{Field: field, Reason: message}}}
}

func Unauthorized(reason, message string) error {
	return &Error{Code: CodeUnauthorized, Reason: reason, Message: message}
}

func NotFound(message string) error {
	return &Error{Code: CodeNotFound, Message: message}
}

func InvalidTransition(message string) error {
	return &Error{Code: CodeInvalidTransition, Message: message}
}

func InvalidState(reason, message string) error {
	return &Error{Code: CodeInvalidState, Reason: reason, Message: message}
}

func Conflict(reason, message string) error {
	return &Error{Code: CodeConflict, Reason: reason, Message: message}
}

func Persistence(err error) error {
	return &Error{Code: CodePersistence, Message: "persistence failure", Err: err}
}

// Wrap leaves engine errors untouched and classifies anything else as a persistence failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}
	return Persistence(err)
}

// CodeOf reports the taxonomy code of err, or "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return CodePersistence
}

func ReasonOf(err error) string {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Reason
	}
	return ""
}
