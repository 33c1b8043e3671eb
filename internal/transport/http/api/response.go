package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"hrflow/internal/domain/workflow"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

var statusByCode = map[workflow.Code]int{
	workflow.CodeValidation:        http.StatusBadRequest,
	workflow.CodeUnauthorized:      http.StatusForbidden,
	workflow.CodeNotFound:          http.StatusNotFound,
	workflow.CodeInvalidTransition: http.StatusConflict,
	workflow.CodeInvalidState:      http.StatusConflict,
	workflow.CodeConflict:          http.StatusConflict,
	workflow.CodePersistence:       http.StatusInternalServerError,
}

// FailError writes an engine error. Persistence details stay in the logs.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var werr *workflow.Error
	if !errors.As(err, &werr) {
		werr = workflow.Wrap(err).(*workflow.Error)
	}
	status, ok := statusByCode[werr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := &Error{Code: strings.ToLower(string(werr.Code)), Message: werr.Message, Reason: werr.Reason}
	if werr.Reason == workflow.ReasonEmployeeNotLinked {
		body.Code = strings.ToLower(werr.Reason)
	}
	if werr.Code == workflow.CodePersistence {
		body.Message = "internal error"
	}
	if len(werr.Fields) > 0 {
		body.Details = map[string]any{"fields": werr.Fields}
	}
	WriteJSON(w, status, Envelope{Success: false, Error: body, RequestID: requestID})
}
