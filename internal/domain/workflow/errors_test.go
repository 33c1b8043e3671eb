package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesCodeAndReason(t *testing.T) {
	err := Conflict(ReasonWorkflowExists, "employee already has an active workflow")
	wrapped := fmt.Errorf("assign: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.True(t, errors.Is(wrapped, &Error{Code: CodeConflict, Reason: ReasonWorkflowExists}))
	assert.False(t, errors.Is(wrapped, &Error{Code: CodeConflict, Reason: ReasonAppraisalExists}))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestWrapClassifiesForeignErrorsAsPersistence(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause)
	assert.Equal(t, CodePersistence, CodeOf(err))
	assert.True(t, errors.Is(err, cause))

	engine := NotFound("appraisal not found")
	assert.Same(t, engine, Wrap(fmt.Errorf("tx: %w", engine)))
	assert.Nil(t, Wrap(nil))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Length("title", "", 1, 200)
	v.Length("description", string(make([]rune, 2001)), 0, 2000)
	v.Range("rating", 7, 1, 5)
	v.OneOf("status", "archived", "draft", "submitted")

	err := v.Err()
	var engineErr *Error
	if assert.ErrorAs(t, err, &engineErr) {
		assert.Equal(t, CodeValidation, engineErr.Code)
		fields := make([]string, 0, len(engineErr.Fields))
		for _, f := range engineErr.Fields {
			fields = append(fields, f.Field)
		}
		assert.Equal(t, []string{"description", "rating", "status", "title"}, fields)
	}
	assert.NoError(t, NewValidator().Err())
}
