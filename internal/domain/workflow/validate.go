package workflow

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Validator collects field issues so input is rejected before any store access.
type Validator struct {
	issues []FieldIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]FieldIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

// Length checks the trimmed rune count; min 0 makes the field optional.
func (v *Validator) Length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if min > 0 && n < min {
		if min == 1 {
			v.Add(field, "is required")
			return
		}
		v.Add(field, fmt.Sprintf("must be at least %d characters", min))
		return
	}
	if max > 0 && n > max {
		v.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

func (v *Validator) OneOf(field, value string, allowed ...string) {
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	v.Add(field, "must be one of: "+strings.Join(allowed, ", "))
}

func (v *Validator) Range(field string, value, min, max int) {
	if value < min || value > max {
		v.Add(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

func (v *Validator) HasIssues() bool {
	return len(v.issues) > 0
}

// Err returns a VALIDATION_ERROR listing every issue, sorted by field.
func (v *Validator) Err() error {
	if !v.HasIssues() {
		return nil
	}
	out := make([]FieldIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Field < out[j].Field
	})
	return Validation(out...)
}
