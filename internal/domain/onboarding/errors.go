package onboarding

import "errors"

var (
	ErrTemplateNotFound = errors.New("onboarding template not found")
	ErrWorkflowNotFound = errors.New("onboarding workflow not found")
	ErrTaskNotFound     = errors.New("onboarding task not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrWorkflowExists   = errors.New("employee already has an open onboarding workflow")
)
