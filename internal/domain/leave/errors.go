package leave

import "errors"

var (
	ErrNotFound         = errors.New("leave request not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)
