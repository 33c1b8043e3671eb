package appraisal

import "errors"

var (
	ErrNotFound        = errors.New("appraisal not found")
	ErrDuplicatePeriod = errors.New("appraisal already exists for period")
)
