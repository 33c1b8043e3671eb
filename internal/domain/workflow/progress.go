package workflow

import (
	"math"
	"time"
)

// ItemState is the only view of a child item progress needs.
type ItemState struct {
	Started   bool
	Completed bool
}

type Progress struct {
	Percent int    `json:"percent"`
	Status  string `json:"status"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

// ComputeProgress derives completion and status from child items. Status is
// completed exactly when every item is completed, so a rounded 100 on an
// unfinished set is held at 99.
func ComputeProgress(items []ItemState) Progress {
	p := Progress{Total: len(items), Status: WorkflowNotStarted}
	started := false
	for _, item := range items {
		if item.Completed {
			p.Done++
			started = true
			continue
		}
		if item.Started {
			started = true
		}
	}
	if p.Total == 0 {
		return p
	}
	p.Percent = int(math.Round(100 * float64(p.Done) / float64(p.Total)))
	switch {
	case p.Done == p.Total:
		p.Status = WorkflowCompleted
		p.Percent = 100
	case started:
		p.Status = WorkflowInProgress
		if p.Percent >= 100 {
			p.Percent = 99
		}
	}
	return p
}

// Stamps are the lifecycle timestamps of a progress-derived parent.
type Stamps struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Stamp records the start on the first move out of not_started and the
// completion on entry into completed. Existing stamps are never overwritten.
func Stamp(prev, next string, s Stamps, now time.Time) Stamps {
	if prev == next {
		return s
	}
	if next != WorkflowNotStarted && s.StartedAt == nil {
		at := now
		s.StartedAt = &at
	}
	if next == WorkflowCompleted && s.CompletedAt == nil {
		at := now
		s.CompletedAt = &at
	}
	return s
}
