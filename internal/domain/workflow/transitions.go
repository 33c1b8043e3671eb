package workflow

import (
	"fmt"
	"sort"
	"strings"
)

type states map[string]struct{}

func next(values ...string) states {
	out := make(states, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// transitions lists, per kind, the states reachable from each state in one step.
// Terminal states map to an empty set.
var transitions = map[Kind]map[string]states{
	KindAppraisal: {
		AppraisalDraft:     next(AppraisalSubmitted),
		AppraisalSubmitted: next(AppraisalCompleted),
		AppraisalCompleted: next(),
	},
	// Workflow status is derived from task progress and never requested by callers.
	// not_started -> completed covers a single completion that finishes every task.
	KindWorkflow: {
		WorkflowNotStarted: next(WorkflowInProgress, WorkflowCompleted),
		WorkflowInProgress: next(WorkflowCompleted),
		WorkflowCompleted:  next(),
	},
	KindTask: {
		TaskPending:    next(TaskInProgress, TaskCompleted),
		TaskInProgress: next(TaskCompleted),
		TaskCompleted:  next(),
	},
	KindLeave: {
		LeavePending:   next(LeaveApproved, LeaveRejected, LeaveCancelled),
		LeaveApproved:  next(),
		LeaveRejected:  next(),
		LeaveCancelled: next(),
	},
}

// Decision is the outcome of a transition or authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// AllowedNext returns the sorted states reachable from the given state.
func AllowedNext(kind Kind, from string) []string {
	graph, ok := transitions[kind]
	if !ok {
		return nil
	}
	targets := graph[from]
	out := make([]string, 0, len(targets))
	for state := range targets {
		out = append(out, state)
	}
	sort.Strings(out)
	return out
}

// ValidateTransition reports whether kind may move from one state to another.
// Denials name the states that are reachable instead.
func ValidateTransition(kind Kind, from, to string) Decision {
	graph, ok := transitions[kind]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown entity type %q", kind)}
	}
	if _, known := graph[from]; !known {
		return Decision{Reason: fmt.Sprintf("unknown %s state %q", kind, from)}
	}
	if _, ok := graph[from][to]; ok {
		return Decision{Allowed: true}
	}
	allowed := "none"
	if reachable := AllowedNext(kind, from); len(reachable) > 0 {
		allowed = strings.Join(reachable, ", ")
	}
	return Decision{Reason: fmt.Sprintf("cannot move %s from %s to %s; allowed: %s", kind, from, to, allowed)}
}

// RequireTransition is ValidateTransition as an INVALID_TRANSITION error.
func RequireTransition(kind Kind, from, to string) error {
	d := ValidateTransition(kind, from, to)
	if d.Allowed {
		return nil
	}
	return InvalidTransition(d.Reason)
}
