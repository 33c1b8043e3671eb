package appraisal

import (
	"fmt"
	"strings"

	"hrflow/internal/domain/workflow"
)

func validateCreate(in CreateInput) error {
	v := workflow.NewValidator()
	v.Required("employeeId", in.EmployeeID)
	switch {
	case in.PeriodStart.IsZero():
		v.Add("periodStart", "is required")
	case in.PeriodEnd.IsZero():
		v.Add("periodEnd", "is required")
	case !in.PeriodEnd.After(in.PeriodStart):
		v.Add("periodEnd", "must be after periodStart")
	default:
		days := int(in.PeriodEnd.Sub(in.PeriodStart).Hours() / 24)
		if days < minPeriodDays || days > maxPeriodDays {
			v.Add("periodEnd", fmt.Sprintf("period must span %d to %d days", minPeriodDays, maxPeriodDays))
		}
	}
	for i, g := range in.Goals {
		validateGoalInput(v, fmt.Sprintf("goals[%d]", i), g)
	}
	return v.Err()
}

func validateGoalInput(v *workflow.Validator, prefix string, g GoalInput) {
	v.Length(prefix+".title", g.Title, 1, maxGoalTitle)
	v.Length(prefix+".description", g.Description, 0, maxGoalText)
	if g.Status != "" {
		v.OneOf(prefix+".status", g.Status, goalStatuses...)
	}
}

func validateStatusUpdates(v *workflow.Validator, updates []GoalStatusUpdate) {
	for i, u := range updates {
		prefix := fmt.Sprintf("goalUpdates[%d]", i)
		v.Required(prefix+".id", u.ID)
		v.OneOf(prefix+".status", u.Status, goalStatuses...)
		if u.Notes != nil {
			v.Length(prefix+".notes", *u.Notes, 0, maxGoalText)
		}
	}
}

func validateSelfAssessment(in SelfAssessmentInput) error {
	v := workflow.NewValidator()
	v.Length("selfAssessment", in.SelfAssessment, 1, maxNarrative)
	validateStatusUpdates(v, in.GoalUpdates)
	return v.Err()
}

func validateReview(in ReviewInput) error {
	v := workflow.NewValidator()
	v.Length("managerFeedback", in.Feedback, 1, maxNarrative)
	v.Range("rating", in.Rating, minRating, maxRating)
	validateStatusUpdates(v, in.GoalUpdates)
	return v.Err()
}

func validateGoalChanges(in GoalChanges) error {
	v := workflow.NewValidator()
	if len(in.Add) == 0 && len(in.Update) == 0 && len(in.Remove) == 0 {
		v.Add("goals", "at least one change is required")
	}
	for i, g := range in.Add {
		validateGoalInput(v, fmt.Sprintf("add[%d]", i), g)
	}
	for i, p := range in.Update {
		prefix := fmt.Sprintf("update[%d]", i)
		v.Required(prefix+".id", p.ID)
		if p.Title != nil {
			v.Length(prefix+".title", *p.Title, 1, maxGoalTitle)
		}
		if p.Description != nil {
			v.Length(prefix+".description", *p.Description, 0, maxGoalText)
		}
		if p.Status != nil {
			v.OneOf(prefix+".status", *p.Status, goalStatuses...)
		}
		if p.Notes != nil {
			v.Length(prefix+".notes", *p.Notes, 0, maxGoalText)
		}
	}
	for i, id := range in.Remove {
		v.Required(fmt.Sprintf("remove[%d]", i), id)
	}
	return v.Err()
}

func newGoal(in GoalInput) Goal {
	status := in.Status
	if status == "" {
		status = GoalNotStarted
	}
	return Goal{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		TargetDate:  in.TargetDate,
		Status:      status,
	}
}

func statusChanges(updates []GoalStatusUpdate) workflow.Changes[Goal] {
	var changes workflow.Changes[Goal]
	for _, u := range updates {
		changes.Update = append(changes.Update, workflow.Update[Goal]{ID: u.ID, Apply: func(g *Goal) {
			g.Status = u.Status
			if u.Notes != nil {
				g.Notes = strings.TrimSpace(*u.Notes)
			}
		}})
	}
	return changes
}

func goalChanges(in GoalChanges) workflow.Changes[Goal] {
	changes := workflow.Changes[Goal]{Remove: in.Remove}
	for _, g := range in.Add {
		changes.Add = append(changes.Add, newGoal(g))
	}
	for _, p := range in.Update {
		changes.Update = append(changes.Update, workflow.Update[Goal]{ID: p.ID, Apply: func(g *Goal) {
			if p.Title != nil {
				g.Title = strings.TrimSpace(*p.Title)
			}
			if p.Description != nil {
				g.Description = strings.TrimSpace(*p.Description)
			}
			if p.TargetDate != nil {
				g.TargetDate = p.TargetDate
			}
			if p.Status != nil {
				g.Status = *p.Status
			}
			if p.Notes != nil {
				g.Notes = strings.TrimSpace(*p.Notes)
			}
		}})
	}
	return changes
}
