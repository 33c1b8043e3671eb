package onboarding

import (
	"fmt"
	"sort"

	"hrflow/internal/domain/workflow"
)

func validateTemplate(in TemplateInput) error {
	v := workflow.NewValidator()
	v.Length("name", in.Name, 1, maxName)
	v.Length("description", in.Description, 0, maxText)
	if len(in.Tasks) == 0 {
		v.Add("tasks", "at least one task is required")
	}
	for i, t := range in.Tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		v.Length(prefix+".title", t.Title, 1, maxTaskTitle)
		v.Length(prefix+".description", t.Description, 0, maxText)
		if t.DayOffset < 0 {
			v.Add(prefix+".dayOffset", "must not be negative")
		}
	}
	return v.Err()
}

func validateAssign(in AssignInput) error {
	v := workflow.NewValidator()
	v.Required("employeeId", in.EmployeeID)
	v.Required("templateId", in.TemplateID)
	if in.StartDate.IsZero() {
		v.Add("startDate", "is required")
	}
	keys := make([]string, 0, len(in.DueDateOverrides))
	for id := range in.DueDateOverrides {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		due := in.DueDateOverrides[id]
		switch {
		case due.IsZero():
			v.Add("dueDateOverrides."+id, "must be a valid date")
		case !in.StartDate.IsZero() && due.Before(in.StartDate):
			v.Add("dueDateOverrides."+id, "must not be before startDate")
		}
	}
	return v.Err()
}

func validateComplete(in CompleteTaskInput) error {
	v := workflow.NewValidator()
	v.Length("documentRef", in.DocumentRef, 0, maxDocumentRef)
	return v.Err()
}

func estimatedDays(tasks []TemplateTaskInput) int {
	days := 1
	for _, t := range tasks {
		if t.DayOffset > days {
			days = t.DayOffset
		}
	}
	return days
}
