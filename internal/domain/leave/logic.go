package leave

import (
	"time"

	"hrflow/internal/domain/workflow"
)

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// BusinessDays counts the Monday to Friday dates in [start, end].
func BusinessDays(start, end time.Time) int {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0
	}
	span := int(end.Sub(start).Hours()/24) + 1
	count := span / 7 * 5
	for d := start.AddDate(0, 0, span/7*7); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			count++
		}
	}
	return count
}

// RequestDays is the number of working days a request consumes. A half-day
// flag takes half a day off its boundary, which must be a working day.
func RequestDays(start, end time.Time, startHalf, endHalf bool) (float64, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0, workflow.Validation(workflow.FieldIssue{Field: "endDate", Reason: "must not be before startDate"})
	}

	days := float64(BusinessDays(start, end))
	if days == 0 {
		return 0, workflow.ValidationReason(workflow.ReasonNoWorkingDays, "startDate", "range contains no working days")
	}

	v := workflow.NewValidator()
	if startHalf && isWeekend(start) {
		v.Add("startHalf", "start date is not a working day")
	}
	if endHalf && isWeekend(end) {
		v.Add("endHalf", "end date is not a working day")
	}
	if startHalf && endHalf && start.Equal(end) {
		v.Add("endHalf", "cannot be combined with startHalf on a single day")
	}
	if err := v.Err(); err != nil {
		return 0, err
	}

	if startHalf {
		days -= 0.5
	}
	if endHalf {
		days -= 0.5
	}
	return days, nil
}
