package notifications

const (
	KindAppraisalCreated        = "appraisal_created"
	KindSelfAssessmentSubmitted = "self_assessment_submitted"
	KindReviewCompleted         = "review_completed"
	KindGoalsUpdated            = "goals_updated"
	KindOnboardingAssigned      = "onboarding_assigned"
	KindOnboardingTaskCompleted = "onboarding_task_completed"
	KindOnboardingCompleted     = "onboarding_completed"
	KindLeaveRequested          = "leave_requested"
	KindLeaveApproved           = "leave_approved"
	KindLeaveRejected           = "leave_rejected"
	KindLeaveCancelled          = "leave_cancelled"
)
