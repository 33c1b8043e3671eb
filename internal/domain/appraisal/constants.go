package appraisal

const (
	GoalNotStarted  = "not_started"
	GoalInProgress  = "in_progress"
	GoalAchieved    = "achieved"
	GoalNotAchieved = "not_achieved"
)

var goalStatuses = []string{GoalNotStarted, GoalInProgress, GoalAchieved, GoalNotAchieved}

const (
	minPeriodDays = 30
	maxPeriodDays = 365
	maxNarrative  = 5000
	maxGoalTitle  = 200
	maxGoalText   = 2000
	minRating     = 1
	maxRating     = 5
)

const (
	opCreate         = "appraisal.create"
	opSelfAssessment = "appraisal.self_assessment"
	opReview         = "appraisal.review"
	opGoals          = "appraisal.goals"
	opGet            = "appraisal.get"
	opList           = "appraisal.list"
)
