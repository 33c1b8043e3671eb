package onboarding

const (
	maxName        = 200
	maxText        = 2000
	maxTaskTitle   = 200
	maxDocumentRef = 500
)

const (
	opCreateTemplate = "onboarding.create_template"
	opTemplateActive = "onboarding.template_active"
	opAssign         = "onboarding.assign"
	opStartTask      = "onboarding.start_task"
	opCompleteTask   = "onboarding.complete_task"
	opGetWorkflow    = "onboarding.get_workflow"
	opListWorkflows  = "onboarding.list_workflows"
	opGetTemplate    = "onboarding.get_template"
	opListTemplates  = "onboarding.list_templates"
)

const entityTemplate = "onboarding_template"
