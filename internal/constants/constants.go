package constants

// Session and context keys
const (
	SessionCookieName        = "taskflow_session"
	ContextKeyUserID         = "staff_id"
	ContextKeyTaskID         = "task_id"
	ContextKeyDelegationID   = "delegation_id"
	ContextKeyNotificationID = "notification_id"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Task numbering
const (
	TaskNumberPrefix   = "T"
	TaskSequenceName   = "tasks"
	FirstTaskNumber    = 100
	CloneNumberPattern = "%s.%d"
)

const (
	MinPasswordLength   = 8
	MaxAIGeneratedTasks = 20
)
