package constants

// Context keys shared between middleware and handlers
const (
	ContextKeyUserID = "user_id"
)

// SessionCookieName is the cookie holding the session id.
const SessionCookieName = "taskboard_session"

// Pagination limits
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Field length limits enforced by validation
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MinUsernameLength    = 3
	MaxUsernameLength    = 50
)

// DueSoonDays is the window used for "due soon" queries and statistics.
const DueSoonDays = 7

// Storage keys and snapshot versioning
const (
	StorageKeyTasks = "tasks"
	StorageKeyUsers = "users"
	SnapshotVersion = "1.0"
)
