package repository

import (
	"context"
	"errors"
	"time"

	"taskboard/internal/models"
)

// Conflict errors returned by Create.
var (
	ErrIDConflict    = errors.New("repository: id already exists")
	ErrUsernameTaken = errors.New("repository: username already exists")
	ErrEmailTaken    = errors.New("repository: email already exists")
)

// TaskFilter holds the narrowing, sorting and pagination options for
// listing tasks. Zero values mean "no constraint".
type TaskFilter struct {
	OwnerID    string
	AssigneeID string
	Category   string
	Priority   string
	Status     string
	Completed  *bool
	Tag        string
	// Search matches a lowercase substring over title, description and tags.
	Search string

	// SortBy names a field: created_at, updated_at, due_date, priority,
	// title or status. Ties keep stable input order.
	SortBy   string
	SortDesc bool

	Offset int
	Limit  int
}

// TaskUpdate is the explicit set of fields Update may change. Nil fields
// are left untouched, so the compiler enforces the known-field set instead
// of a runtime method-name lookup.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Priority       *string
	Category       *string
	Status         *string
	AssigneeID     *string
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	AddTimeSpent   *float64
	AddTags        []string
	RemoveTags     []string
}

// TaskStatistics aggregates the live index at call time.
type TaskStatistics struct {
	Total      int                           `json:"total"`
	Completed  int                           `json:"completed"`
	Incomplete int                           `json:"incomplete"`
	Overdue    int                           `json:"overdue"`
	DueSoon    int                           `json:"due_soon"`
	ByStatus   map[models.TaskStatus]int     `json:"by_status"`
	ByPriority map[models.TaskPriority]int   `json:"by_priority"`
	ByCategory map[models.TaskCategory]int   `json:"by_category"`
}

// TaskRepository owns the authoritative collection of tasks.
//
// Missing ids are signalled by nil or false returns, never by errors;
// callers must check results.
type TaskRepository interface {
	// Create inserts a task and persists the collection snapshot.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)

	// FindByID returns the task, or nil when the id is unknown.
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// FindAll returns tasks narrowed, sorted and paginated by the filter.
	FindAll(ctx context.Context, filter TaskFilter) ([]*models.Task, error)

	// Update atomically applies the tagged field set through the entity's
	// mutators. All fields are validated against a clone before anything
	// is committed; a failing field leaves the stored task untouched.
	// Returns nil when the id is unknown.
	Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error)

	// Save re-persists an entity that was mutated through its own methods
	// (notes, dependencies, status). Returns nil when the id is unknown.
	Save(ctx context.Context, task *models.Task) (*models.Task, error)

	// Delete hard-removes a task and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Specialized finders, all derived from FindAll.
	FindByOwner(ctx context.Context, ownerID string) ([]*models.Task, error)
	FindByAssignee(ctx context.Context, assigneeID string) ([]*models.Task, error)
	FindByCategory(ctx context.Context, category string) ([]*models.Task, error)
	FindByPriority(ctx context.Context, priority string) ([]*models.Task, error)
	FindByStatus(ctx context.Context, status string) ([]*models.Task, error)
	FindByTag(ctx context.Context, tag string) ([]*models.Task, error)
	FindOverdue(ctx context.Context) ([]*models.Task, error)
	FindDueWithin(ctx context.Context, days int) ([]*models.Task, error)
	Search(ctx context.Context, query string) ([]*models.Task, error)

	// Statistics aggregates the index, optionally scoped to one owner.
	Statistics(ctx context.Context, ownerID string) (TaskStatistics, error)
}

// UserFilter holds the narrowing, sorting and pagination options for
// listing users.
type UserFilter struct {
	Role     string
	Active   *bool
	Verified *bool
	// Search matches a lowercase substring over username, email and
	// display name.
	Search string

	SortBy   string
	SortDesc bool

	Offset int
	Limit  int
}

// UserUpdate is the explicit set of fields Update may change.
type UserUpdate struct {
	Username    *string
	Email       *string
	DisplayName *string
	FirstName   *string
	LastName    *string
	Bio         *string
	Avatar      *string
	Role        *string
	Verified    *bool
	Preferences map[string]any
}

// UserStatistics aggregates the live index at call time.
type UserStatistics struct {
	Total    int                     `json:"total"`
	Active   int                     `json:"active"`
	Inactive int                     `json:"inactive"`
	Verified int                     `json:"verified"`
	ByRole   map[models.UserRole]int `json:"by_role"`
}

// UserRepository owns the authoritative collection of users. Deleting is
// split into Deactivate (soft, the default) and Purge (hard), so the
// semantic difference is visible in the interface.
type UserRepository interface {
	// Create inserts a user after checking username and email uniqueness
	// (case-insensitive) and persists the collection snapshot.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByID returns the user, or nil when the id is unknown.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByUsername looks a user up by normalized username.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail looks a user up by normalized email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindAll returns users narrowed, sorted and paginated by the filter.
	FindAll(ctx context.Context, filter UserFilter) ([]*models.User, error)

	// Update atomically applies the tagged field set, re-checking
	// username/email uniqueness. Returns nil when the id is unknown.
	Update(ctx context.Context, id string, update UserUpdate) (*models.User, error)

	// Save re-persists an entity mutated through its own methods.
	Save(ctx context.Context, user *models.User) (*models.User, error)

	// Deactivate soft-deletes a user, preserving the record.
	Deactivate(ctx context.Context, id string) (bool, error)

	// Purge permanently removes a user from the index.
	Purge(ctx context.Context, id string) (bool, error)

	// Statistics aggregates the index.
	Statistics(ctx context.Context) (UserStatistics, error)
}
