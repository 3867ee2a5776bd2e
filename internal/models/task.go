package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/validation"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

type TaskCategory string

const (
	TaskCategoryWork     TaskCategory = "work"
	TaskCategoryPersonal TaskCategory = "personal"
	TaskCategoryStudy    TaskCategory = "study"
	TaskCategoryHealth   TaskCategory = "health"
	TaskCategoryFinance  TaskCategory = "finance"
	TaskCategoryOther    TaskCategory = "other"
)

// TaskStatuses lists every legal task status.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusBlocked,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

// TaskCategories lists every legal task category.
var TaskCategories = []TaskCategory{
	TaskCategoryWork,
	TaskCategoryPersonal,
	TaskCategoryStudy,
	TaskCategoryHealth,
	TaskCategoryFinance,
	TaskCategoryOther,
}

// Note is an append-only comment attached to a task.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a mutable domain entity. State changes go through the named
// mutators, which validate their input and bump UpdatedAt. Mutating the
// exported fields directly bypasses the invariants and is not persisted
// until the owning repository is told to update.
type Task struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	OwnerID        string       `json:"owner_id"`
	AssigneeID     string       `json:"assignee_id"`
	Category       TaskCategory `json:"category"`
	Tags           []string     `json:"tags"`
	Priority       TaskPriority `json:"priority"`
	Status         TaskStatus   `json:"status"`
	Completed      bool         `json:"completed"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	EstimatedHours *float64     `json:"estimated_hours,omitempty"`
	ActualHours    float64      `json:"actual_hours"`
	Notes          []Note       `json:"notes"`
	Dependencies   []string     `json:"dependencies"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// TaskOptions holds the optional fields accepted by NewTask.
type TaskOptions struct {
	AssigneeID     string
	Category       string
	Tags           []string
	Priority       string
	Status         string
	DueDate        *time.Time
	EstimatedHours *float64
	Dependencies   []string
}

// NewTask validates every supplied field and builds a task with a fresh id
// and creation timestamp. The assignee defaults to the owner.
func NewTask(title, description, ownerID string, opts TaskOptions) (*Task, error) {
	titleResult := validation.Title(title)
	if !titleResult.Valid {
		return nil, NewValidationError("title", titleResult.Errors[0])
	}

	descResult := validation.Description(description)
	if !descResult.Valid {
		return nil, NewValidationError("description", descResult.Errors[0])
	}

	if strings.TrimSpace(ownerID) == "" {
		return nil, NewValidationError("owner_id", "owner is required")
	}

	priorityResult := validation.Priority(opts.Priority)
	if !priorityResult.Valid {
		return nil, NewValidationError("priority", priorityResult.Errors[0])
	}

	category := TaskCategoryOther
	if opts.Category != "" {
		category = TaskCategory(strings.ToLower(opts.Category))
		if !isValidCategory(category) {
			return nil, NewValidationError("category", "unknown category")
		}
	}

	status := TaskStatusPending
	if opts.Status != "" {
		status = TaskStatus(strings.ToLower(opts.Status))
		if !isValidStatus(status) {
			return nil, NewValidationError("status", "unknown status")
		}
	}

	// Past due dates are accepted here: historical records and already
	// overdue tasks must remain constructible. Fresh input is screened
	// against the past-date rule by validation.DueDate at the API layer.
	var dueDate *time.Time
	if opts.DueDate != nil {
		due := *opts.DueDate
		dueDate = &due
	}

	if opts.EstimatedHours != nil && *opts.EstimatedHours < 0 {
		return nil, NewValidationError("estimated_hours", "estimated hours cannot be negative")
	}

	now := time.Now().UTC()
	task := &Task{
		ID:             uuid.NewString(),
		Title:          titleResult.Sanitized,
		Description:    descResult.Sanitized,
		OwnerID:        ownerID,
		AssigneeID:     opts.AssigneeID,
		Category:       category,
		Tags:           []string{},
		Priority:       TaskPriority(priorityResult.Sanitized),
		Status:         status,
		DueDate:        dueDate,
		EstimatedHours: opts.EstimatedHours,
		Notes:          []Note{},
		Dependencies:   []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.AssigneeID == "" {
		task.AssigneeID = ownerID
	}

	for _, tag := range opts.Tags {
		task.appendTag(tag)
	}
	for _, dep := range opts.Dependencies {
		if err := task.appendDependency(dep); err != nil {
			return nil, err
		}
	}

	if status == TaskStatusCompleted {
		task.Completed = true
		completedAt := now
		task.CompletedAt = &completedAt
	}

	return task, nil
}

// UpdateTitle replaces the title after validation.
func (t *Task) UpdateTitle(title string) error {
	result := validation.Title(title)
	if !result.Valid {
		return NewValidationError("title", result.Errors[0])
	}
	t.Title = result.Sanitized
	t.touch()
	return nil
}

// UpdateDescription replaces the description after validation.
func (t *Task) UpdateDescription(description string) error {
	result := validation.Description(description)
	if !result.Valid {
		return NewValidationError("description", result.Errors[0])
	}
	t.Description = result.Sanitized
	t.touch()
	return nil
}

// UpdatePriority replaces the priority after validation.
func (t *Task) UpdatePriority(priority string) error {
	result := validation.Priority(priority)
	if !result.Valid {
		return NewValidationError("priority", result.Errors[0])
	}
	t.Priority = TaskPriority(result.Sanitized)
	t.touch()
	return nil
}

// SetCategory replaces the category.
func (t *Task) SetCategory(category string) error {
	c := TaskCategory(strings.ToLower(strings.TrimSpace(category)))
	if !isValidCategory(c) {
		return NewValidationError("category", "unknown category")
	}
	t.Category = c
	t.touch()
	return nil
}

// AddTag adds a lowercase tag, suppressing duplicates.
func (t *Task) AddTag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return NewValidationError("tag", "tag cannot be empty")
	}
	if t.appendTag(tag) {
		t.touch()
	}
	return nil
}

// RemoveTag removes a tag and reports whether it was present.
func (t *Task) RemoveTag(tag string) bool {
	needle := strings.ToLower(strings.TrimSpace(tag))
	for i, existing := range t.Tags {
		if existing == needle {
			t.Tags = append(t.Tags[:i], t.Tags[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	needle := strings.ToLower(strings.TrimSpace(tag))
	for _, existing := range t.Tags {
		if existing == needle {
			return true
		}
	}
	return false
}

// SetDueDate replaces the due date after validation.
func (t *Task) SetDueDate(due time.Time) error {
	result := validation.DueDate(&due)
	if !result.Valid {
		return NewValidationError("due_date", result.Errors[0])
	}
	t.DueDate = result.Sanitized
	t.touch()
	return nil
}

// ClearDueDate removes the due date.
func (t *Task) ClearDueDate() {
	t.DueDate = nil
	t.touch()
}

// SetEstimatedHours replaces the effort estimate.
func (t *Task) SetEstimatedHours(hours float64) error {
	if hours < 0 {
		return NewValidationError("estimated_hours", "estimated hours cannot be negative")
	}
	t.EstimatedHours = &hours
	t.touch()
	return nil
}

// AddTimeSpent accumulates worked hours.
func (t *Task) AddTimeSpent(hours float64) error {
	if hours < 0 {
		return NewValidationError("actual_hours", "time spent cannot be negative")
	}
	t.ActualHours += hours
	t.touch()
	return nil
}

// SetStatus transitions the task. Completing sets the completion flag and
// timestamp; leaving the completed state clears both.
func (t *Task) SetStatus(status string) error {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(status)))
	if !isValidStatus(s) {
		return NewValidationError("status", "unknown status")
	}
	t.Status = s
	if s == TaskStatusCompleted {
		t.Completed = true
		completedAt := time.Now().UTC()
		t.CompletedAt = &completedAt
	} else {
		t.Completed = false
		t.CompletedAt = nil
	}
	t.touch()
	return nil
}

// AddNote appends a note and returns it.
func (t *Task) AddNote(content, author string) (*Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, NewValidationError("note", "note content cannot be empty")
	}
	note := Note{
		ID:        uuid.NewString(),
		Content:   strings.TrimSpace(content),
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	t.Notes = append(t.Notes, note)
	t.touch()
	return &note, nil
}

// RemoveNote deletes a note by id and reports whether it existed.
func (t *Task) RemoveNote(noteID string) bool {
	for i, note := range t.Notes {
		if note.ID == noteID {
			t.Notes = append(t.Notes[:i], t.Notes[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// AddDependency records that this task depends on another. A task cannot
// depend on itself; duplicates are suppressed.
func (t *Task) AddDependency(taskID string) error {
	if err := t.appendDependency(taskID); err != nil {
		return err
	}
	t.touch()
	return nil
}

// RemoveDependency removes a dependency and reports whether it existed.
func (t *Task) RemoveDependency(taskID string) bool {
	for i, dep := range t.Dependencies {
		if dep == taskID {
			t.Dependencies = append(t.Dependencies[:i], t.Dependencies[i+1:]...)
			t.touch()
			return true
		}
	}
	return false
}

// AssignTo hands the task to another user.
func (t *Task) AssignTo(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return NewValidationError("assignee_id", "assignee is required")
	}
	t.AssigneeID = userID
	t.touch()
	return nil
}

// IsOverdue reports whether the due date has passed while the task is not
// completed. Tasks without a due date are never overdue.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted {
		return false
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due := t.DueDate.In(now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
	return dueDay.Before(today)
}

// DaysUntilDue returns the number of days until the due date, rounded up.
// The second return value is false when no due date is set.
func (t *Task) DaysUntilDue() (int, bool) {
	if t.DueDate == nil {
		return 0, false
	}
	days := math.Ceil(time.Until(*t.DueDate).Hours() / 24)
	return int(days), true
}

// Progress returns completion as a percentage. Completed tasks are 100%;
// otherwise the ratio of actual to estimated hours, capped at 100.
func (t *Task) Progress() float64 {
	if t.Completed {
		return 100
	}
	if t.EstimatedHours == nil || *t.EstimatedHours <= 0 {
		return 0
	}
	return math.Min(100, t.ActualHours / *t.EstimatedHours * 100)
}

// Clone returns a deep copy, so callers can hand out task data without
// aliasing the repository's collections.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Tags = append([]string{}, t.Tags...)
	clone.Notes = append([]Note{}, t.Notes...)
	clone.Dependencies = append([]string{}, t.Dependencies...)
	if t.DueDate != nil {
		due := *t.DueDate
		clone.DueDate = &due
	}
	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if t.EstimatedHours != nil {
		estimated := *t.EstimatedHours
		clone.EstimatedHours = &estimated
	}
	return &clone
}

func (t *Task) touch() {
	t.UpdatedAt = time.Now().UTC()
}

// appendTag normalizes and adds a tag, reporting whether the set changed.
func (t *Task) appendTag(tag string) bool {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return false
	}
	for _, existing := range t.Tags {
		if existing == normalized {
			return false
		}
	}
	t.Tags = append(t.Tags, normalized)
	return true
}

func (t *Task) appendDependency(taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return NewValidationError("dependencies", "dependency id cannot be empty")
	}
	if taskID == t.ID {
		return NewValidationError("dependencies", "a task cannot depend on itself")
	}
	for _, existing := range t.Dependencies {
		if existing == taskID {
			return nil
		}
	}
	t.Dependencies = append(t.Dependencies, taskID)
	return nil
}

func isValidStatus(s TaskStatus) bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func isValidCategory(c TaskCategory) bool {
	for _, known := range TaskCategories {
		if c == known {
			return true
		}
	}
	return false
}
