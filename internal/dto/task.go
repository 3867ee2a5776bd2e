package dto

import (
	"time"

	"taskboard/internal/models"
)

// NoteDTO represents a task note in API responses
type NoteDTO struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	OwnerID        string              `json:"owner_id"`
	AssigneeID     string              `json:"assignee_id"`
	Category       models.TaskCategory `json:"category"`
	Tags           []string            `json:"tags"`
	Priority       models.TaskPriority `json:"priority"`
	Status         models.TaskStatus   `json:"status"`
	Completed      bool                `json:"completed"`
	DueDate        *time.Time          `json:"due_date"`
	EstimatedHours *float64            `json:"estimated_hours,omitempty"`
	ActualHours    float64             `json:"actual_hours"`
	Notes          []NoteDTO           `json:"notes,omitempty"`
	Dependencies   []string            `json:"dependencies,omitempty"`
	IsOverdue      bool                `json:"is_overdue"`
	DaysUntilDue   *int                `json:"days_until_due,omitempty"`
	Progress       float64             `json:"progress"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	OwnerID    string              `json:"owner_id"`
	AssigneeID string              `json:"assignee_id"`
	Category   models.TaskCategory `json:"category"`
	Priority   models.TaskPriority `json:"priority"`
	Status     models.TaskStatus   `json:"status"`
	Completed  bool                `json:"completed"`
	DueDate    *time.Time          `json:"due_date"`
	IsOverdue  bool                `json:"is_overdue"`
	CreatedAt  time.Time           `json:"created_at"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks    []TaskListItemDTO `json:"tasks"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Count    int               `json:"count"`
}

// Conversion functions

// ToNoteDTO converts a Note model to NoteDTO
func ToNoteDTO(note models.Note) NoteDTO {
	return NoteDTO{
		ID:        note.ID,
		Content:   note.Content,
		Author:    note.Author,
		CreatedAt: note.CreatedAt,
	}
}

// ToTaskDTO converts a Task model to TaskDTO, including the derived
// overdue, days-until-due and progress fields.
func ToTaskDTO(task *models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		OwnerID:        task.OwnerID,
		AssigneeID:     task.AssigneeID,
		Category:       task.Category,
		Tags:           task.Tags,
		Priority:       task.Priority,
		Status:         task.Status,
		Completed:      task.Completed,
		DueDate:        task.DueDate,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Dependencies:   task.Dependencies,
		IsOverdue:      task.IsOverdue(),
		Progress:       task.Progress(),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		CompletedAt:    task.CompletedAt,
	}

	if days, ok := task.DaysUntilDue(); ok {
		dto.DaysUntilDue = &days
	}

	if len(task.Notes) > 0 {
		dto.Notes = make([]NoteDTO, len(task.Notes))
		for i, note := range task.Notes {
			dto.Notes[i] = ToNoteDTO(note)
		}
	}

	return dto
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task *models.Task) TaskListItemDTO {
	return TaskListItemDTO{
		ID:         task.ID,
		Title:      task.Title,
		OwnerID:    task.OwnerID,
		AssigneeID: task.AssigneeID,
		Category:   task.Category,
		Priority:   task.Priority,
		Status:     task.Status,
		Completed:  task.Completed,
		DueDate:    task.DueDate,
		IsOverdue:  task.IsOverdue(),
		CreatedAt:  task.CreatedAt,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []*models.Task, page, pageSize int) TaskListResponse {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}

	return TaskListResponse{
		Tasks:    items,
		Page:     page,
		PageSize: pageSize,
		Count:    len(items),
	}
}
