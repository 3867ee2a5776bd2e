package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/constants"
	"taskboard/internal/dto"
	apierrors "taskboard/internal/errors"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/internal/services"
	"taskboard/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns tasks narrowed by query filters, paginated.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := repository.TaskFilter{
		OwnerID:    c.Query("owner_id"),
		AssigneeID: c.Query("assignee_id"),
		Category:   c.Query("category"),
		Priority:   c.Query("priority"),
		Status:     c.Query("status"),
		Tag:        c.Query("tag"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort_by"),
		SortDesc:   c.Query("order") == "desc",
		Offset:     params.Offset,
		Limit:      params.Limit,
	}

	if completedStr := c.Query("completed"); completedStr != "" {
		completed, err := strconv.ParseBool(completedStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid completed filter")
			return
		}
		filter.Completed = &completed
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit))
}

// GetTask returns a specific task by ID.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskDTO(task))
}

// CreateTask creates a new task owned by the current user.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title          string     `json:"title" binding:"required"`
		Description    string     `json:"description"`
		AssigneeID     string     `json:"assignee_id"`
		Category       string     `json:"category"`
		Priority       string     `json:"priority"`
		Status         string     `json:"status"`
		DueDate        *time.Time `json:"due_date"`
		EstimatedHours *float64   `json:"estimated_hours"`
		Tags           []string   `json:"tags"`
		Dependencies   []string   `json:"dependencies"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		OwnerID:        userID,
		AssigneeID:     req.AssigneeID,
		Category:       req.Category,
		Priority:       req.Priority,
		Status:         req.Status,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
		Dependencies:   req.Dependencies,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusCreated, dto.ToTaskDTO(task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateTaskRequest struct {
		Title          *string    `json:"title"`
		Description    *string    `json:"description"`
		Priority       *string    `json:"priority"`
		Category       *string    `json:"category"`
		Status         *string    `json:"status"`
		AssigneeID     *string    `json:"assignee_id"`
		DueDate        *time.Time `json:"due_date"`
		ClearDueDate   bool       `json:"clear_due_date"`
		EstimatedHours *float64   `json:"estimated_hours"`
		AddTimeSpent   *float64   `json:"add_time_spent"`
		AddTags        []string   `json:"add_tags"`
		RemoveTags     []string   `json:"remove_tags"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), userID, repository.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Category:       req.Category,
		Status:         req.Status,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		ClearDueDate:   req.ClearDueDate,
		EstimatedHours: req.EstimatedHours,
		AddTimeSpent:   req.AddTimeSpent,
		AddTags:        req.AddTags,
		RemoveTags:     req.RemoveTags,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskDTO(task))
}

// DeleteTask removes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "Task deleted")
}

// AddNote appends a note to a task.
func (h *TaskHandler) AddNote(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddNoteRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	note, err := h.taskService.AddNote(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusCreated, dto.ToNoteDTO(*note))
}

// RemoveNote deletes a note from a task.
func (h *TaskHandler) RemoveNote(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	removed, err := h.taskService.RemoveNote(c.Request.Context(), c.Param("id"), userID, c.Param("noteId"))
	if err != nil {
		respondTaskError(c, err)
		return
	}
	if !removed {
		apierrors.NotFound(c, "Note not found")
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "Note removed")
}

// AddDependency links a task to a prerequisite task.
func (h *TaskHandler) AddDependency(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddDependencyRequest struct {
		DependsOn string `json:"depends_on" binding:"required"`
	}

	var req AddDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AddDependency(c.Request.Context(), c.Param("id"), userID, req.DependsOn)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskDTO(task))
}

// RemoveDependency unlinks a prerequisite task.
func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	removed, err := h.taskService.RemoveDependency(c.Request.Context(), c.Param("id"), userID, c.Param("depId"))
	if err != nil {
		respondTaskError(c, err)
		return
	}
	if !removed {
		apierrors.NotFound(c, "Dependency not found")
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "Dependency removed")
}

// GetStatistics aggregates tasks. With scope=me only the current user's
// tasks are counted.
func (h *TaskHandler) GetStatistics(c *gin.Context) {
	ownerID := ""
	if c.Query("scope") == "me" {
		userID, exists := middleware.GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "Not authenticated")
			return
		}
		ownerID = userID
	}

	stats, err := h.taskService.Statistics(c.Request.Context(), ownerID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, stats)
}

// GetOverdue returns every overdue task.
func (h *TaskHandler) GetOverdue(c *gin.Context) {
	tasks, err := h.taskService.Overdue(c.Request.Context())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskListResponse(tasks, 1, len(tasks)))
}

// GetDueSoon returns tasks due within the next days (default 7).
func (h *TaskHandler) GetDueSoon(c *gin.Context) {
	days := constants.DueSoonDays
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			apierrors.BadRequest(c, "Invalid days parameter")
			return
		}
		days = parsed
	}

	tasks, err := h.taskService.DueWithin(c.Request.Context(), days)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToTaskListResponse(tasks, 1, len(tasks)))
}

func respondTaskError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apierrors.BadRequestWithDetails(c, "Validation failed", gin.H{
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrDependencyNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskOwnerInvalid),
		errors.Is(err, services.ErrTaskAssigneeInvalid):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
