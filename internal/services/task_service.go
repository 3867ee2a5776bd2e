package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/internal/validation"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskOwnerInvalid     = errors.New("owner does not exist or is inactive")
	ErrTaskAssigneeInvalid  = errors.New("assignee does not exist or is inactive")
	ErrTaskPermissionDenied = errors.New("user does not have permission to modify this task")
	ErrDependencyNotFound   = errors.New("dependency task does not exist")
)

// TaskService handles task business logic: input screening, referential
// checks against the user repository and permission checks, on top of the
// task repository.
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title          string
	Description    string
	OwnerID        string
	AssigneeID     string
	Category       string
	Priority       string
	Status         string
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
	Dependencies   []string
}

// CreateTask validates the input, checks that the owner (and assignee, if
// different) reference existing active users, and stores the task.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if err := s.ensureActiveUser(ctx, input.OwnerID, ErrTaskOwnerInvalid); err != nil {
		return nil, err
	}
	if input.AssigneeID != "" && input.AssigneeID != input.OwnerID {
		if err := s.ensureActiveUser(ctx, input.AssigneeID, ErrTaskAssigneeInvalid); err != nil {
			return nil, err
		}
	}

	// New input may not carry a past due date; loaded history may.
	if due := validation.DueDate(input.DueDate); !due.Valid {
		return nil, models.NewValidationError("due_date", due.Errors[0])
	}

	for _, dep := range input.Dependencies {
		existing, err := s.taskRepo.FindByID(ctx, dep)
		if err != nil {
			return nil, fmt.Errorf("failed to check dependency: %w", err)
		}
		if existing == nil {
			return nil, ErrDependencyNotFound
		}
	}

	task, err := models.NewTask(input.Title, input.Description, input.OwnerID, models.TaskOptions{
		AssigneeID:     input.AssigneeID,
		Category:       input.Category,
		Priority:       input.Priority,
		Status:         input.Status,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		Tags:           input.Tags,
		Dependencies:   input.Dependencies,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.taskRepo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("owner_id", created.OwnerID))

	return created, nil
}

// GetTask returns a task by id.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks returns tasks narrowed by the filter.
func (s *TaskService) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	tasks, err := s.taskRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask applies a tagged update after checking the actor may modify
// the task.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID string, update repository.TaskUpdate) (*models.Task, error) {
	task, err := s.authorizeTaskChange(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	if update.AssigneeID != nil && *update.AssigneeID != task.OwnerID {
		if err := s.ensureActiveUser(ctx, *update.AssigneeID, ErrTaskAssigneeInvalid); err != nil {
			return nil, err
		}
	}

	updated, err := s.taskRepo.Update(ctx, taskID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTaskNotFound
	}
	return updated, nil
}

// DeleteTask hard-removes a task. Only the owner or an admin may delete.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID string) error {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.OwnerID != actorID {
		actor, err := s.userRepo.FindByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to find actor: %w", err)
		}
		if actor == nil || !actor.IsAdmin() {
			return ErrTaskPermissionDenied
		}
	}

	if _, err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("task deleted", zap.String("task_id", taskID), zap.String("actor_id", actorID))
	return nil
}

// AddNote appends a note to a task on behalf of the actor.
func (s *TaskService) AddNote(ctx context.Context, taskID, actorID, content string) (*models.Note, error) {
	task, err := s.authorizeTaskChange(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	note, err := task.AddNote(content, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return note, nil
}

// RemoveNote deletes a note by id and reports whether it existed.
func (s *TaskService) RemoveNote(ctx context.Context, taskID, actorID, noteID string) (bool, error) {
	task, err := s.authorizeTaskChange(ctx, taskID, actorID)
	if err != nil {
		return false, err
	}

	removed := task.RemoveNote(noteID)
	if removed {
		if _, err := s.taskRepo.Save(ctx, task); err != nil {
			return false, fmt.Errorf("failed to save task: %w", err)
		}
	}
	return removed, nil
}

// AddDependency links a task to another after checking both exist.
func (s *TaskService) AddDependency(ctx context.Context, taskID, actorID, dependsOnID string) (*models.Task, error) {
	task, err := s.authorizeTaskChange(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	dependency, err := s.taskRepo.FindByID(ctx, dependsOnID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dependency: %w", err)
	}
	if dependency == nil {
		return nil, ErrDependencyNotFound
	}

	if err := task.AddDependency(dependsOnID); err != nil {
		return nil, err
	}
	if _, err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return task, nil
}

// RemoveDependency unlinks a dependency and reports whether it existed.
func (s *TaskService) RemoveDependency(ctx context.Context, taskID, actorID, dependsOnID string) (bool, error) {
	task, err := s.authorizeTaskChange(ctx, taskID, actorID)
	if err != nil {
		return false, err
	}

	removed := task.RemoveDependency(dependsOnID)
	if removed {
		if _, err := s.taskRepo.Save(ctx, task); err != nil {
			return false, fmt.Errorf("failed to save task: %w", err)
		}
	}
	return removed, nil
}

// Statistics aggregates tasks, optionally scoped to one owner.
func (s *TaskService) Statistics(ctx context.Context, ownerID string) (repository.TaskStatistics, error) {
	stats, err := s.taskRepo.Statistics(ctx, ownerID)
	if err != nil {
		return repository.TaskStatistics{}, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return stats, nil
}

// Overdue returns every overdue task.
func (s *TaskService) Overdue(ctx context.Context) ([]*models.Task, error) {
	return s.taskRepo.FindOverdue(ctx)
}

// DueWithin returns tasks due inside the next days.
func (s *TaskService) DueWithin(ctx context.Context, days int) ([]*models.Task, error) {
	return s.taskRepo.FindDueWithin(ctx, days)
}

// authorizeTaskChange loads the task and verifies the actor is its owner,
// its assignee, or an admin.
func (s *TaskService) authorizeTaskChange(ctx context.Context, taskID, actorID string) (*models.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.OwnerID == actorID || task.AssigneeID == actorID {
		return task, nil
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrTaskPermissionDenied
	}
	return task, nil
}

func (s *TaskService) ensureActiveUser(ctx context.Context, userID string, sentinel error) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return sentinel
	}
	return nil
}
