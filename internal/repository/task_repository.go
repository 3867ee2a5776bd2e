package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/cache"
	"taskboard/internal/constants"
	"taskboard/internal/models"
	"taskboard/internal/storage"
)

const taskCachePrefix = "task:"

var taskPriorityRank = map[models.TaskPriority]int{
	models.TaskPriorityLow:    0,
	models.TaskPriorityMedium: 1,
	models.TaskPriorityHigh:   2,
	models.TaskPriorityUrgent: 3,
}

// taskSnapshot is the versioned payload persisted to the store. The
// version is recorded for future migrations but not acted on yet.
type taskSnapshot struct {
	Version string         `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Tasks   []*models.Task `json:"tasks"`
}

// InMemoryTaskRepository keeps the authoritative task collection in a map
// and mirrors every mutation to the persistence adapter as a full-collection
// snapshot. Insertion order is preserved for stable default iteration.
type InMemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  map[string]*models.Task
	order  []string
	store  storage.Store
	cache  cache.Cache
	logger *zap.Logger
}

// NewTaskRepository builds a repository and rehydrates the collection from
// the store. A missing snapshot key yields an empty collection. The cache
// is optional; pass nil to disable read-through caching.
func NewTaskRepository(store storage.Store, c cache.Cache, logger *zap.Logger) (*InMemoryTaskRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &InMemoryTaskRepository{
		tasks:  make(map[string]*models.Task),
		store:  store,
		cache:  c,
		logger: logger,
	}

	payload, ok, err := store.Load(constants.StorageKeyTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to load task snapshot: %w", err)
	}
	if ok {
		var snapshot taskSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode task snapshot: %w", err)
		}
		for _, task := range snapshot.Tasks {
			r.tasks[task.ID] = task
			r.order = append(r.order, task.ID)
		}
		logger.Info("task collection loaded",
			zap.Int("count", len(r.order)),
			zap.String("snapshot_version", snapshot.Version))
	}

	return r, nil
}

// Create inserts a task and persists the snapshot.
func (r *InMemoryTaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, exists := r.tasks[task.ID]; exists {
		return nil, ErrIDConflict
	}

	r.tasks[task.ID] = task
	r.order = append(r.order, task.ID)
	r.persistLocked(ctx)
	r.cacheSet(ctx, task)

	return task, nil
}

// FindByID returns the task, or nil when the id is unknown. The cache is
// consulted first when configured.
func (r *InMemoryTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, taskCachePrefix+id)
		if err != nil {
			r.logger.Warn("task cache read failed", zap.String("id", id), zap.Error(err))
		} else if cached != "" {
			var task models.Task
			if err := json.Unmarshal([]byte(cached), &task); err == nil {
				return &task, nil
			}
		}
	}

	r.mu.RLock()
	task, ok := r.tasks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	r.cacheSet(ctx, task)
	return task, nil
}

// FindAll returns tasks narrowed, sorted and paginated by the filter.
func (r *InMemoryTaskRepository) FindAll(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	r.mu.RLock()
	matched := make([]*models.Task, 0, len(r.order))
	for _, id := range r.order {
		task := r.tasks[id]
		if taskMatches(task, filter) {
			matched = append(matched, task)
		}
	}
	r.mu.RUnlock()

	sortTasks(matched, filter.SortBy, filter.SortDesc)

	return paginate(matched, filter.Offset, filter.Limit), nil
}

// Update validates the whole tagged field set against a clone, then swaps
// the clone in and persists. A failing field leaves the stored task as it
// was.
func (r *InMemoryTaskRepository) Update(ctx context.Context, id string, update TaskUpdate) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}

	staged := current.Clone()
	if err := applyTaskUpdate(staged, update); err != nil {
		return nil, err
	}

	r.tasks[id] = staged
	r.persistLocked(ctx)
	r.cacheSet(ctx, staged)

	return staged, nil
}

// Save re-persists an entity mutated through its own methods. Returns nil
// when the id is not part of the index.
func (r *InMemoryTaskRepository) Save(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return nil, nil
	}

	r.tasks[task.ID] = task
	r.persistLocked(ctx)
	r.cacheSet(ctx, task)

	return task, nil
}

// Delete hard-removes a task and reports whether it existed.
func (r *InMemoryTaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}

	delete(r.tasks, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.persistLocked(ctx)
	r.cacheDelete(ctx, id)

	return true, nil
}

// FindByOwner returns the tasks owned by a user.
func (r *InMemoryTaskRepository) FindByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{OwnerID: ownerID})
}

// FindByAssignee returns the tasks assigned to a user.
func (r *InMemoryTaskRepository) FindByAssignee(ctx context.Context, assigneeID string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{AssigneeID: assigneeID})
}

// FindByCategory returns the tasks in a category.
func (r *InMemoryTaskRepository) FindByCategory(ctx context.Context, category string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{Category: category})
}

// FindByPriority returns the tasks at a priority.
func (r *InMemoryTaskRepository) FindByPriority(ctx context.Context, priority string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{Priority: priority})
}

// FindByStatus returns the tasks in a status.
func (r *InMemoryTaskRepository) FindByStatus(ctx context.Context, status string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{Status: status})
}

// FindByTag returns the tasks carrying a tag.
func (r *InMemoryTaskRepository) FindByTag(ctx context.Context, tag string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{Tag: tag})
}

// FindOverdue returns incomplete tasks whose due date has passed.
func (r *InMemoryTaskRepository) FindOverdue(ctx context.Context) ([]*models.Task, error) {
	all, err := r.FindAll(ctx, TaskFilter{})
	if err != nil {
		return nil, err
	}
	overdue := make([]*models.Task, 0)
	for _, task := range all {
		if task.IsOverdue() {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

// FindDueWithin returns incomplete tasks due between today and today+days.
func (r *InMemoryTaskRepository) FindDueWithin(ctx context.Context, days int) ([]*models.Task, error) {
	all, err := r.FindAll(ctx, TaskFilter{})
	if err != nil {
		return nil, err
	}
	due := make([]*models.Task, 0)
	for _, task := range all {
		if taskDueWithin(task, days) {
			due = append(due, task)
		}
	}
	return due, nil
}

// Search returns tasks matching a free-text query over title, description
// and tags.
func (r *InMemoryTaskRepository) Search(ctx context.Context, query string) ([]*models.Task, error) {
	return r.FindAll(ctx, TaskFilter{Search: query})
}

// Statistics aggregates the live index, optionally scoped to one owner.
func (r *InMemoryTaskRepository) Statistics(ctx context.Context, ownerID string) (TaskStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := TaskStatistics{
		ByStatus:   make(map[models.TaskStatus]int, len(models.TaskStatuses)),
		ByPriority: make(map[models.TaskPriority]int, len(taskPriorityRank)),
		ByCategory: make(map[models.TaskCategory]int, len(models.TaskCategories)),
	}
	for _, s := range models.TaskStatuses {
		stats.ByStatus[s] = 0
	}
	for p := range taskPriorityRank {
		stats.ByPriority[p] = 0
	}
	for _, c := range models.TaskCategories {
		stats.ByCategory[c] = 0
	}

	for _, id := range r.order {
		task := r.tasks[id]
		if ownerID != "" && task.OwnerID != ownerID {
			continue
		}
		stats.Total++
		if task.Completed {
			stats.Completed++
		} else {
			stats.Incomplete++
		}
		if task.IsOverdue() {
			stats.Overdue++
		}
		if taskDueWithin(task, constants.DueSoonDays) {
			stats.DueSoon++
		}
		stats.ByStatus[task.Status]++
		stats.ByPriority[task.Priority]++
		stats.ByCategory[task.Category]++
	}

	return stats, nil
}

// persistLocked saves the full collection snapshot. Persistence failures
// are logged and degrade gracefully: the in-memory mutation stands, the
// read cache is cleared, and the caller sees no error.
func (r *InMemoryTaskRepository) persistLocked(ctx context.Context) {
	snapshot := taskSnapshot{
		Version: constants.SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Tasks:   make([]*models.Task, 0, len(r.order)),
	}
	for _, id := range r.order {
		snapshot.Tasks = append(snapshot.Tasks, r.tasks[id])
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		r.logger.Error("failed to encode task snapshot", zap.Error(err))
		return
	}
	if err := r.store.Save(constants.StorageKeyTasks, payload); err != nil {
		r.logger.Warn("task snapshot not persisted, keeping in-memory state",
			zap.Int("count", len(snapshot.Tasks)),
			zap.Error(err))
		if r.cache != nil {
			if cacheErr := r.cache.DeletePrefix(ctx, taskCachePrefix); cacheErr != nil {
				r.logger.Warn("failed to clear task cache", zap.Error(cacheErr))
			}
		}
	}
}

func (r *InMemoryTaskRepository) cacheSet(ctx context.Context, task *models.Task) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, taskCachePrefix+task.ID, string(payload), 0); err != nil {
		r.logger.Warn("task cache write failed", zap.String("id", task.ID), zap.Error(err))
	}
}

func (r *InMemoryTaskRepository) cacheDelete(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, taskCachePrefix+id); err != nil {
		r.logger.Warn("task cache delete failed", zap.String("id", id), zap.Error(err))
	}
}

// applyTaskUpdate routes each provided field through the matching entity
// mutator, stopping at the first validation failure.
func applyTaskUpdate(task *models.Task, update TaskUpdate) error {
	if update.Title != nil {
		if err := task.UpdateTitle(*update.Title); err != nil {
			return err
		}
	}
	if update.Description != nil {
		if err := task.UpdateDescription(*update.Description); err != nil {
			return err
		}
	}
	if update.Priority != nil {
		if err := task.UpdatePriority(*update.Priority); err != nil {
			return err
		}
	}
	if update.Category != nil {
		if err := task.SetCategory(*update.Category); err != nil {
			return err
		}
	}
	if update.Status != nil {
		if err := task.SetStatus(*update.Status); err != nil {
			return err
		}
	}
	if update.ClearDueDate {
		task.ClearDueDate()
	} else if update.DueDate != nil {
		if err := task.SetDueDate(*update.DueDate); err != nil {
			return err
		}
	}
	if update.AssigneeID != nil {
		if err := task.AssignTo(*update.AssigneeID); err != nil {
			return err
		}
	}
	if update.EstimatedHours != nil {
		if err := task.SetEstimatedHours(*update.EstimatedHours); err != nil {
			return err
		}
	}
	if update.AddTimeSpent != nil {
		if err := task.AddTimeSpent(*update.AddTimeSpent); err != nil {
			return err
		}
	}
	for _, tag := range update.AddTags {
		if err := task.AddTag(tag); err != nil {
			return err
		}
	}
	for _, tag := range update.RemoveTags {
		task.RemoveTag(tag)
	}
	return nil
}

func taskMatches(task *models.Task, filter TaskFilter) bool {
	if filter.OwnerID != "" && task.OwnerID != filter.OwnerID {
		return false
	}
	if filter.AssigneeID != "" && task.AssigneeID != filter.AssigneeID {
		return false
	}
	if filter.Category != "" && task.Category != models.TaskCategory(strings.ToLower(filter.Category)) {
		return false
	}
	if filter.Priority != "" && task.Priority != models.TaskPriority(strings.ToLower(filter.Priority)) {
		return false
	}
	if filter.Status != "" && task.Status != models.TaskStatus(strings.ToLower(filter.Status)) {
		return false
	}
	if filter.Completed != nil && task.Completed != *filter.Completed {
		return false
	}
	if filter.Tag != "" && !task.HasTag(filter.Tag) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(task.Title), needle) &&
			!strings.Contains(strings.ToLower(task.Description), needle) &&
			!tagsContain(task.Tags, needle) {
			return false
		}
	}
	return true
}

func tagsContain(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}

// sortTasks orders in place. Tasks without a due date sort after dated
// ones regardless of direction.
func sortTasks(tasks []*models.Task, sortBy string, desc bool) {
	if sortBy == "" {
		return
	}

	less := func(a, b *models.Task) bool { return false }
	switch sortBy {
	case "created_at":
		less = func(a, b *models.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updated_at":
		less = func(a, b *models.Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "title":
		less = func(a, b *models.Task) bool { return a.Title < b.Title }
	case "status":
		less = func(a, b *models.Task) bool { return a.Status < b.Status }
	case "priority":
		less = func(a, b *models.Task) bool { return taskPriorityRank[a.Priority] < taskPriorityRank[b.Priority] }
	case "due_date":
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i], tasks[j]
			if a.DueDate == nil {
				return false
			}
			if b.DueDate == nil {
				return true
			}
			if desc {
				return b.DueDate.Before(*a.DueDate)
			}
			return a.DueDate.Before(*b.DueDate)
		})
		return
	default:
		return
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func paginate(tasks []*models.Task, offset, limit int) []*models.Task {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tasks) {
		return []*models.Task{}
	}
	end := len(tasks)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return tasks[offset:end]
}

func taskDueWithin(task *models.Task, days int) bool {
	if task.DueDate == nil || task.Completed {
		return false
	}
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, days+1)
	due := task.DueDate.In(now.Location())
	return !due.Before(start) && due.Before(end)
}
