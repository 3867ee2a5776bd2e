package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/storage"
)

// failingStore wraps a Store and fails every Save, simulating quota errors.
type failingStore struct {
	storage.Store
}

func (s *failingStore) Save(key string, value []byte) error {
	return errors.New("quota exceeded")
}

type TaskRepositoryTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *storage.MemoryStore
	repo  *InMemoryTaskRepository
}

func (suite *TaskRepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = storage.NewMemoryStore()

	repo, err := NewTaskRepository(suite.store, nil, nil)
	suite.Require().NoError(err)
	suite.repo = repo
}

func (suite *TaskRepositoryTestSuite) createTask(title, ownerID string, opts models.TaskOptions) *models.Task {
	task, err := models.NewTask(title, "", ownerID, opts)
	suite.Require().NoError(err)

	created, err := suite.repo.Create(suite.ctx, task)
	suite.Require().NoError(err)
	return created
}

func (suite *TaskRepositoryTestSuite) TestCreateAndFindByID() {
	task := suite.createTask("Write spec", "owner-1", models.TaskOptions{Priority: "high"})

	found, err := suite.repo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(found)
	suite.Equal(task.ID, found.ID)
	suite.Equal("Write spec", found.Title)
	suite.Equal(models.TaskPriorityHigh, found.Priority)
}

func (suite *TaskRepositoryTestSuite) TestFindByID_MissingReturnsNil() {
	found, err := suite.repo.FindByID(suite.ctx, "no-such-id")
	suite.NoError(err)
	suite.Nil(found)
}

func (suite *TaskRepositoryTestSuite) TestCreate_IDCollision() {
	task := suite.createTask("first", "owner-1", models.TaskOptions{})

	dup, err := models.NewTask("second", "", "owner-1", models.TaskOptions{})
	suite.Require().NoError(err)
	dup.ID = task.ID

	_, err = suite.repo.Create(suite.ctx, dup)
	suite.ErrorIs(err, ErrIDConflict)
}

func (suite *TaskRepositoryTestSuite) TestUpdate_AppliesEveryField() {
	task := suite.createTask("before", "owner-1", models.TaskOptions{})

	title := "after"
	priority := "urgent"
	status := "in-progress"
	assignee := "user-2"
	updated, err := suite.repo.Update(suite.ctx, task.ID, TaskUpdate{
		Title:      &title,
		Priority:   &priority,
		Status:     &status,
		AssigneeID: &assignee,
		AddTags:    []string{"Sprint-1"},
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(updated)

	found, err := suite.repo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal("after", found.Title)
	suite.Equal(models.TaskPriorityUrgent, found.Priority)
	suite.Equal(models.TaskStatusInProgress, found.Status)
	suite.Equal("user-2", found.AssigneeID)
	suite.Equal([]string{"sprint-1"}, found.Tags)
}

func (suite *TaskRepositoryTestSuite) TestUpdate_AtomicOnFailure() {
	task := suite.createTask("before", "owner-1", models.TaskOptions{})

	title := "after"
	badPriority := "extreme"
	_, err := suite.repo.Update(suite.ctx, task.ID, TaskUpdate{
		Title:    &title,
		Priority: &badPriority,
	})
	suite.Require().Error(err)
	suite.True(models.IsValidationError(err))

	found, err := suite.repo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal("before", found.Title, "failed update must not partially apply")
	suite.Equal(models.TaskPriorityMedium, found.Priority)
}

func (suite *TaskRepositoryTestSuite) TestUpdate_MissingReturnsNil() {
	title := "x"
	updated, err := suite.repo.Update(suite.ctx, "no-such-id", TaskUpdate{Title: &title})
	suite.NoError(err)
	suite.Nil(updated)
}

func (suite *TaskRepositoryTestSuite) TestDelete() {
	task := suite.createTask("doomed", "owner-1", models.TaskOptions{})

	existed, err := suite.repo.Delete(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.True(existed)

	found, err := suite.repo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Nil(found)

	existed, err = suite.repo.Delete(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.False(existed)
}

func (suite *TaskRepositoryTestSuite) TestFindAll_Filters() {
	suite.createTask("buy milk", "owner-1", models.TaskOptions{Category: "personal", Tags: []string{"errand"}})
	suite.createTask("file taxes", "owner-1", models.TaskOptions{Category: "finance", Priority: "urgent"})
	suite.createTask("standup notes", "owner-2", models.TaskOptions{Category: "work"})

	byOwner, err := suite.repo.FindAll(suite.ctx, TaskFilter{OwnerID: "owner-1"})
	suite.Require().NoError(err)
	suite.Len(byOwner, 2)

	byCategory, err := suite.repo.FindByCategory(suite.ctx, "finance")
	suite.Require().NoError(err)
	suite.Require().Len(byCategory, 1)
	suite.Equal("file taxes", byCategory[0].Title)

	byPriority, err := suite.repo.FindByPriority(suite.ctx, "urgent")
	suite.Require().NoError(err)
	suite.Len(byPriority, 1)

	byTag, err := suite.repo.FindByTag(suite.ctx, "errand")
	suite.Require().NoError(err)
	suite.Len(byTag, 1)

	searched, err := suite.repo.Search(suite.ctx, "milk")
	suite.Require().NoError(err)
	suite.Require().Len(searched, 1)
	suite.Equal("buy milk", searched[0].Title)
}

func (suite *TaskRepositoryTestSuite) TestFindAll_CompletedFilter() {
	task := suite.createTask("done soon", "owner-1", models.TaskOptions{})
	suite.createTask("still open", "owner-1", models.TaskOptions{})

	status := "completed"
	_, err := suite.repo.Update(suite.ctx, task.ID, TaskUpdate{Status: &status})
	suite.Require().NoError(err)

	completed := true
	done, err := suite.repo.FindAll(suite.ctx, TaskFilter{Completed: &completed})
	suite.Require().NoError(err)
	suite.Require().Len(done, 1)
	suite.Equal(task.ID, done[0].ID)
}

func (suite *TaskRepositoryTestSuite) TestFindAll_SortAndPaginate() {
	suite.createTask("a", "owner-1", models.TaskOptions{Priority: "low"})
	suite.createTask("b", "owner-1", models.TaskOptions{Priority: "urgent"})
	suite.createTask("c", "owner-1", models.TaskOptions{Priority: "medium"})

	sorted, err := suite.repo.FindAll(suite.ctx, TaskFilter{SortBy: "priority", SortDesc: true})
	suite.Require().NoError(err)
	suite.Require().Len(sorted, 3)
	suite.Equal("b", sorted[0].Title)
	suite.Equal("c", sorted[1].Title)
	suite.Equal("a", sorted[2].Title)

	page, err := suite.repo.FindAll(suite.ctx, TaskFilter{SortBy: "priority", SortDesc: true, Offset: 1, Limit: 1})
	suite.Require().NoError(err)
	suite.Require().Len(page, 1)
	suite.Equal("c", page[0].Title)
}

func (suite *TaskRepositoryTestSuite) TestFindAll_DueDateSortPutsUndatedLast() {
	soon := time.Now().AddDate(0, 0, 1)
	later := time.Now().AddDate(0, 0, 10)

	suite.createTask("undated", "owner-1", models.TaskOptions{})
	suite.createTask("later", "owner-1", models.TaskOptions{DueDate: &later})
	suite.createTask("soon", "owner-1", models.TaskOptions{DueDate: &soon})

	sorted, err := suite.repo.FindAll(suite.ctx, TaskFilter{SortBy: "due_date"})
	suite.Require().NoError(err)
	suite.Require().Len(sorted, 3)
	suite.Equal("soon", sorted[0].Title)
	suite.Equal("later", sorted[1].Title)
	suite.Equal("undated", sorted[2].Title)
}

func (suite *TaskRepositoryTestSuite) TestFindOverdueAndDueWithin() {
	yesterday := time.Now().AddDate(0, 0, -1)
	inThreeDays := time.Now().AddDate(0, 0, 3)
	inThirtyDays := time.Now().AddDate(0, 0, 30)

	suite.createTask("overdue", "owner-1", models.TaskOptions{DueDate: &yesterday})
	suite.createTask("soon", "owner-1", models.TaskOptions{DueDate: &inThreeDays})
	suite.createTask("far", "owner-1", models.TaskOptions{DueDate: &inThirtyDays})

	overdue, err := suite.repo.FindOverdue(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(overdue, 1)
	suite.Equal("overdue", overdue[0].Title)

	dueSoon, err := suite.repo.FindDueWithin(suite.ctx, 7)
	suite.Require().NoError(err)
	suite.Require().Len(dueSoon, 1)
	suite.Equal("soon", dueSoon[0].Title)
}

func (suite *TaskRepositoryTestSuite) TestStatistics() {
	yesterday := time.Now().AddDate(0, 0, -1)

	suite.createTask("one", "demo", models.TaskOptions{Priority: "high", DueDate: &yesterday})
	done := suite.createTask("two", "demo", models.TaskOptions{Category: "work"})
	suite.createTask("three", "someone-else", models.TaskOptions{})

	status := "completed"
	_, err := suite.repo.Update(suite.ctx, done.ID, TaskUpdate{Status: &status})
	suite.Require().NoError(err)

	stats, err := suite.repo.Statistics(suite.ctx, "demo")
	suite.Require().NoError(err)

	suite.Equal(2, stats.Total)
	suite.Equal(1, stats.Completed)
	suite.Equal(1, stats.Incomplete)
	suite.Equal(1, stats.Overdue)
	suite.Equal(stats.Total, stats.Completed+stats.Incomplete)

	statusSum := 0
	for _, n := range stats.ByStatus {
		statusSum += n
	}
	suite.Equal(stats.Total, statusSum)

	prioritySum := 0
	for _, n := range stats.ByPriority {
		prioritySum += n
	}
	suite.Equal(stats.Total, prioritySum)

	all, err := suite.repo.Statistics(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Equal(3, all.Total)
}

func (suite *TaskRepositoryTestSuite) TestSnapshotReload() {
	task := suite.createTask("persisted", "owner-1", models.TaskOptions{Tags: []string{"keep"}})
	_, err := task.AddNote("note content", "owner-1")
	suite.Require().NoError(err)
	_, err = suite.repo.Save(suite.ctx, task)
	suite.Require().NoError(err)

	reloaded, err := NewTaskRepository(suite.store, nil, nil)
	suite.Require().NoError(err)

	found, err := reloaded.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(found)
	suite.Equal("persisted", found.Title)
	suite.Equal([]string{"keep"}, found.Tags)
	suite.Require().Len(found.Notes, 1)
	suite.Equal("note content", found.Notes[0].Content)
}

func (suite *TaskRepositoryTestSuite) TestPersistenceFailureDegradesGracefully() {
	repo, err := NewTaskRepository(&failingStore{Store: storage.NewMemoryStore()}, nil, nil)
	suite.Require().NoError(err)

	task, err := models.NewTask("unsaved", "", "owner-1", models.TaskOptions{})
	suite.Require().NoError(err)

	created, err := repo.Create(suite.ctx, task)
	suite.Require().NoError(err, "persistence failure must not abort the mutation")

	found, err := repo.FindByID(suite.ctx, created.ID)
	suite.Require().NoError(err)
	suite.NotNil(found, "reads keep working from memory")
}

func (suite *TaskRepositoryTestSuite) TestSave_UnknownTaskReturnsNil() {
	task, err := models.NewTask("stray", "", "owner-1", models.TaskOptions{})
	suite.Require().NoError(err)

	saved, err := suite.repo.Save(suite.ctx, task)
	suite.NoError(err)
	suite.Nil(saved)
}

func TestTaskRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(TaskRepositoryTestSuite))
}

func TestTaskRepository_CacheReadThrough(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	ctx := context.Background()
	c, err := cache.NewRedisCache(ctx, server.Addr(), "", 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	repo, err := NewTaskRepository(storage.NewMemoryStore(), c, nil)
	require.NoError(t, err)

	task, err := models.NewTask("cached", "", "owner-1", models.TaskOptions{})
	require.NoError(t, err)
	_, err = repo.Create(ctx, task)
	require.NoError(t, err)

	assert.True(t, server.Exists("task:"+task.ID), "create primes the cache")

	found, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "cached", found.Title)

	title := "refreshed"
	_, err = repo.Update(ctx, task.ID, TaskUpdate{Title: &title})
	require.NoError(t, err)

	found, err = repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", found.Title, "update refreshes the cached copy")

	_, err = repo.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, server.Exists("task:"+task.ID), "delete evicts the cached copy")
}

func TestTaskRepository_OverdueScenario(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	users, err := NewUserRepository(store, nil, nil)
	require.NoError(t, err)
	tasks, err := NewTaskRepository(store, nil, nil)
	require.NoError(t, err)

	demo, err := models.NewUser("demo", "demo@example.com", models.UserOptions{})
	require.NoError(t, err)
	_, err = users.Create(ctx, demo)
	require.NoError(t, err)

	yesterday := time.Now().AddDate(0, 0, -1)
	task, err := models.NewTask("Write spec", "", demo.ID, models.TaskOptions{
		Priority: "high",
		DueDate:  &yesterday,
	})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, task)
	require.NoError(t, err)

	assert.True(t, task.IsOverdue())

	stats, err := tasks.Statistics(ctx, demo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Overdue)
}
