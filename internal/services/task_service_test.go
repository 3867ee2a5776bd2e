package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/internal/storage"
)

type TaskServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	service *TaskService
	users   *UserService

	owner *models.User
	admin *models.User
	other *models.User
}

func (suite *TaskServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()

	taskRepo, err := repository.NewTaskRepository(storage.NewMemoryStore(), nil, nil)
	suite.Require().NoError(err)
	userRepo, err := repository.NewUserRepository(storage.NewMemoryStore(), nil, nil)
	suite.Require().NoError(err)

	suite.service = NewTaskService(taskRepo, userRepo, nil)
	suite.users = NewUserService(userRepo, nil)

	suite.owner = suite.register("owner", "owner@example.com", "")
	suite.admin = suite.register("admin", "admin@example.com", "admin")
	suite.other = suite.register("other", "other@example.com", "")
}

func (suite *TaskServiceTestSuite) register(username, email, role string) *models.User {
	user, err := suite.users.Register(suite.ctx, RegisterInput{
		Username: username,
		Email:    email,
		Role:     role,
	})
	suite.Require().NoError(err)
	return user
}

func (suite *TaskServiceTestSuite) createTask(input CreateTaskInput) *models.Task {
	if input.OwnerID == "" {
		input.OwnerID = suite.owner.ID
	}
	task, err := suite.service.CreateTask(suite.ctx, input)
	suite.Require().NoError(err)
	return task
}

func (suite *TaskServiceTestSuite) TestCreateTask() {
	task := suite.createTask(CreateTaskInput{Title: "Write report", Priority: "high"})

	suite.Equal("Write report", task.Title)
	suite.Equal(models.TaskPriorityHigh, task.Priority)
	suite.Equal(suite.owner.ID, task.OwnerID)
	suite.Equal(suite.owner.ID, task.AssigneeID)
}

func (suite *TaskServiceTestSuite) TestCreateTask_UnknownOwner() {
	_, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:   "Orphan",
		OwnerID: "no-such-user",
	})
	suite.ErrorIs(err, ErrTaskOwnerInvalid)
}

func (suite *TaskServiceTestSuite) TestCreateTask_DeactivatedOwner() {
	suite.Require().NoError(suite.users.Deactivate(suite.ctx, suite.other.ID, suite.other.ID))

	_, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:   "Stale",
		OwnerID: suite.other.ID,
	})
	suite.ErrorIs(err, ErrTaskOwnerInvalid)
}

func (suite *TaskServiceTestSuite) TestCreateTask_PastDueDateRejected() {
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	_, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:   "Late already",
		OwnerID: suite.owner.ID,
		DueDate: &yesterday,
	})
	suite.Require().Error(err)
	suite.True(models.IsValidationError(err))
}

func (suite *TaskServiceTestSuite) TestCreateTask_UnknownDependency() {
	_, err := suite.service.CreateTask(suite.ctx, CreateTaskInput{
		Title:        "Blocked",
		OwnerID:      suite.owner.ID,
		Dependencies: []string{"no-such-task"},
	})
	suite.ErrorIs(err, ErrDependencyNotFound)
}

func (suite *TaskServiceTestSuite) TestGetTask_Missing() {
	_, err := suite.service.GetTask(suite.ctx, "no-such-task")
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ByOwner() {
	task := suite.createTask(CreateTaskInput{Title: "Draft"})

	status := "in-progress"
	updated, err := suite.service.UpdateTask(suite.ctx, task.ID, suite.owner.ID, repository.TaskUpdate{
		Status: &status,
	})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_StrangerDenied() {
	task := suite.createTask(CreateTaskInput{Title: "Private"})

	title := "Hijacked"
	_, err := suite.service.UpdateTask(suite.ctx, task.ID, suite.other.ID, repository.TaskUpdate{
		Title: &title,
	})
	suite.ErrorIs(err, ErrTaskPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_AdminAllowed() {
	task := suite.createTask(CreateTaskInput{Title: "Anyone's"})

	title := "Renamed by admin"
	updated, err := suite.service.UpdateTask(suite.ctx, task.ID, suite.admin.ID, repository.TaskUpdate{
		Title: &title,
	})
	suite.Require().NoError(err)
	suite.Equal("Renamed by admin", updated.Title)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_AssigneeAllowed() {
	task := suite.createTask(CreateTaskInput{Title: "Shared", AssigneeID: suite.other.ID})

	status := "completed"
	updated, err := suite.service.UpdateTask(suite.ctx, task.ID, suite.other.ID, repository.TaskUpdate{
		Status: &status,
	})
	suite.Require().NoError(err)
	suite.True(updated.Completed)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ReassignToInactiveUser() {
	task := suite.createTask(CreateTaskInput{Title: "Handover"})
	suite.Require().NoError(suite.users.Deactivate(suite.ctx, suite.other.ID, suite.other.ID))

	_, err := suite.service.UpdateTask(suite.ctx, task.ID, suite.owner.ID, repository.TaskUpdate{
		AssigneeID: &suite.other.ID,
	})
	suite.ErrorIs(err, ErrTaskAssigneeInvalid)
}

func (suite *TaskServiceTestSuite) TestDeleteTask_OnlyOwnerOrAdmin() {
	task := suite.createTask(CreateTaskInput{Title: "Disposable", AssigneeID: suite.other.ID})

	// The assignee may edit but not delete.
	err := suite.service.DeleteTask(suite.ctx, task.ID, suite.other.ID)
	suite.ErrorIs(err, ErrTaskPermissionDenied)

	err = suite.service.DeleteTask(suite.ctx, task.ID, suite.owner.ID)
	suite.Require().NoError(err)

	_, err = suite.service.GetTask(suite.ctx, task.ID)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestNotes() {
	task := suite.createTask(CreateTaskInput{Title: "Annotated"})

	note, err := suite.service.AddNote(suite.ctx, task.ID, suite.owner.ID, "first pass done")
	suite.Require().NoError(err)
	suite.Equal(suite.owner.ID, note.Author)

	removed, err := suite.service.RemoveNote(suite.ctx, task.ID, suite.owner.ID, note.ID)
	suite.Require().NoError(err)
	suite.True(removed)

	removed, err = suite.service.RemoveNote(suite.ctx, task.ID, suite.owner.ID, note.ID)
	suite.Require().NoError(err)
	suite.False(removed)
}

func (suite *TaskServiceTestSuite) TestDependencies() {
	first := suite.createTask(CreateTaskInput{Title: "Foundation"})
	second := suite.createTask(CreateTaskInput{Title: "Walls"})

	updated, err := suite.service.AddDependency(suite.ctx, second.ID, suite.owner.ID, first.ID)
	suite.Require().NoError(err)
	suite.Contains(updated.Dependencies, first.ID)

	_, err = suite.service.AddDependency(suite.ctx, second.ID, suite.owner.ID, "no-such-task")
	suite.ErrorIs(err, ErrDependencyNotFound)

	removed, err := suite.service.RemoveDependency(suite.ctx, second.ID, suite.owner.ID, first.ID)
	suite.Require().NoError(err)
	suite.True(removed)
}

func (suite *TaskServiceTestSuite) TestStatistics() {
	suite.createTask(CreateTaskInput{Title: "One"})
	suite.createTask(CreateTaskInput{Title: "Two", Status: "completed"})
	suite.createTask(CreateTaskInput{Title: "Theirs", OwnerID: suite.other.ID})

	all, err := suite.service.Statistics(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Equal(3, all.Total)
	suite.Equal(1, all.Completed)

	mine, err := suite.service.Statistics(suite.ctx, suite.owner.ID)
	suite.Require().NoError(err)
	suite.Equal(2, mine.Total)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
