package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/internal/storage"
)

type UserServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	service *UserService
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()

	userRepo, err := repository.NewUserRepository(storage.NewMemoryStore(), nil, nil)
	suite.Require().NoError(err)
	suite.service = NewUserService(userRepo, nil)
}

func (suite *UserServiceTestSuite) register(username, email, role string) *models.User {
	user, err := suite.service.Register(suite.ctx, RegisterInput{
		Username: username,
		Email:    email,
		Role:     role,
	})
	suite.Require().NoError(err)
	return user
}

func (suite *UserServiceTestSuite) TestRegister() {
	user := suite.register("demo", "Demo@Example.com", "")

	suite.Equal("demo", user.Username)
	suite.Equal("demo@example.com", user.Email, "email normalizes to lowercase")
	suite.Equal(models.RoleUser, user.Role)
	suite.True(user.IsActive)
}

func (suite *UserServiceTestSuite) TestRegister_DuplicateUsername() {
	suite.register("demo", "demo@example.com", "")

	_, err := suite.service.Register(suite.ctx, RegisterInput{
		Username: "Demo",
		Email:    "second@example.com",
	})
	suite.ErrorIs(err, repository.ErrUsernameTaken)
}

func (suite *UserServiceTestSuite) TestRegister_InvalidInput() {
	_, err := suite.service.Register(suite.ctx, RegisterInput{
		Username: "x",
		Email:    "demo@example.com",
	})
	suite.Require().Error(err)
	suite.True(models.IsValidationError(err))
}

func (suite *UserServiceTestSuite) TestLogin() {
	user := suite.register("demo", "demo@example.com", "")

	loggedIn, err := suite.service.Login(suite.ctx, "DEMO")
	suite.Require().NoError(err)
	suite.Equal(user.ID, loggedIn.ID)
	suite.Equal(1, loggedIn.LoginCount)
	suite.NotNil(loggedIn.LastLoginAt)
}

func (suite *UserServiceTestSuite) TestLogin_UnknownUser() {
	_, err := suite.service.Login(suite.ctx, "ghost")
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *UserServiceTestSuite) TestLogin_DeactivatedUser() {
	user := suite.register("demo", "demo@example.com", "")
	suite.Require().NoError(suite.service.Deactivate(suite.ctx, user.ID, user.ID))

	_, err := suite.service.Login(suite.ctx, "demo")
	suite.ErrorIs(err, ErrUserInactive)
}

func (suite *UserServiceTestSuite) TestUpdateProfile_IgnoresRoleEscalation() {
	user := suite.register("demo", "demo@example.com", "")

	displayName := "Demo D."
	role := "admin"
	updated, err := suite.service.UpdateProfile(suite.ctx, user.ID, repository.UserUpdate{
		DisplayName: &displayName,
		Role:        &role,
	})
	suite.Require().NoError(err)
	suite.Equal("Demo D.", updated.DisplayName)
	suite.Equal(models.RoleUser, updated.Role, "self-service updates must not change roles")
}

func (suite *UserServiceTestSuite) TestSetRole() {
	admin := suite.register("admin", "admin@example.com", "admin")
	user := suite.register("demo", "demo@example.com", "")

	updated, err := suite.service.SetRole(suite.ctx, admin.ID, user.ID, "moderator")
	suite.Require().NoError(err)
	suite.Equal(models.RoleModerator, updated.Role)

	_, err = suite.service.SetRole(suite.ctx, user.ID, admin.ID, "user")
	suite.ErrorIs(err, ErrUserPermissionDenied)
}

func (suite *UserServiceTestSuite) TestDeactivate_Permissions() {
	moderator := suite.register("mod", "mod@example.com", "moderator")
	alice := suite.register("alice", "alice@example.com", "")
	bob := suite.register("bob", "bob@example.com", "")

	// A plain user cannot deactivate someone else.
	err := suite.service.Deactivate(suite.ctx, alice.ID, bob.ID)
	suite.ErrorIs(err, ErrUserPermissionDenied)

	// Self-deactivation is allowed.
	suite.NoError(suite.service.Deactivate(suite.ctx, alice.ID, alice.ID))

	// Moderators manage users.
	suite.NoError(suite.service.Deactivate(suite.ctx, moderator.ID, bob.ID))
}

func (suite *UserServiceTestSuite) TestPurge_AdminOnly() {
	admin := suite.register("admin", "admin@example.com", "admin")
	moderator := suite.register("mod", "mod@example.com", "moderator")
	user := suite.register("demo", "demo@example.com", "")

	err := suite.service.Purge(suite.ctx, moderator.ID, user.ID)
	suite.ErrorIs(err, ErrUserPermissionDenied)

	suite.NoError(suite.service.Purge(suite.ctx, admin.ID, user.ID))

	_, err = suite.service.GetUser(suite.ctx, user.ID)
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *UserServiceTestSuite) TestListUsers_AndStatistics() {
	admin := suite.register("admin", "admin@example.com", "admin")
	suite.register("alice", "alice@example.com", "")
	plain := suite.register("bob", "bob@example.com", "")

	_, err := suite.service.ListUsers(suite.ctx, plain.ID, repository.UserFilter{})
	suite.ErrorIs(err, ErrUserPermissionDenied)

	users, err := suite.service.ListUsers(suite.ctx, admin.ID, repository.UserFilter{})
	suite.Require().NoError(err)
	suite.Len(users, 3)

	stats, err := suite.service.Statistics(suite.ctx, admin.ID)
	suite.Require().NoError(err)
	suite.Equal(3, stats.Total)
	suite.Equal(3, stats.Active)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
