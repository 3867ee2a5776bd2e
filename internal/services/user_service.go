package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/internal/repository"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("user account is deactivated")
	ErrUserPermissionDenied = errors.New("user does not have permission to manage users")
)

// UserService handles user account business logic.
type UserService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterInput represents input for registering a user.
type RegisterInput struct {
	Username    string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	Bio         string
	Role        string
}

// Register validates the input and creates the account. Username and email
// conflicts surface as repository.ErrUsernameTaken / ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := models.NewUser(input.Username, input.Email, models.UserOptions{
		DisplayName: input.DisplayName,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Bio:         input.Bio,
		Role:        input.Role,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) || errors.Is(err, repository.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", created.ID),
		zap.String("username", created.Username))

	return created, nil
}

// Login looks up the account by username and records the login. There are
// no credentials in this system, so possession of the username is enough.
func (s *UserService) Login(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	user.RecordLogin()
	if _, err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByUsername returns a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns accounts narrowed by the filter. Listing is restricted
// to actors who can manage users.
func (s *UserService) ListUsers(ctx context.Context, actorID string, filter repository.UserFilter) ([]*models.User, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	users, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateProfile applies a tagged update to the actor's own account. Role
// changes require a manager and are ignored on self-service updates.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update repository.UserUpdate) (*models.User, error) {
	update.Role = nil
	update.Verified = nil

	updated, err := s.userRepo.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated, nil
}

// SetRole changes the target's role. Only admins may do this.
func (s *UserService) SetRole(ctx context.Context, actorID, targetID, role string) (*models.User, error) {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrUserPermissionDenied
	}

	updated, err := s.userRepo.Update(ctx, targetID, repository.UserUpdate{Role: &role})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	s.logger.Info("user role changed",
		zap.String("user_id", targetID),
		zap.String("role", role),
		zap.String("actor_id", actorID))

	return updated, nil
}

// Deactivate soft-deletes the target account. Users may deactivate
// themselves; anyone else needs user-management rights.
func (s *UserService) Deactivate(ctx context.Context, actorID, targetID string) error {
	if actorID != targetID {
		if err := s.requireManager(ctx, actorID); err != nil {
			return err
		}
	}

	existed, err := s.userRepo.Deactivate(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if !existed {
		return ErrUserNotFound
	}

	s.logger.Info("user deactivated", zap.String("user_id", targetID), zap.String("actor_id", actorID))
	return nil
}

// Purge hard-removes the target account. Admin only.
func (s *UserService) Purge(ctx context.Context, actorID, targetID string) error {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrUserPermissionDenied
	}

	existed, err := s.userRepo.Purge(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to purge user: %w", err)
	}
	if !existed {
		return ErrUserNotFound
	}

	s.logger.Info("user purged", zap.String("user_id", targetID), zap.String("actor_id", actorID))
	return nil
}

// Statistics aggregates account counts. Manager only.
func (s *UserService) Statistics(ctx context.Context, actorID string) (repository.UserStatistics, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return repository.UserStatistics{}, err
	}

	stats, err := s.userRepo.Statistics(ctx)
	if err != nil {
		return repository.UserStatistics{}, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return stats, nil
}

func (s *UserService) requireManager(ctx context.Context, actorID string) error {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.CanManageUsers() {
		return ErrUserPermissionDenied
	}
	return nil
}
