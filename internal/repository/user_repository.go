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

const userCachePrefix = "user:"

// userSnapshot is the versioned payload persisted to the store.
type userSnapshot struct {
	Version string         `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Users   []*models.User `json:"users"`
}

// InMemoryUserRepository keeps the authoritative user collection in a map
// plus username/email uniqueness indexes, mirroring every mutation to the
// persistence adapter as a full-collection snapshot.
type InMemoryUserRepository struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	byUsername map[string]string
	byEmail    map[string]string
	order      []string
	store      storage.Store
	cache      cache.Cache
	logger     *zap.Logger
}

// NewUserRepository builds a repository and rehydrates the collection from
// the store. A missing snapshot key yields an empty collection.
func NewUserRepository(store storage.Store, c cache.Cache, logger *zap.Logger) (*InMemoryUserRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &InMemoryUserRepository{
		users:      make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		store:      store,
		cache:      c,
		logger:     logger,
	}

	payload, ok, err := store.Load(constants.StorageKeyUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to load user snapshot: %w", err)
	}
	if ok {
		var snapshot userSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode user snapshot: %w", err)
		}
		for _, user := range snapshot.Users {
			r.indexLocked(user)
		}
		logger.Info("user collection loaded",
			zap.Int("count", len(r.order)),
			zap.String("snapshot_version", snapshot.Version))
	}

	return r, nil
}

// Create inserts a user after checking uniqueness and persists the snapshot.
func (r *InMemoryUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := r.users[user.ID]; exists {
		return nil, ErrIDConflict
	}
	if _, taken := r.byUsername[strings.ToLower(user.Username)]; taken {
		return nil, ErrUsernameTaken
	}
	if _, taken := r.byEmail[strings.ToLower(user.Email)]; taken {
		return nil, ErrEmailTaken
	}

	r.indexLocked(user)
	r.persistLocked(ctx)
	r.cacheSet(ctx, user)

	return user, nil
}

// FindByID returns the user, or nil when the id is unknown.
func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, userCachePrefix+id)
		if err != nil {
			r.logger.Warn("user cache read failed", zap.String("id", id), zap.Error(err))
		} else if cached != "" {
			var user models.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return &user, nil
			}
		}
	}

	r.mu.RLock()
	user, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	r.cacheSet(ctx, user)
	return user, nil
}

// FindByUsername looks a user up by normalized username.
func (r *InMemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, nil
	}
	return r.users[id], nil
}

// FindByEmail looks a user up by normalized email.
func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	return r.users[id], nil
}

// FindAll returns users narrowed, sorted and paginated by the filter.
func (r *InMemoryUserRepository) FindAll(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	r.mu.RLock()
	matched := make([]*models.User, 0, len(r.order))
	for _, id := range r.order {
		user := r.users[id]
		if userMatches(user, filter) {
			matched = append(matched, user)
		}
	}
	r.mu.RUnlock()

	sortUsers(matched, filter.SortBy, filter.SortDesc)

	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(matched) {
		return []*models.User{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

// Update validates the whole tagged field set against a clone, re-checks
// uniqueness for username/email changes, then swaps the clone in.
func (r *InMemoryUserRepository) Update(ctx context.Context, id string, update UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	staged := current.Clone()
	if err := applyUserUpdate(staged, update); err != nil {
		return nil, err
	}

	if staged.Username != current.Username {
		if owner, taken := r.byUsername[staged.Username]; taken && owner != id {
			return nil, ErrUsernameTaken
		}
	}
	if staged.Email != current.Email {
		if owner, taken := r.byEmail[staged.Email]; taken && owner != id {
			return nil, ErrEmailTaken
		}
	}

	delete(r.byUsername, strings.ToLower(current.Username))
	delete(r.byEmail, strings.ToLower(current.Email))
	r.users[id] = staged
	r.byUsername[staged.Username] = id
	r.byEmail[staged.Email] = id

	r.persistLocked(ctx)
	r.cacheSet(ctx, staged)

	return staged, nil
}

// Save re-persists an entity mutated through its own methods. Returns nil
// when the id is not part of the index.
func (r *InMemoryUserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return nil, nil
	}

	delete(r.byUsername, strings.ToLower(current.Username))
	delete(r.byEmail, strings.ToLower(current.Email))
	r.users[user.ID] = user
	r.byUsername[strings.ToLower(user.Username)] = user.ID
	r.byEmail[strings.ToLower(user.Email)] = user.ID

	r.persistLocked(ctx)
	r.cacheSet(ctx, user)

	return user, nil
}

// Deactivate soft-deletes a user and reports whether it existed.
func (r *InMemoryUserRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, nil
	}

	user.Deactivate()
	r.persistLocked(ctx)
	r.cacheSet(ctx, user)

	return true, nil
}

// Purge permanently removes a user and reports whether it existed.
func (r *InMemoryUserRepository) Purge(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, nil
	}

	delete(r.users, id)
	delete(r.byUsername, strings.ToLower(user.Username))
	delete(r.byEmail, strings.ToLower(user.Email))
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

// Statistics aggregates the live index.
func (r *InMemoryUserRepository) Statistics(ctx context.Context) (UserStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := UserStatistics{
		ByRole: make(map[models.UserRole]int, len(models.UserRoles)),
	}
	for _, role := range models.UserRoles {
		stats.ByRole[role] = 0
	}

	for _, id := range r.order {
		user := r.users[id]
		stats.Total++
		if user.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if user.IsVerified {
			stats.Verified++
		}
		stats.ByRole[user.Role]++
	}

	return stats, nil
}

// indexLocked inserts a user into the map and uniqueness indexes.
func (r *InMemoryUserRepository) indexLocked(user *models.User) {
	r.users[user.ID] = user
	r.byUsername[strings.ToLower(user.Username)] = user.ID
	r.byEmail[strings.ToLower(user.Email)] = user.ID
	r.order = append(r.order, user.ID)
}

// persistLocked saves the full collection snapshot with the same graceful
// degradation as the task repository.
func (r *InMemoryUserRepository) persistLocked(ctx context.Context) {
	snapshot := userSnapshot{
		Version: constants.SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Users:   make([]*models.User, 0, len(r.order)),
	}
	for _, id := range r.order {
		snapshot.Users = append(snapshot.Users, r.users[id])
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		r.logger.Error("failed to encode user snapshot", zap.Error(err))
		return
	}
	if err := r.store.Save(constants.StorageKeyUsers, payload); err != nil {
		r.logger.Warn("user snapshot not persisted, keeping in-memory state",
			zap.Int("count", len(snapshot.Users)),
			zap.Error(err))
		if r.cache != nil {
			if cacheErr := r.cache.DeletePrefix(ctx, userCachePrefix); cacheErr != nil {
				r.logger.Warn("failed to clear user cache", zap.Error(cacheErr))
			}
		}
	}
}

func (r *InMemoryUserRepository) cacheSet(ctx context.Context, user *models.User) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, userCachePrefix+user.ID, string(payload), 0); err != nil {
		r.logger.Warn("user cache write failed", zap.String("id", user.ID), zap.Error(err))
	}
}

func (r *InMemoryUserRepository) cacheDelete(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, userCachePrefix+id); err != nil {
		r.logger.Warn("user cache delete failed", zap.String("id", id), zap.Error(err))
	}
}

// applyUserUpdate routes each provided field through the matching entity
// mutator, stopping at the first validation failure.
func applyUserUpdate(user *models.User, update UserUpdate) error {
	if update.Username != nil {
		if err := user.UpdateUsername(*update.Username); err != nil {
			return err
		}
	}
	if update.Email != nil {
		if err := user.UpdateEmail(*update.Email); err != nil {
			return err
		}
	}
	if update.DisplayName != nil || update.FirstName != nil || update.LastName != nil ||
		update.Bio != nil || update.Avatar != nil {
		user.UpdateProfile(models.ProfileFields{
			DisplayName: update.DisplayName,
			FirstName:   update.FirstName,
			LastName:    update.LastName,
			Bio:         update.Bio,
			Avatar:      update.Avatar,
		})
	}
	if update.Role != nil {
		if err := user.SetRole(*update.Role); err != nil {
			return err
		}
	}
	if update.Verified != nil && *update.Verified {
		user.Verify()
	}
	for key, value := range update.Preferences {
		if err := user.SetPreference(key, value); err != nil {
			return err
		}
	}
	return nil
}

func userMatches(user *models.User, filter UserFilter) bool {
	if filter.Role != "" && user.Role != models.UserRole(strings.ToLower(filter.Role)) {
		return false
	}
	if filter.Active != nil && user.IsActive != *filter.Active {
		return false
	}
	if filter.Verified != nil && user.IsVerified != *filter.Verified {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(user.Username, needle) &&
			!strings.Contains(user.Email, needle) &&
			!strings.Contains(strings.ToLower(user.DisplayName), needle) {
			return false
		}
	}
	return true
}

func sortUsers(users []*models.User, sortBy string, desc bool) {
	if sortBy == "" {
		return
	}

	var less func(a, b *models.User) bool
	switch sortBy {
	case "username":
		less = func(a, b *models.User) bool { return a.Username < b.Username }
	case "email":
		less = func(a, b *models.User) bool { return a.Email < b.Email }
	case "created_at":
		less = func(a, b *models.User) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "last_active_at":
		less = func(a, b *models.User) bool { return a.LastActiveAt.Before(b.LastActiveAt) }
	case "login_count":
		less = func(a, b *models.User) bool { return a.LoginCount < b.LoginCount }
	default:
		return
	}

	sort.SliceStable(users, func(i, j int) bool {
		if desc {
			return less(users[j], users[i])
		}
		return less(users[i], users[j])
	})
}
