package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/validation"
)

type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleModerator  UserRole = "moderator"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super-admin"
)

// UserRoles lists every legal role.
var UserRoles = []UserRole{RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin}

// User is a mutable profile entity. Username and email are normalized to
// lowercase; uniqueness across users is enforced by the repository.
type User struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"display_name,omitempty"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	Bio          string         `json:"bio,omitempty"`
	Avatar       string         `json:"avatar,omitempty"`
	Role         UserRole       `json:"role"`
	IsActive     bool           `json:"is_active"`
	IsVerified   bool           `json:"is_verified"`
	Preferences  map[string]any `json:"preferences"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	LoginCount   int            `json:"login_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

// UserOptions holds the optional fields accepted by NewUser.
type UserOptions struct {
	DisplayName string
	FirstName   string
	LastName    string
	Bio         string
	Avatar      string
	Role        string
	Preferences map[string]any
}

// NewUser validates the required username and email plus any supplied
// optional fields, then builds an active, unverified user.
func NewUser(username, email string, opts UserOptions) (*User, error) {
	usernameResult := validation.Username(username)
	if !usernameResult.Valid {
		return nil, NewValidationError("username", usernameResult.Errors[0])
	}

	emailResult := validation.Email(email)
	if !emailResult.Valid {
		return nil, NewValidationError("email", emailResult.Errors[0])
	}

	role := RoleUser
	if opts.Role != "" {
		role = UserRole(strings.ToLower(opts.Role))
		if !isValidRole(role) {
			return nil, NewValidationError("role", "unknown role")
		}
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Username:     usernameResult.Sanitized,
		Email:        emailResult.Sanitized,
		DisplayName:  strings.TrimSpace(opts.DisplayName),
		FirstName:    strings.TrimSpace(opts.FirstName),
		LastName:     strings.TrimSpace(opts.LastName),
		Bio:          opts.Bio,
		Avatar:       opts.Avatar,
		Role:         role,
		IsActive:     true,
		Preferences:  map[string]any{},
		Tags:         []string{},
		Metadata:     map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}
	for k, v := range opts.Preferences {
		user.Preferences[k] = v
	}

	return user, nil
}

// UpdateUsername replaces the username after shape validation. Repository
// uniqueness is checked separately on update.
func (u *User) UpdateUsername(username string) error {
	result := validation.Username(username)
	if !result.Valid {
		return NewValidationError("username", result.Errors[0])
	}
	u.Username = result.Sanitized
	u.touch()
	return nil
}

// UpdateEmail replaces the email after shape validation.
func (u *User) UpdateEmail(email string) error {
	result := validation.Email(email)
	if !result.Valid {
		return NewValidationError("email", result.Errors[0])
	}
	u.Email = result.Sanitized
	u.touch()
	return nil
}

// ProfileFields carries optional profile updates. Nil fields are ignored.
type ProfileFields struct {
	DisplayName *string
	FirstName   *string
	LastName    *string
	Bio         *string
	Avatar      *string
}

// UpdateProfile applies the provided profile fields.
func (u *User) UpdateProfile(fields ProfileFields) {
	if fields.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*fields.DisplayName)
	}
	if fields.FirstName != nil {
		u.FirstName = strings.TrimSpace(*fields.FirstName)
	}
	if fields.LastName != nil {
		u.LastName = strings.TrimSpace(*fields.LastName)
	}
	if fields.Bio != nil {
		u.Bio = *fields.Bio
	}
	if fields.Avatar != nil {
		u.Avatar = *fields.Avatar
	}
	u.touch()
}

// SetRole changes the user's role.
func (u *User) SetRole(role string) error {
	r := UserRole(strings.ToLower(strings.TrimSpace(role)))
	if !isValidRole(r) {
		return NewValidationError("role", "unknown role")
	}
	u.Role = r
	u.touch()
	return nil
}

// Deactivate soft-deletes the user, preserving the record.
func (u *User) Deactivate() {
	u.IsActive = false
	u.touch()
}

// Activate reverses a deactivation.
func (u *User) Activate() {
	u.IsActive = true
	u.touch()
}

// Verify marks the account as verified.
func (u *User) Verify() {
	u.IsVerified = true
	u.touch()
}

// SetPreference stores an arbitrary preference value under a key.
func (u *User) SetPreference(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return NewValidationError("preferences", "preference key cannot be empty")
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	u.Preferences[key] = value
	u.touch()
	return nil
}

// Preference returns a stored preference value.
func (u *User) Preference(key string) (any, bool) {
	value, ok := u.Preferences[key]
	return value, ok
}

// AddTag adds a lowercase tag, suppressing duplicates.
func (u *User) AddTag(tag string) error {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return NewValidationError("tag", "tag cannot be empty")
	}
	for _, existing := range u.Tags {
		if existing == normalized {
			return nil
		}
	}
	u.Tags = append(u.Tags, normalized)
	u.touch()
	return nil
}

// RemoveTag removes a tag and reports whether it was present.
func (u *User) RemoveTag(tag string) bool {
	needle := strings.ToLower(strings.TrimSpace(tag))
	for i, existing := range u.Tags {
		if existing == needle {
			u.Tags = append(u.Tags[:i], u.Tags[i+1:]...)
			u.touch()
			return true
		}
	}
	return false
}

// RecordLogin updates the login lifecycle counters.
func (u *User) RecordLogin() {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.LoginCount++
	u.LastActiveAt = now
	u.touch()
}

// IsAdmin reports whether the user holds an administrative role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// CanManageUsers reports whether the user may administer other accounts.
func (u *User) CanManageUsers() bool {
	return u.Role == RoleModerator || u.IsAdmin()
}

// FullName returns the display name, falling back to first/last name and
// finally the username.
func (u *User) FullName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

// Clone returns a deep copy, so callers can hand out user data without
// aliasing the repository's collections.
func (u *User) Clone() *User {
	clone := *u
	clone.Tags = append([]string{}, u.Tags...)
	clone.Preferences = make(map[string]any, len(u.Preferences))
	for k, v := range u.Preferences {
		clone.Preferences[k] = v
	}
	clone.Metadata = make(map[string]any, len(u.Metadata))
	for k, v := range u.Metadata {
		clone.Metadata[k] = v
	}
	if u.LastLoginAt != nil {
		lastLogin := *u.LastLoginAt
		clone.LastLoginAt = &lastLogin
	}
	return &clone
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}

func isValidRole(r UserRole) bool {
	for _, known := range UserRoles {
		if r == known {
			return true
		}
	}
	return false
}
