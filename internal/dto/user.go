package dto

import (
	"time"

	"taskboard/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name,omitempty"`
	FullName    string          `json:"full_name"`
	Bio         string          `json:"bio,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Role        models.UserRole `json:"role"`
	IsActive    bool            `json:"is_active"`
	IsVerified  bool            `json:"is_verified"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	LoginCount  int             `json:"login_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UserListItemDTO represents a user in list responses (minimal data)
type UserListItemDTO struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
	IsActive bool            `json:"is_active"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users    []UserListItemDTO `json:"users"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Count    int               `json:"count"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		FullName:    user.FullName(),
		Bio:         user.Bio,
		Avatar:      user.Avatar,
		Role:        user.Role,
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		LastLoginAt: user.LastLoginAt,
		LoginCount:  user.LoginCount,
		CreatedAt:   user.CreatedAt,
	}
}

// ToUserListItemDTO converts a User model to UserListItemDTO
func ToUserListItemDTO(user *models.User) UserListItemDTO {
	return UserListItemDTO{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName(),
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

// ToUserListResponse converts a slice of users to UserListResponse
func ToUserListResponse(users []*models.User, page, pageSize int) UserListResponse {
	items := make([]UserListItemDTO, len(users))
	for i, user := range users {
		items[i] = ToUserListItemDTO(user)
	}

	return UserListResponse{
		Users:    items,
		Page:     page,
		PageSize: pageSize,
		Count:    len(items),
	}
}
