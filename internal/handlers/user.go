package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/dto"
	apierrors "taskboard/internal/errors"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/services"
	"taskboard/internal/utils"
)

// UserHandler coordinates user administration HTTP handlers.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers returns accounts narrowed by query filters. Manager only.
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)

	filter := repository.UserFilter{
		Role:     c.Query("role"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
		SortDesc: c.Query("order") == "desc",
		Offset:   params.Offset,
		Limit:    params.Limit,
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid active filter")
			return
		}
		filter.Active = &active
	}

	users, err := h.userService.ListUsers(c.Request.Context(), userID, filter)
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserListResponse(users, params.Page, params.Limit))
}

// GetUser returns a user by id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserDTO(user))
}

// UpdateProfile applies a partial update to the current user's profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateProfileRequest struct {
		Username    *string        `json:"username"`
		Email       *string        `json:"email"`
		DisplayName *string        `json:"display_name"`
		FirstName   *string        `json:"first_name"`
		LastName    *string        `json:"last_name"`
		Bio         *string        `json:"bio"`
		Avatar      *string        `json:"avatar"`
		Preferences map[string]any `json:"preferences"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, repository.UserUpdate{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Bio:         req.Bio,
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserDTO(user))
}

// SetRole changes a user's role. Admin only.
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SetRoleRequest struct {
		Role string `json:"role" binding:"required"`
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.SetRole(c.Request.Context(), userID, c.Param("id"), req.Role)
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserDTO(user))
}

// DeactivateUser soft-deletes an account. The record survives; logins stop.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "User deactivated")
}

// PurgeUser permanently removes an account. Admin only.
func (h *UserHandler) PurgeUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.userService.Purge(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "User purged")
}

// GetStatistics aggregates account counts. Manager only.
func (h *UserHandler) GetStatistics(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.userService.Statistics(c.Request.Context(), userID)
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, stats)
}
