package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"taskboard/internal/constants"
	"taskboard/internal/dto"
	apierrors "taskboard/internal/errors"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/repository"
	"taskboard/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username    string `json:"username" binding:"required"`
		Email       string `json:"email" binding:"required"`
		DisplayName string `json:"display_name"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Bio         string `json:"bio"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Bio:         req.Bio,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusCreated, dto.ToUserDTO(user))
}

// Login looks up the account by username and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Username)
	if err != nil {
		respondUserError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserDTO(user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	apierrors.RespondWithMessage(c, http.StatusOK, "Logged out successfully")
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondUserError(c, err)
		return
	}

	apierrors.RespondWithData(c, http.StatusOK, dto.ToUserDTO(user))
}

func respondUserError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apierrors.BadRequestWithDetails(c, "Validation failed", gin.H{
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUserInactive):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUserPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
