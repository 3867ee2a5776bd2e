package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/constants"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/services"
	"taskboard/internal/storage"
)

type authTestEnv struct {
	handler     *AuthHandler
	userService *services.UserService
	router      *gin.Engine
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo, err := repository.NewUserRepository(storage.NewMemoryStore(), nil, nil)
	require.NoError(t, err)

	userService := services.NewUserService(userRepo, nil)
	handler := NewAuthHandler(userService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/auth/signup", handler.Signup)
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.GET("/api/auth/me", middleware.RequireAuth(), handler.GetCurrentUser)

	return authTestEnv{
		handler:     handler,
		userService: userService,
		router:      r,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	var user struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	require.Equal(t, "newuser", user.Username)
}

func TestAuthHandler_Signup_DuplicateUsername(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.userService.Register(context.Background(), services.RegisterInput{
		Username: "existing",
		Email:    "existing@example.com",
	})
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "existing",
		"email":    "other@example.com",
	}, nil)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestAuthHandler_Signup_InvalidEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "newuser",
		"email":    "not-an-email",
	}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestAuthHandler_LoginAndMe(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.userService.Register(context.Background(), services.RegisterInput{
		Username: "existing",
		Email:    "existing@example.com",
	})
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "existing",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "login must set a session cookie")

	w = doJSON(t, env.router, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	var user struct {
		Username   string `json:"username"`
		LoginCount int    `json:"login_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	require.Equal(t, "existing", user.Username)
	require.Equal(t, 1, user.LoginCount)
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "ghost",
	}, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandler_Login_DeactivatedUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.userService.Register(context.Background(), services.RegisterInput{
		Username: "retired",
		Email:    "retired@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, env.userService.Deactivate(context.Background(), user.ID, user.ID))

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "retired",
	}, nil)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_Me_RequiresSession(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := doJSON(t, env.router, http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.userService.Register(context.Background(), services.RegisterInput{
		Username: "existing",
		Email:    "existing@example.com",
	})
	require.NoError(t, err)

	w := doJSON(t, env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "existing",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	w = doJSON(t, env.router, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	// The cleared cookie invalidates the session.
	w = doJSON(t, env.router, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
