package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/constants"
	"taskboard/internal/handlers"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/services"
	"taskboard/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	var logger *zap.Logger
	var err error
	if cfg.GinMode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Open the persistence store
	store, err := storage.OpenBolt(cfg.DataPath, "")
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// Redis cache is optional; repositories run fine without it
	var appCache cache.Cache
	if cfg.CacheEnabled() {
		redisCache, err := cache.NewRedisCache(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		appCache = redisCache
	}

	// Repositories load their snapshots on startup
	taskRepo, err := repository.NewTaskRepository(store, appCache, logger)
	if err != nil {
		logger.Fatal("failed to load tasks", zap.Error(err))
	}
	userRepo, err := repository.NewUserRepository(store, appCache, logger)
	if err != nil {
		logger.Fatal("failed to load users", zap.Error(err))
	}

	// Services and handlers
	userService := services.NewUserService(userRepo, logger)
	taskService := services.NewTaskService(taskRepo, userRepo, logger)

	authHandler := handlers.NewAuthHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)
	userHandler := handlers.NewUserHandler(userService)

	// Initialize Gin router
	r := gin.Default()

	// Cookie-backed sessions
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	isProduction := cfg.GinMode == "release"
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Taskboard API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/overdue", taskHandler.GetOverdue)
			tasks.GET("/due-soon", taskHandler.GetDueSoon)
			tasks.GET("/statistics", taskHandler.GetStatistics)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/notes", taskHandler.AddNote)
			tasks.DELETE("/:id/notes/:noteId", taskHandler.RemoveNote)
			tasks.POST("/:id/dependencies", taskHandler.AddDependency)
			tasks.DELETE("/:id/dependencies/:depId", taskHandler.RemoveDependency)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/statistics", userHandler.GetStatistics)
			users.PATCH("/me", userHandler.UpdateProfile)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id/role", userHandler.SetRole)
			users.DELETE("/:id", userHandler.DeactivateUser)
			users.DELETE("/:id/purge", userHandler.PurgeUser)
		}
	}

	// Start server
	logger.Info("server starting", zap.String("addr", cfg.Addr))
	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
