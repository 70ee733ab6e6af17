package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/handlers"
	"github.com/yukikurage/taskflow/internal/middleware"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/repository"
	"github.com/yukikurage/taskflow/internal/services"
	"github.com/yukikurage/taskflow/internal/tasksync"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	if err := models.RegisterTaskStatuses(cfg.ExtraTaskStatuses...); err != nil {
		return err
	}

	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return err
	}
	db := database.GetDB()

	feed := database.NewChangeFeed()
	if err := feed.Register(db); err != nil {
		return fmt.Errorf("register change feed: %w", err)
	}

	pool := tasksync.NewRedisPool(cfg.RedisAddr(), cfg.RedisPassword)
	defer pool.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Services
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	authService := services.NewAuthService(staffRepo)
	delegationService := services.NewDelegationService(delegationRepo, taskRepo, staffRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo, delegationService, aiService)
	teamService := services.NewTeamService(teamRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	aggregator := services.NewTaskAggregator(taskRepo, staffRepo, teamRepo)

	cache, err := tasksync.New(aggregator,
		tasksync.WithChangeFeed(feed),
		tasksync.WithBroadcaster(tasksync.NewRedisBroadcaster(pool, cfg.BroadcastChannel)),
	)
	if err != nil {
		return err
	}
	defer cache.Close()

	dispatcher := notify.NewDispatcher(notify.NewStoreSink(notificationRepo, notify.LogMailer{}))

	r := gin.New()
	r.Use(gin.Recovery())

	store, err := redisStore.NewStore(
		10,
		"tcp",
		cfg.RedisAddr(),
		"",
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return fmt.Errorf("failed to create Redis session store: %w", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	registerRoutes(r, routeHandlers{
		auth:         handlers.NewAuthHandler(authService),
		tasks:        handlers.NewTaskHandler(taskService, cache, dispatcher),
		delegations:  handlers.NewDelegationHandler(delegationService, cache, dispatcher),
		notification: handlers.NewNotificationHandler(notificationService),
		teams:        handlers.NewTeamHandler(teamService),
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routeHandlers struct {
	auth         *handlers.AuthHandler
	tasks        *handlers.TaskHandler
	delegations  *handlers.DelegationHandler
	notification *handlers.NotificationHandler
	teams        *handlers.TeamHandler
}

func registerRoutes(r *gin.Engine, h routeHandlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "taskflow is running",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.auth.Login)
			auth.POST("/logout", h.auth.Logout)
			auth.GET("/me", middleware.RequireAuth(), h.auth.GetCurrentStaff)
		}

		staff := api.Group("/staff")
		staff.Use(middleware.RequireAuth(), middleware.RequireRole(models.RoleAdmin))
		{
			staff.POST("", h.auth.CreateStaff)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", h.tasks.ListTasks)
			tasks.POST("", h.tasks.CreateTask)
			tasks.POST("/generate", h.tasks.GenerateTasks)
			tasks.PATCH("/:id", middleware.RequireTaskID(), h.tasks.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskID(), h.tasks.DeleteTask)
			tasks.POST("/:id/delegations", middleware.RequireTaskID(), h.delegations.Delegate)
		}

		delegations := api.Group("/delegations")
		delegations.Use(middleware.RequireAuth(), middleware.RequireResourceID(constants.ContextKeyDelegationID, "delegation"))
		{
			delegations.POST("/:id/verify", h.delegations.Verify)
			delegations.POST("/:id/reject", h.delegations.Reject)
		}

		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", h.notification.ListNotifications)
			notifications.POST("/:id/viewed", middleware.RequireResourceID(constants.ContextKeyNotificationID, "notification"), h.notification.MarkViewed)
		}

		teams := api.Group("/teams")
		teams.Use(middleware.RequireAuth())
		{
			teams.GET("", h.teams.ListTeams)
		}
	}
}
