package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"scale_backend/internal/auth"
	"scale_backend/internal/cache"
	"scale_backend/internal/config"
	"scale_backend/internal/database"
	"scale_backend/internal/email"
	"scale_backend/internal/handlers"
	"scale_backend/internal/logger"
	"scale_backend/internal/middleware"
	"scale_backend/internal/repositories"
	"scale_backend/internal/routes"
	"scale_backend/internal/services"
	"scale_backend/internal/validator"
	"scale_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close(gormDB)

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(gormDB); err != nil {
			logger.Fatal("Failed to migrate database", "error", err)
		}
	}

	rdb, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		// Без кеша сервис работает, просто медленнее.
		logger.Error("Redis unavailable, plan cache disabled", "error", err)
	}
	var redisClient cache.RedisClient
	if rdb != nil {
		redisClient = rdb
		defer rdb.Close()
	}

	container := initializeServices(cfg, redisClient, email.NewProvider(email.ConfigFrom(cfg)))

	if err := seedFirstAdmin(ctx, gormDB, cfg, container.AccountService); err != nil {
		// Если не удалось создать админа - не запускаем сервер
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           buildRouter(cfg, gormDB, container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}

// SetupRouter собирает сервисы и gin-роутер. redisClient может быть nil:
// тогда кеш планов отключен. Письма уходят через provider из конфига.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, redisClient cache.RedisClient) *gin.Engine {
	container := initializeServices(cfg, redisClient, email.NewProvider(email.ConfigFrom(cfg)))
	return buildRouter(cfg, gormDB, container)
}

func buildRouter(cfg *config.Config, gormDB *gorm.DB, container *services.ServiceContainer) *gin.Engine {
	switch cfg.Server.Env {
	case "development":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	apperrors.SetDebug(cfg.Server.Env != "production")

	appHandlers := initializeHandlers(container)
	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, middleware.AuthMiddleware(cfg.JWT.Secret))
	return ginRouter
}

func initializeServices(cfg *config.Config, redisClient cache.RedisClient, emailProvider email.Provider) *services.ServiceContainer {
	// --- Инициализация репозиториев ---
	userRepo := repositories.NewUserRepository()
	referralRepo := repositories.NewReferralRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()
	projectRepo := repositories.NewProjectRepository()

	planCache := cache.NewPlanCache(redisClient, cfg.PlanCacheTTL())

	// --- Инициализация сервисов ---
	referralService := services.NewReferralService(referralRepo, userRepo, cfg.App.ReferralBaseURL)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, planCache)
	accountService := services.NewAccountService(userRepo, subscriptionRepo, referralService, emailProvider)
	projectService := services.NewProjectService(projectRepo)

	return &services.ServiceContainer{
		AccountService:      accountService,
		ReferralService:     referralService,
		SubscriptionService: subscriptionService,
		ProjectService:      projectService,
		EmailService:        emailProvider,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, container.AccountService),
		UserHandler:         handlers.NewUserHandler(baseHandler, container.AccountService),
		ReferralHandler:     handlers.NewReferralHandler(baseHandler, container.ReferralService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(baseHandler, container.SubscriptionService),
		ProjectHandler:      handlers.NewProjectHandler(baseHandler, container.ProjectService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.App.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config, accounts services.AccountService) error {
	if cfg.FirstAdminEmail == "" || cfg.FirstAdminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}
	if err := auth.ValidatePassword(cfg.FirstAdminPassword); err != nil {
		return fmt.Errorf("first admin password: %w", err)
	}

	created, err := accounts.EnsureAdmin(ctx, db, cfg.FirstAdminEmail, cfg.FirstAdminPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Info("Created first admin user", "email", cfg.FirstAdminEmail)
	} else {
		logger.Info("Admin user already exists. Skipping creation.", "email", cfg.FirstAdminEmail)
	}
	return nil
}
