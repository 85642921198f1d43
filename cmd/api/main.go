package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civicworks/issue-service/internal/api/http"
	"github.com/civicworks/issue-service/internal/api/http/handlers"
	"github.com/civicworks/issue-service/internal/auth"
	"github.com/civicworks/issue-service/internal/cache"
	"github.com/civicworks/issue-service/internal/checkout"
	"github.com/civicworks/issue-service/internal/config"
	"github.com/civicworks/issue-service/internal/events"
	"github.com/civicworks/issue-service/internal/observability"
	"github.com/civicworks/issue-service/internal/persistence"
	"github.com/civicworks/issue-service/internal/repository"
	"github.com/civicworks/issue-service/internal/service"
	"github.com/civicworks/issue-service/internal/timeline"
	"github.com/civicworks/issue-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	recorder := timeline.NewRecorder(issueRepo, timelineRepo)
	issueCache := cache.NewIssueCache(redis.Client)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	provider := checkout.NewHTTPProvider(cfg.Checkout.BaseURL, cfg.Checkout.APIKey, cfg.Checkout.RequestTimeout())

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(userRepo, resetRepo, tokens, cfg.Auth, logger)
	userService := service.NewUserService(userRepo)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issueRepo,
		Recorder:   recorder,
		Cache:      issueCache,
		Dispatcher: dispatcher,
	})
	assignmentService := service.NewAssignmentService(issueRepo, userRepo, recorder, issueCache, dispatcher)
	paymentService := service.NewPaymentService(provider, paymentRepo, userRepo, issueRepo, recorder, issueCache, dispatcher, cfg.Checkout)
	applicationService := service.NewApplicationService(applicationRepo, userRepo)

	authMiddleware := auth.NewMiddleware(tokens, userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, userService),
		Issues:         handlers.NewIssuesHandler(issueService),
		StaffIssues:    handlers.NewStaffIssuesHandler(assignmentService),
		Admin:          handlers.NewAdminHandler(issueService, assignmentService, userService),
		Payments:       handlers.NewPaymentsHandler(paymentService),
		Applications:   handlers.NewApplicationsHandler(applicationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
