package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/plantops/finding-service/internal/api/http"
	"github.com/plantops/finding-service/internal/api/http/handlers"
	"github.com/plantops/finding-service/internal/auth"
	"github.com/plantops/finding-service/internal/config"
	"github.com/plantops/finding-service/internal/events"
	"github.com/plantops/finding-service/internal/observability"
	"github.com/plantops/finding-service/internal/persistence"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/internal/service"
	"github.com/plantops/finding-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	pool := postgres.PoolHandle()
	ticketStore := repository.NewTicketStore(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	directory := repository.NewCachedDirectory(
		repository.NewDirectoryRepository(pool),
		redisConn.ClientHandle(),
		cfg.DirectoryCacheTTL(),
	)
	evidenceStore := repository.NewEvidenceStore(pool)
	commentRepo := repository.NewCommentRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	assignmentSvc := service.NewAssignmentService(directory)
	lifecycleSvc := service.NewLifecycleService(service.LifecycleDependencies{
		Store:       ticketStore,
		HistoryRepo: historyRepo,
		Directory:   directory,
		Evidence:    evidenceStore,
		Assignments: assignmentSvc,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	authSvc := service.NewAuthService(*cfg, service.AuthDependencies{
		Directory:         directory,
		PasswordResetRepo: resetRepo,
	})

	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	authMiddleware := auth.NewAuthMiddleware(authSvc.TokenManager(), directory)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: apihttp.NewErrorHandler(logger, metrics),
	})
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(apihttp.RequestTimeout(cfg.App.RequestTimeout()))

	apihttp.RegisterRoutes(app, apihttp.RouterDependencies{
		AuthMiddleware: authMiddleware,
		Findings:       handlers.NewFindingsHandler(lifecycleSvc, assignmentSvc, commentRepo, evidenceStore),
		Employees:      handlers.NewEmployeesHandler(authSvc),
		Health:         handlers.NewHealthHandler(cfg.App.Version, postgres, redisConn),
	})

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
