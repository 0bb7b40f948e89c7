package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/realtime"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/worker"
	"github.com/spec-kit/grievance-service/pkg/keylock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
	}

	rds := persistence.NewRedis(cfg.Redis, logger)
	defer rds.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locks := keylock.New()

	grievanceRepo := repository.NewGrievanceRepository(pg.PoolHandle())
	staffRepo := repository.NewStaffRepository(pg.PoolHandle())
	historyRepo := repository.NewAssignmentHistoryRepository(pg.PoolHandle())
	messageRepo := repository.NewChatMessageRepository(pg.PoolHandle())
	unreadStore := repository.NewRedisUnreadStore(rds.Client)

	directorySvc := service.NewDirectoryService(staffRepo)
	assignmentSvc := service.NewAssignmentService(service.AssignmentDependencies{
		GrievanceRepo: grievanceRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   historyRepo,
		Directory:     directorySvc,
		Dispatcher:    dispatcher,
		Locks:         locks,
	})
	lifecycleSvc := service.NewLifecycleService(service.LifecycleDependencies{
		GrievanceRepo: grievanceRepo,
		StaffRepo:     staffRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Locks:         locks,
	})
	chatSvc := service.NewChatService(service.ChatDependencies{
		GrievanceRepo: grievanceRepo,
		MessageRepo:   messageRepo,
		UnreadStore:   unreadStore,
		Dispatcher:    dispatcher,
		Locks:         locks,
		Logger:        logger,
	})
	grievanceSvc := service.NewGrievanceService(service.GrievanceDependencies{
		GrievanceRepo: grievanceRepo,
		HistoryRepo:   historyRepo,
		MessageRepo:   messageRepo,
		Dispatcher:    dispatcher,
	})

	registry := realtime.NewRegistry()
	notificationSvc := service.NewNotificationService(registry, metrics, logger)
	notificationSvc.RegisterHandlers(dispatcher)

	access := func(ctx context.Context, principal *auth.Principal, grievanceID string) bool {
		return chatSvc.CanAccess(ctx, principal.SubjectType, principal.SubjectID, principal.Department, principal.IsAdmin(), grievanceID)
	}
	typing := realtime.TypingFunc(func(ctx context.Context, grievanceID string, sender domain.SenderRef, started bool) {
		_ = chatSvc.Typing(ctx, sender, grievanceID, started)
	})
	hub := realtime.NewHub(registry, access, typing, cfg.Realtime.SendBufferSize, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	sweeper := worker.NewAssignmentSweeper(grievanceRepo, assignmentSvc, cfg.Sweep, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("start assignment sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})

	apihttp.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	apihttp.RegisterRoutes(app, apihttp.RouterDependencies{
		Health:     handlers.NewHealthHandler(pg.PoolHandle(), rds.Client, cfg.App.Version),
		Grievances: handlers.NewGrievancesHandler(grievanceSvc, assignmentSvc, lifecycleSvc),
		Chat:       handlers.NewChatHandler(chatSvc),
		Directory:  handlers.NewDirectoryHandler(directorySvc, staffRepo),
		Auth:       authMiddleware,
		Hub:        hub,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
