package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ops-portal/internal/api/http"
	"github.com/spec-kit/ops-portal/internal/api/http/handlers"
	"github.com/spec-kit/ops-portal/internal/auth"
	"github.com/spec-kit/ops-portal/internal/config"
	"github.com/spec-kit/ops-portal/internal/events"
	"github.com/spec-kit/ops-portal/internal/observability"
	"github.com/spec-kit/ops-portal/internal/persistence"
	"github.com/spec-kit/ops-portal/internal/repository"
	"github.com/spec-kit/ops-portal/internal/service"
	"github.com/spec-kit/ops-portal/internal/worker"
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
	accountRepo := repository.NewAccountRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	resolver := auth.NewSessionResolver(tokens, accountRepo, profileRepo)
	authMiddleware := auth.NewMiddleware(resolver)

	authService := service.NewAuthService(service.AuthDependencies{
		AccountRepo: accountRepo,
		ProfileRepo: profileRepo,
		Tokens:      tokens,
		Config:      cfg.Auth,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		LeadRepo:   leadRepo,
		Dispatcher: dispatcher,
		Locker:     redis,
		Escalation: cfg.Escalation,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		EventRepo:   eventRepo,
		ProfileRepo: profileRepo,
		Dispatcher:  dispatcher,
	})
	appointmentService := service.NewAppointmentService(service.AppointmentDependencies{
		AppointmentRepo: appointmentRepo,
		LeadRepo:        leadRepo,
		Dispatcher:      dispatcher,
	})
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo:     leadRepo,
		ActivityRepo: activityRepo,
	})
	auditService := service.NewAuditService(activityRepo, dispatcher, logger)
	worker.StartAuditWorker(auditService)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Session:        handlers.NewSessionHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService, metrics),
		Events:         handlers.NewEventsHandler(assignmentService),
		Leads:          handlers.NewLeadsHandler(leadService),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService),
		AuthMiddleware: authMiddleware,
		AdminToken:     cfg.Auth.AdminToken,
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
