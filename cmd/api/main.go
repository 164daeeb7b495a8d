package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/staff-assignment/internal/api/http"
	"github.com/spec-kit/staff-assignment/internal/api/http/handlers"
	"github.com/spec-kit/staff-assignment/internal/assignment"
	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/cache"
	"github.com/spec-kit/staff-assignment/internal/config"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/observability"
	"github.com/spec-kit/staff-assignment/internal/persistence"
	"github.com/spec-kit/staff-assignment/internal/repository"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
	"github.com/spec-kit/staff-assignment/internal/worker"
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

	policy, err := loadPolicy(cfg.Assignment)
	if err != nil {
		logger.Fatal("invalid ranking policy", zap.Error(err))
	}
	logger.Info("ranking policy", zap.String("keys", policy.String()))

	v, err := validation.New()
	if err != nil {
		logger.Fatal("failed to build validator", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rds := persistence.NewRedis(cfg.Redis, cfg.App.Name, logger)
	defer rds.Close()

	rabbit, err := persistence.NewRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer rabbit.Close()

	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	branchRepo := repository.NewBranchRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	historyRepo := repository.NewBookingHistoryRepository(pool)

	rosters := cache.NewRosterCache(rds.Client, rds.Key("roster"), cfg.Assignment.RosterCacheTTL(), logger)
	resetTokens := auth.NewResetTokenStore(rds.Client, rds.Key("password-reset"))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var relay *events.AMQPRelay
	if rabbit.Enabled() {
		relay = events.NewAMQPRelay(rabbit.Channel, rabbit.Queue, cfg.RabbitMQ.PublishTimeout(), logger)
	}
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notificationService, relay)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		StaffRepo:   staffRepo,
		BranchRepo:  branchRepo,
		ResetTokens: resetTokens,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	staffService := service.NewStaffService(*cfg, service.OrgDependencies{
		BranchRepo:       branchRepo,
		StaffRepo:        staffRepo,
		AvailabilityRepo: availabilityRepo,
		Rosters:          rosters,
		Validator:        v,
	})
	bookingService := service.NewBookingService(service.BookingDependencies{
		BookingRepo: bookingRepo,
		BranchRepo:  branchRepo,
		StaffRepo:   staffRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		StaffRepo:        staffRepo,
		AvailabilityRepo: availabilityRepo,
		BookingRepo:      bookingRepo,
		HistoryRepo:      historyRepo,
		Rosters:          rosters,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Policy:           policy,
		CandidateLimit:   cfg.Assignment.CandidateLimit,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)

	checks := []handlers.HealthCheck{
		{Name: "postgres", Pinger: pg},
		{Name: "redis", Pinger: rds},
	}
	if rabbit.Enabled() {
		checks = append(checks, handlers.HealthCheck{Name: "rabbitmq", Pinger: rabbit})
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Users:          handlers.NewUsersHandler(authService, v),
		Staff:          handlers.NewStaffHandler(authService, staffService, v),
		Branches:       handlers.NewBranchesHandler(staffService, v),
		Bookings:       handlers.NewBookingsHandler(bookingService, v),
		Dispatch:       handlers.NewDispatchHandler(assignmentService, v),
		Assignments:    handlers.NewAssignmentsHandler(bookingService),
		AuthMiddleware: authMiddleware.Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func loadPolicy(cfg config.AssignmentConfig) (assignment.Policy, error) {
	if cfg.PolicyFile != "" {
		return assignment.LoadPolicy(cfg.PolicyFile)
	}
	return assignment.ParsePolicy(cfg.Ranking)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
