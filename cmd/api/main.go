package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := pflag.Bool("migrate-only", false, "apply database migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
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

	if pg.Enabled() && (cfg.Postgres.RunMigrations || *migrateOnly) {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if *migrateOnly {
		logger.Info("migrations applied")
		return
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg, redis, logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	fallback, err := directory.LoadFallback(cfg.Directory.FallbackFile)
	if err != nil {
		logger.Fatal("failed to load fallback departments", zap.Error(err))
	}
	directoryClient := directory.NewClient(cfg.Directory, logger)

	authService := service.NewAuthService(*cfg, repos.users)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: repos.requests,
		UserRepo:    repos.users,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	departmentService := service.NewDepartmentService(service.DepartmentDependencies{
		DepartmentRepo: repos.departments,
		Directory:      directoryClient,
		Fallback:       fallback,
		Logger:         logger,
	})
	syncService := service.NewDirectorySyncService(service.DirectorySyncDependencies{
		DepartmentRepo: repos.departments,
		Directory:      directoryClient,
		State:          repos.syncState,
		LockTTL:        cfg.Directory.SyncLockTTL(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	statsService := service.NewStatsService(repos.requests, repos.departments)
	reportService := service.NewReportService(requestService)

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App, logger, metrics, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Public:         handlers.NewPublicHandler(requestService, departmentService),
		Requests:       handlers.NewRequestsHandler(requestService, statsService, reportService),
		Departments:    handlers.NewDepartmentsHandler(departmentService, syncService, statsService),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

type repositories struct {
	requests    repository.ServiceRequestRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	history     repository.RequestHistoryRepository
	syncState   repository.SyncStateRepository
}

// buildRepositories falls back to the in-memory store when Postgres or Redis are not configured.
func buildRepositories(pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) repositories {
	var repos repositories
	if pg.Enabled() {
		pool := pg.PoolHandle()
		repos.requests = repository.NewServiceRequestRepository(pool)
		repos.departments = repository.NewDepartmentRepository(pool)
		repos.users = repository.NewUserRepository(pool)
		repos.history = repository.NewRequestHistoryRepository(pool)
	} else {
		logger.Warn("POSTGRES_DSN not set; using in-memory store")
		store := memory.NewStore()
		repos.requests = store.Requests()
		repos.departments = store.Departments()
		repos.users = store.Users()
		repos.history = store.History()
	}

	if redis.Enabled() {
		repos.syncState = repository.NewSyncStateRepository(redis.Client)
	} else {
		repos.syncState = memory.NewSyncState()
	}
	return repos
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
