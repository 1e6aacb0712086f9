package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/shota3227/ludi/api/routes"
	"github.com/shota3227/ludi/internal/attendance"
	"github.com/shota3227/ludi/internal/auth"
	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/internal/missions"
	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/internal/points"
	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/internal/skills"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/internal/users"
	"github.com/shota3227/ludi/pkg/auth/session"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/instance"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
	"github.com/shota3227/ludi/pkg/migrate"
	"github.com/shota3227/ludi/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	loc, err := cfg.Points.Location()
	if err != nil {
		logg.Error(ctx, "invalid timezone", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	domainMetrics := metrics.NewDomainMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	provider, err := identity.New(ctx, cfg, dbClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to create identity provider", err)
		os.Exit(1)
	}

	var sendLocker *redis.Locker
	if cfg.FeatureFlags.PointsLock {
		sendLocker, err = redis.NewLocker(redisClient)
		if err != nil {
			logg.Error(ctx, "failed to create redis locker", err)
			os.Exit(1)
		}
	}

	conn := dbClient.DB()
	storeRepo := stores.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	storeService, err := stores.NewService(storeRepo)
	exitOnErr(ctx, logg, "stores service", err)

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	exitOnErr(ctx, logg, "notifications service", err)

	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Stores:   storeRepo,
		Provider: provider,
		Logger:   logg,
	})
	exitOnErr(ctx, logg, "users service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Provider:       provider,
		UserRepo:       userRepo,
		Users:          userService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	exitOnErr(ctx, logg, "auth service", err)

	pointsParams := points.ServiceParams{
		Repo:     points.NewRepository(conn),
		DB:       dbClient,
		Notifier: notificationService,
		Metrics:  domainMetrics,
		Logger:   logg,
		Config:   cfg.Points,
	}
	if sendLocker != nil {
		pointsParams.Locker = sendLocker
	}
	pointsService, err := points.NewService(pointsParams)
	exitOnErr(ctx, logg, "points service", err)

	attendanceService, err := attendance.NewService(attendance.ServiceParams{
		Repo:     attendance.NewRepository(conn),
		Stores:   storeRepo,
		DB:       dbClient,
		Location: loc,
		MaxShift: cfg.Attendance.MaxShift,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	exitOnErr(ctx, logg, "attendance service", err)

	missionService, err := missions.NewService(missions.ServiceParams{
		Repo:     missions.NewRepository(conn),
		Stores:   storeRepo,
		DB:       dbClient,
		Notifier: notificationService,
		Location: loc,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	exitOnErr(ctx, logg, "missions service", err)

	skillService, err := skills.NewService(skills.NewRepository(conn), notificationService, logg)
	exitOnErr(ctx, logg, "skills service", err)

	reconciliationService, err := reconciliation.NewService(reconciliation.ServiceParams{
		Repo:     reconciliation.NewRepository(conn),
		DB:       dbClient,
		Provider: provider,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	exitOnErr(ctx, logg, "reconciliation service", err)

	var rateLimitStore limiter.Store
	if cfg.RateLimit.Enabled {
		rateLimitStore, err = sredis.NewStoreWithOptions(redisClient.Raw(), limiter.StoreOptions{
			Prefix: "ludi:rate",
		})
		exitOnErr(ctx, logg, "rate limit store", err)
	}

	router, err := routes.NewRouter(routes.Params{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		RateLimitStore: rateLimitStore,
		Gatherer:       registry,
		HTTPMetrics:    httpMetrics,
		Location:       loc,
		Auth:           authService,
		Users:          userService,
		Stores:         storeService,
		Points:         pointsService,
		Attendance:     attendanceService,
		Missions:       missionService,
		Skills:         skillService,
		Notifications:  notificationService,
		Reconciliation: reconciliationService,
	})
	exitOnErr(ctx, logg, "router", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"identity": cfg.Identity.Provider,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}

func exitOnErr(ctx context.Context, logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+what, err)
	os.Exit(1)
}
