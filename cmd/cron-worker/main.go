package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shota3227/ludi/internal/attendance"
	"github.com/shota3227/ludi/internal/cron"
	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/instance"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
	"github.com/shota3227/ludi/pkg/migrate"
	"github.com/shota3227/ludi/pkg/redis"
)

const lockKeyFormat = "ludi:cron-worker:lock:%s"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(ctx, cfg, logg, dbClient, loc, domainMetrics)
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    cronMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, loc *time.Location, domainMetrics *metrics.DomainMetrics) (*cron.Registry, error) {
	conn := dbClient.DB()
	registry := cron.NewRegistry()

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    notifications.NewRepository(conn),
		ReadRetention: cfg.Cron.NotificationReadTTL,
		MaxAge:        cfg.Cron.NotificationMaxAge,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(cleanupJob); err != nil {
		return nil, err
	}

	attendanceService, err := attendance.NewService(attendance.ServiceParams{
		Repo:     attendance.NewRepository(conn),
		Stores:   stores.NewRepository(conn),
		DB:       dbClient,
		Location: loc,
		MaxShift: cfg.Attendance.MaxShift,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	autoCloseJob, err := cron.NewAttendanceAutoCloseJob(logg, attendanceService)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(autoCloseJob); err != nil {
		return nil, err
	}

	if cfg.Cron.ReconciliationAuditOff {
		return registry, nil
	}
	provider, err := identity.New(ctx, cfg, conn)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	reconciliationService, err := reconciliation.NewService(reconciliation.ServiceParams{
		Repo:     reconciliation.NewRepository(conn),
		DB:       dbClient,
		Provider: provider,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	auditJob, err := cron.NewReconciliationAuditJob(logg, reconciliationService)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(auditJob); err != nil {
		return nil, err
	}

	return registry, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
