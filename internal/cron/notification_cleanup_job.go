package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/logger"
)

const (
	defaultReadRetention = 30 * 24 * time.Hour
	defaultMaxAge        = 90 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// NotificationCleanupJobParams configure the notification cleanup job.
// ReadRetention applies to read notifications; MaxAge bounds everything.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    notificationsCleanupRepo
	ReadRetention time.Duration
	MaxAge        time.Duration
}

type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	readRetention := params.ReadRetention
	if readRetention <= 0 {
		readRetention = defaultReadRetention
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	if maxAge < readRetention {
		return nil, fmt.Errorf("notification max age %s shorter than read retention %s", maxAge, readRetention)
	}
	return &notificationCleanupJob{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repository,
		readRetention: readRetention,
		maxAge:        maxAge,
		now:           time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	db            txRunner
	repo          notificationsCleanupRepo
	readRetention time.Duration
	maxAge        time.Duration
	now           func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	readCutoff := now.Add(-j.readRetention)
	ageCutoff := now.Add(-j.maxAge)

	var readDeleted, agedDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteReadBefore(ctx, tx, readCutoff)
		if err != nil {
			return fmt.Errorf("delete read: %w", err)
		}
		readDeleted = rows

		rows, err = j.repo.DeleteOlderThan(ctx, tx, ageCutoff)
		if err != nil {
			return fmt.Errorf("delete aged: %w", err)
		}
		agedDeleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"read_cutoff":  readCutoff,
		"age_cutoff":   ageCutoff,
		"read_deleted": readDeleted,
		"aged_deleted": agedDeleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
