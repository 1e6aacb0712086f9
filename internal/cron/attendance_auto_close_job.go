package cron

import (
	"context"
	"fmt"

	"github.com/shota3227/ludi/pkg/logger"
)

type attendanceCloser interface {
	AutoClose(ctx context.Context) (int, error)
}

// NewAttendanceAutoCloseJob closes attendance records left open past the
// maximum shift length.
func NewAttendanceAutoCloseJob(logg *logger.Logger, closer attendanceCloser) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if closer == nil {
		return nil, fmt.Errorf("attendance service required")
	}
	return &attendanceAutoCloseJob{logg: logg, closer: closer}, nil
}

type attendanceAutoCloseJob struct {
	logg   *logger.Logger
	closer attendanceCloser
}

func (j *attendanceAutoCloseJob) Name() string { return "attendance-auto-close" }

func (j *attendanceAutoCloseJob) Run(ctx context.Context) error {
	closed, err := j.closer.AutoClose(ctx)
	if err != nil {
		return fmt.Errorf("auto close attendance: %w", err)
	}
	if closed > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "records_closed", closed), "closed stale attendance records")
		return nil
	}
	j.logg.Info(ctx, "no stale attendance records")
	return nil
}
