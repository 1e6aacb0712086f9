// Package attendance records clock-in and clock-out events. A user holds at
// most one open record at a time.
package attendance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 200

	openRecordConstraint = "ux_attendance_open_per_user"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type attendanceRepository interface {
	LockUser(tx *gorm.DB, userID uuid.UUID) (*models.User, error)
	FindOpen(tx *gorm.DB, userID uuid.UUID) (*models.AttendanceRecord, error)
	Insert(tx *gorm.DB, rec *models.AttendanceRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error)
	Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CurrentSince(ctx context.Context, userID uuid.UUID, since time.Time) (*recordRow, error)
	Working(ctx context.Context, storeID uuid.UUID, since time.Time) ([]workingRow, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]recordRow, error)
	Range(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]exportRow, error)
	ListStale(tx *gorm.DB, cutoff time.Time) ([]models.AttendanceRecord, error)
	CloseAt(tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service exposes attendance operations.
type Service interface {
	ClockIn(ctx context.Context, userID, storeID uuid.UUID) (*RecordDTO, error)
	ClockOut(ctx context.Context, actor Actor, attendanceID uuid.UUID) (*RecordDTO, error)
	GetCurrentAttendance(ctx context.Context, userID uuid.UUID) (*RecordDTO, error)
	GetWorkingMembers(ctx context.Context, storeID uuid.UUID) ([]WorkingMemberDTO, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]RecordDTO, error)
	ExportStoreAttendance(ctx context.Context, storeID uuid.UUID, from, to time.Time, w io.Writer) error
	AutoClose(ctx context.Context) (int, error)
}

// ServiceParams wires attendance dependencies. Location defines "today";
// MaxShift bounds how long a record may stay open before AutoClose ends it.
type ServiceParams struct {
	Repo     attendanceRepository
	Stores   storeLookup
	DB       txRunner
	Location *time.Location
	MaxShift time.Duration
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     attendanceRepository
	stores   storeLookup
	db       txRunner
	loc      *time.Location
	maxShift time.Duration
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("attendance repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	maxShift := params.MaxShift
	if maxShift <= 0 {
		maxShift = 16 * time.Hour
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		stores:   params.Stores,
		db:       params.DB,
		loc:      loc,
		maxShift: maxShift,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) ClockIn(ctx context.Context, userID, storeID uuid.UUID) (*RecordDTO, error) {
	if userID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and store id required")
	}

	rec := &models.AttendanceRecord{
		ID:      uuid.New(),
		UserID:  userID,
		StoreID: storeID,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.repo.LockUser(tx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock user")
		}
		if !user.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "user is inactive")
		}

		open, err := s.repo.FindOpen(tx, userID)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open attendance")
		}
		if open != nil {
			return alreadyClockedIn(open)
		}

		store, err := s.stores.FindByID(repo.InTx(ctx, tx), storeID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
		}
		if !store.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "store is inactive")
		}

		now := s.now().UTC()
		rec.ClockIn = now
		rec.CreatedAt = now
		if err := s.repo.Insert(tx, rec); err != nil {
			if db.IsUniqueViolation(err, openRecordConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "already clocked in")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert attendance")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit clock-in")
		}
		if pkgerrors.As(err).Code() == pkgerrors.CodeConflict {
			s.metrics.ClockIn("conflict")
		} else {
			s.metrics.ClockIn("rejected")
		}
		return nil, err
	}

	s.metrics.ClockIn("ok")
	return recordFromModel(rec), nil
}

func alreadyClockedIn(open *models.AttendanceRecord) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "already clocked in").WithDetails(map[string]any{
		"attendance_id": open.ID,
		"store_id":      open.StoreID,
		"clock_in":      open.ClockIn,
	})
}

func (s *service) ClockOut(ctx context.Context, actor Actor, attendanceID uuid.UUID) (*RecordDTO, error) {
	if attendanceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attendance id required")
	}
	rec, err := s.repo.FindByID(ctx, attendanceID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "attendance record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attendance")
	}
	if rec.UserID != actor.UserID && !actor.Role.IsManager() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot close another member's attendance")
	}
	if rec.ClockOut != nil {
		return nil, closedConflict(rec)
	}

	now := s.now().UTC()
	changed, err := s.repo.Close(ctx, attendanceID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close attendance")
	}
	if !changed {
		// lost a race with another clock-out or the auto-close job
		latest, err := s.repo.FindByID(ctx, attendanceID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload attendance")
		}
		return nil, closedConflict(latest)
	}

	rec.ClockOut = &now
	return recordFromModel(rec), nil
}

func closedConflict(rec *models.AttendanceRecord) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "attendance already closed").WithDetails(map[string]any{
		"attendance_id": rec.ID,
		"clock_out":     rec.ClockOut,
	})
}

func (s *service) GetCurrentAttendance(ctx context.Context, userID uuid.UUID) (*RecordDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	row, err := s.repo.CurrentSince(ctx, userID, s.startOfToday())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load current attendance")
	}
	if row == nil {
		return nil, nil
	}
	dto := recordFromRow(*row)
	return &dto, nil
}

func (s *service) GetWorkingMembers(ctx context.Context, storeID uuid.UUID) ([]WorkingMemberDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	rows, err := s.repo.Working(ctx, storeID, s.startOfToday())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load working members")
	}
	out := make([]WorkingMemberDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, WorkingMemberDTO{
			AttendanceID: r.AttendanceID,
			UserID:       r.UserID,
			Nickname:     r.Nickname,
			AvatarID:     r.AvatarID,
			Rank:         r.Rank,
			ClockIn:      r.ClockIn,
		})
	}
	return out, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]RecordDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attendance history")
	}
	out := make([]RecordDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, recordFromRow(r))
	}
	return out, nil
}

// AutoClose ends records left open longer than the maximum shift, stamping
// clock_out at clock_in plus the maximum shift.
func (s *service) AutoClose(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.maxShift)
	closed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stale, err := s.repo.ListStale(tx, cutoff)
		if err != nil {
			return err
		}
		for _, rec := range stale {
			changed, err := s.repo.CloseAt(tx, rec.ID, rec.ClockIn.UTC().Add(s.maxShift))
			if err != nil {
				return err
			}
			if changed {
				closed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto-close attendance")
	}
	s.metrics.AttendanceAutoClosed(closed)
	return closed, nil
}

func (s *service) startOfToday() time.Time {
	local := s.now().In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).UTC()
}
