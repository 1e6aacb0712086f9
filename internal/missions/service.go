// Package missions tracks store-level daily goals. Progress is reported as
// an absolute value; completed and cancelled missions never change again.
package missions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type missionsRepository interface {
	Lock(tx *gorm.DB, id uuid.UUID) (*models.Mission, error)
	SaveProgress(tx *gorm.DB, mission *models.Mission) error
	Create(ctx context.Context, mission *models.Mission) error
	ForDate(ctx context.Context, storeID uuid.UUID, day time.Time) ([]models.Mission, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service manages missions.
type Service interface {
	UpdateProgress(ctx context.Context, missionID uuid.UUID, value int) (*MissionDTO, error)
	TodayMissions(ctx context.Context, storeID uuid.UUID) ([]MissionDTO, error)
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*MissionDTO, error)
	Cancel(ctx context.Context, missionID uuid.UUID) (*MissionDTO, error)
}

type ServiceParams struct {
	Repo     missionsRepository
	Stores   storeLookup
	DB       txRunner
	Notifier notifications.Sink
	Location *time.Location
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     missionsRepository
	stores   storeLookup
	db       txRunner
	notifier notifications.Sink
	loc      *time.Location
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("missions repository required")
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
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		stores:   params.Stores,
		db:       params.DB,
		notifier: params.Notifier,
		loc:      loc,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) UpdateProgress(ctx context.Context, missionID uuid.UUID, value int) (*MissionDTO, error) {
	if missionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mission id required")
	}
	if value < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "progress value must not be negative")
	}

	var (
		mission   *models.Mission
		completed bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		mission, err = s.repo.Lock(tx, missionID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "mission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock mission")
		}
		if mission.Status.IsTerminal() {
			return terminalConflict(mission)
		}

		mission.CurrentValue = value
		mission.Status = enums.MissionStatusActive
		if mission.TargetValue != nil && value >= *mission.TargetValue {
			mission.Status = enums.MissionStatusCompleted
			completed = true
		}
		mission.UpdatedAt = s.now().UTC()
		if err := s.repo.SaveProgress(tx, mission); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save mission progress")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit mission progress")
		}
		return nil, err
	}

	if completed {
		s.notifyCompleted(ctx, mission)
	}
	return fromModel(mission), nil
}

func terminalConflict(m *models.Mission) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("mission is %s", m.Status)).WithDetails(map[string]any{
		"mission_id":    m.ID,
		"status":        m.Status,
		"current_value": m.CurrentValue,
	})
}

// notifyCompleted tells the mission author; failures are logged only.
func (s *service) notifyCompleted(ctx context.Context, m *models.Mission) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Create(ctx, notifications.CreateInput{
		UserID: m.CreatedBy,
		Type:   enums.NotificationTypeMissionCompleted,
		Title:  "🎉 ミッション達成",
		Body:   fmt.Sprintf("「%s」を達成しました", m.Name),
		Data: map[string]any{
			"mission_id": m.ID,
			"store_id":   m.StoreID,
			"points":     m.Points,
		},
	})
	if err != nil {
		s.metrics.NotificationFailed()
		s.logg.Error(s.logg.WithField(ctx, "mission_id", m.ID.String()), "mission notification failed", err)
	}
}

func (s *service) TodayMissions(ctx context.Context, storeID uuid.UUID) ([]MissionDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	rows, err := s.repo.ForDate(ctx, storeID, s.calendarDate(s.now()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load today's missions")
	}
	out := make([]MissionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*MissionDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	icon := strings.TrimSpace(input.Icon)
	if icon == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "icon required")
	}
	if input.TargetValue != nil && *input.TargetValue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target value must be positive")
	}
	if input.Points < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must not be negative")
	}

	store, err := s.stores.FindByID(ctx, input.StoreID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is inactive")
	}

	target := s.now()
	if input.TargetDate != nil {
		target = *input.TargetDate
	}
	now := s.now().UTC()
	mission := &models.Mission{
		ID:           uuid.New(),
		StoreID:      input.StoreID,
		Name:         name,
		Description:  input.Description,
		Icon:         icon,
		TargetValue:  input.TargetValue,
		CurrentValue: 0,
		TargetDate:   s.calendarDate(target),
		Points:       input.Points,
		Status:       enums.MissionStatusActive,
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, mission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create mission")
	}
	return fromModel(mission), nil
}

func (s *service) Cancel(ctx context.Context, missionID uuid.UUID) (*MissionDTO, error) {
	if missionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mission id required")
	}
	var mission *models.Mission
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		mission, err = s.repo.Lock(tx, missionID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "mission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock mission")
		}
		if mission.Status.IsTerminal() {
			return terminalConflict(mission)
		}
		mission.Status = enums.MissionStatusCancelled
		mission.UpdatedAt = s.now().UTC()
		if err := s.repo.SaveProgress(tx, mission); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel mission")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit mission cancel")
		}
		return nil, err
	}
	return fromModel(mission), nil
}

// calendarDate maps an instant to its local calendar date, stored as
// midnight UTC of that date.
func (s *service) calendarDate(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
