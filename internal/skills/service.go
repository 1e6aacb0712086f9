// Package skills exposes the organization skill catalog and per-user
// certifications.
package skills

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

const acquisitionConstraint = "ux_skill_acquisition"

type skillsRepository interface {
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]models.Skill, error)
	FindSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserAcquisitions(ctx context.Context, userID uuid.UUID) ([]acquisitionRow, error)
	InsertAcquisition(ctx context.Context, acq *models.SkillAcquisition) error
}

// SkillDTO is a catalog entry.
type SkillDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description *string   `json:"description,omitempty"`
	Level       int       `json:"level"`
	Icon        string    `json:"icon"`
	SortOrder   int       `json:"sort_order"`
}

// AcquisitionDTO is a certified skill of a user.
type AcquisitionDTO struct {
	ID          uuid.UUID `json:"id"`
	SkillID     uuid.UUID `json:"skill_id"`
	CertifiedBy uuid.UUID `json:"certified_by"`
	AcquiredAt  time.Time `json:"acquired_at"`
	Skill       SkillDTO  `json:"skill"`
}

type Service interface {
	ListSkills(ctx context.Context, organizationID uuid.UUID) ([]SkillDTO, error)
	UserSkills(ctx context.Context, userID uuid.UUID) ([]AcquisitionDTO, error)
	Acquire(ctx context.Context, userID, skillID, certifiedBy uuid.UUID) (*AcquisitionDTO, error)
}

type service struct {
	repo     skillsRepository
	notifier notifications.Sink
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the skills service. notifier may be nil.
func NewService(repo skillsRepository, notifier notifications.Sink, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("skills repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, notifier: notifier, logg: logg, now: time.Now}, nil
}

func (s *service) ListSkills(ctx context.Context, organizationID uuid.UUID) ([]SkillDTO, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	rows, err := s.repo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list skills")
	}
	out := make([]SkillDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, skillFromModel(r))
	}
	return out, nil
}

func (s *service) UserSkills(ctx context.Context, userID uuid.UUID) ([]AcquisitionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.UserAcquisitions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user skills")
	}
	out := make([]AcquisitionDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, AcquisitionDTO{
			ID:          r.ID,
			SkillID:     r.SkillID,
			CertifiedBy: r.CertifiedBy,
			AcquiredAt:  r.AcquiredAt,
			Skill: SkillDTO{
				ID:          r.SkillID,
				Name:        r.Name,
				Category:    r.Category,
				Description: r.Description,
				Level:       r.Level,
				Icon:        r.Icon,
			},
		})
	}
	return out, nil
}

func (s *service) Acquire(ctx context.Context, userID, skillID, certifiedBy uuid.UUID) (*AcquisitionDTO, error) {
	if userID == uuid.Nil || skillID == uuid.Nil || certifiedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user, skill and certifier required")
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is inactive")
	}
	skill, err := s.repo.FindSkill(ctx, skillID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "skill not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load skill")
	}

	acq := &models.SkillAcquisition{
		ID:          uuid.New(),
		UserID:      userID,
		SkillID:     skillID,
		CertifiedBy: certifiedBy,
		AcquiredAt:  s.now().UTC(),
	}
	if err := s.repo.InsertAcquisition(ctx, acq); err != nil {
		if db.IsUniqueViolation(err, acquisitionConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "skill already acquired").WithDetails(map[string]any{
				"user_id":  userID,
				"skill_id": skillID,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record skill acquisition")
	}

	s.notifyAcquired(ctx, acq, skill)
	return &AcquisitionDTO{
		ID:          acq.ID,
		SkillID:     acq.SkillID,
		CertifiedBy: acq.CertifiedBy,
		AcquiredAt:  acq.AcquiredAt,
		Skill:       skillFromModel(*skill),
	}, nil
}

func (s *service) notifyAcquired(ctx context.Context, acq *models.SkillAcquisition, skill *models.Skill) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Create(ctx, notifications.CreateInput{
		UserID: acq.UserID,
		Type:   enums.NotificationTypeSkillAcquired,
		Title:  "🏅 スキルを獲得しました",
		Body:   skill.Name,
		Data:   map[string]any{"skill_id": skill.ID, "certified_by": acq.CertifiedBy},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"skill_id": skill.ID.String(), "error": err.Error()}), "skill notification failed")
	}
}

func skillFromModel(m models.Skill) SkillDTO {
	return SkillDTO{
		ID:          m.ID,
		Name:        m.Name,
		Category:    m.Category,
		Description: m.Description,
		Level:       m.Level,
		Icon:        m.Icon,
		SortOrder:   m.SortOrder,
	}
}
