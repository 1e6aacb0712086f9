package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
	"github.com/shota3227/ludi/pkg/redis"
)

const (
	sendLockScope    = "points-send"
	maxMessageLength = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pointsRepository interface {
	LockUser(tx *gorm.DB, id uuid.UUID) (*models.User, error)
	FindUser(tx *gorm.DB, id uuid.UUID) (*models.User, error)
	FindCategory(tx *gorm.DB, id uuid.UUID) (*models.GoodJobCategory, error)
	SumSentSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int, error)
	Insert(tx *gorm.DB, entry *models.PointTransaction) error
	Summary(ctx context.Context, userID uuid.UUID) (summaryRow, error)
	History(ctx context.Context, userID uuid.UUID, direction enums.PointDirection) ([]historyRow, error)
	Categories(ctx context.Context, organizationID uuid.UUID) ([]models.GoodJobCategory, error)
	Rankings(ctx context.Context, storeID uuid.UUID, pointType enums.PointType, since time.Time) ([]rankingRow, error)
}

type sendLocker interface {
	Obtain(ctx context.Context, scope, id string, ttl time.Duration) (redis.ReleaseFunc, error)
}

// Service is the point ledger.
type Service interface {
	SendPoints(ctx context.Context, input SendInput) (*TransactionDTO, error)
	RemainingDailyAllowance(ctx context.Context, userID uuid.UUID) (int, error)
	Allowance(ctx context.Context, userID uuid.UUID) (*AllowanceDTO, error)
	GetPointSummary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error)
	History(ctx context.Context, userID uuid.UUID, direction enums.PointDirection) ([]TransactionDTO, error)
	Categories(ctx context.Context, organizationID uuid.UUID) ([]CategoryDTO, error)
	Rankings(ctx context.Context, storeID uuid.UUID, pointType enums.PointType, since *time.Time) ([]RankingEntryDTO, error)
}

// ServiceParams bundles ledger dependencies. Locker is optional; without it
// the database row lock alone serializes a sender's transfers.
type ServiceParams struct {
	Repo     pointsRepository
	DB       txRunner
	Notifier notifications.Sink
	Locker   sendLocker
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
	Config   config.PointsConfig
}

type service struct {
	repo     pointsRepository
	db       txRunner
	notifier notifications.Sink
	locker   sendLocker
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	limit    int
	lockTTL  time.Duration
	loc      *time.Location
	now      func() time.Time
}

// NewService validates dependencies and builds the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("points repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	loc, err := params.Config.Location()
	if err != nil {
		return nil, err
	}
	limit := params.Config.DailyLimit
	if limit <= 0 {
		return nil, fmt.Errorf("daily point limit must be positive")
	}
	lockTTL := params.Config.SendLockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		notifier: params.Notifier,
		locker:   params.Locker,
		metrics:  params.Metrics,
		logg:     logg,
		limit:    limit,
		lockTTL:  lockTTL,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *service) SendPoints(ctx context.Context, input SendInput) (*TransactionDTO, error) {
	if err := validateSend(input); err != nil {
		s.metrics.PointsRejected("validation")
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Obtain(ctx, sendLockScope, input.FromUserID.String(), s.lockTTL)
		if err != nil {
			if errors.Is(err, redis.ErrLockNotObtained) {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "another point transfer from this user is in progress")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire send lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release point send lock failed")
			}
		}()
	}

	now := s.now().UTC()
	dayStart, _ := dayBounds(now, s.loc)
	entry := &models.PointTransaction{
		ID:                uuid.New(),
		FromUserID:        input.FromUserID,
		ToUserID:          input.ToUserID,
		PointType:         input.Type,
		Points:            input.Points,
		GoodJobCategoryID: input.CategoryID,
		GoodJobFreeText:   trimmed(input.FreeText),
		Message:           trimmed(input.Message),
		CreatedAt:         now,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		sender, err := s.repo.LockUser(tx, input.FromUserID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sender not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock sender")
		}
		if !sender.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sender is inactive")
		}

		recipient, err := s.repo.FindUser(tx, input.ToUserID)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipient")
		}
		if recipient == nil || !recipient.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "recipient not found or inactive")
		}

		if input.CategoryID != nil {
			if _, err := s.repo.FindCategory(tx, *input.CategoryID); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeValidation, "goodjob category not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load goodjob category")
			}
		}

		sent, err := s.repo.SumSentSince(ctx, tx, input.FromUserID, dayStart)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum points sent today")
		}
		if input.Points > remaining(s.limit, sent) {
			return pkgerrors.New(pkgerrors.CodeValidation, "daily point allowance exceeded").WithDetails(map[string]int{
				"remaining":   remaining(s.limit, sent),
				"requested":   input.Points,
				"daily_limit": s.limit,
			})
		}

		if err := s.repo.Insert(tx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append point transaction")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit point transaction")
		}
		s.metrics.PointsRejected(rejectReason(err))
		return nil, err
	}

	s.metrics.PointsSent(string(input.Type), input.Points)
	s.notifyRecipient(ctx, entry)
	return transactionFromModel(entry), nil
}

// notifyRecipient runs after commit; the ledger entry stands regardless.
func (s *service) notifyRecipient(ctx context.Context, entry *models.PointTransaction) {
	title := "💖 サンクスポイントを受け取りました"
	if entry.PointType == enums.PointTypeGoodJob {
		title = "⭐ Good Jobを受け取りました"
	}
	_, err := s.notifier.Create(ctx, notifications.CreateInput{
		UserID: entry.ToUserID,
		Type:   enums.NotificationTypePointReceived,
		Title:  title,
		Body:   fmt.Sprintf("%dポイント受け取りました", entry.Points),
		Data: map[string]any{
			"transaction_id": entry.ID,
			"from_user_id":   entry.FromUserID,
			"points":         entry.Points,
			"point_type":     entry.PointType,
		},
	})
	if err != nil {
		s.metrics.NotificationFailed()
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"transaction_id": entry.ID.String(),
			"recipient_id":   entry.ToUserID.String(),
		})
		s.logg.Error(logCtx, "point notification failed", err)
	}
}

func (s *service) RemainingDailyAllowance(ctx context.Context, userID uuid.UUID) (int, error) {
	allowance, err := s.Allowance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return allowance.Remaining, nil
}

func (s *service) Allowance(ctx context.Context, userID uuid.UUID) (*AllowanceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	start, next := dayBounds(s.now(), s.loc)
	sent, err := s.repo.SumSentSince(ctx, nil, userID, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum points sent today")
	}
	return &AllowanceDTO{
		DailyLimit: s.limit,
		SentToday:  sent,
		Remaining:  remaining(s.limit, sent),
		ResetsAt:   next,
	}, nil
}

func (s *service) GetPointSummary(ctx context.Context, userID uuid.UUID) (*SummaryDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	row, err := s.repo.Summary(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize points")
	}
	return &SummaryDTO{
		UserID:          userID,
		ThanksSent:      int(row.ThanksSent),
		ThanksReceived:  int(row.ThanksReceived),
		GoodJobSent:     int(row.GoodjobSent),
		GoodJobReceived: int(row.GoodjobReceived),
	}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, direction enums.PointDirection) ([]TransactionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.History(ctx, userID, direction)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load point history")
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionFromRow(row))
	}
	return out, nil
}

func (s *service) Categories(ctx context.Context, organizationID uuid.UUID) ([]CategoryDTO, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	rows, err := s.repo.Categories(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list goodjob categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromModel(row))
	}
	return out, nil
}

func (s *service) Rankings(ctx context.Context, storeID uuid.UUID, pointType enums.PointType, since *time.Time) ([]RankingEntryDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !pointType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid point type")
	}
	from := time.Time{}
	if since != nil {
		from = since.UTC()
	}
	rows, err := s.repo.Rankings(ctx, storeID, pointType, from)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rankings")
	}
	out := make([]RankingEntryDTO, 0, len(rows))
	for i, row := range rows {
		out = append(out, RankingEntryDTO{
			Position: i + 1,
			UserID:   row.UserID,
			Nickname: row.Nickname,
			AvatarID: row.AvatarID,
			Rank:     row.Rank,
			Points:   int(row.Points),
		})
	}
	return out, nil
}

func validateSend(input SendInput) error {
	if input.FromUserID == uuid.Nil || input.ToUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sender and recipient required")
	}
	if input.FromUserID == input.ToUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot send points to yourself")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid point type")
	}
	if input.Points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points must be positive")
	}
	if input.Type != enums.PointTypeGoodJob && (input.CategoryID != nil || input.FreeText != nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "goodjob category and free text only apply to goodjob points")
	}
	if input.Message != nil && len([]rune(*input.Message)) > maxMessageLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "message too long")
	}
	return nil
}

func rejectReason(err error) string {
	typed := pkgerrors.As(err)
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		if typed.Details() != nil {
			return "allowance"
		}
		return "validation"
	case pkgerrors.CodeDependency:
		return "dependency"
	default:
		return strings.ToLower(string(typed.Code()))
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
