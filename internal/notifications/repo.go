package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/pagination"
)

// Repository persists notifications. Reads and updates are always scoped to
// the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	// Page returns up to one row more than the page size so callers can
	// tell whether another page exists.
	Page(ctx context.Context, q pageQuery) ([]models.Notification, error)
	// MarkRead reports whether the notification exists for userID. An
	// already-read notification counts as found.
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type pageQuery struct {
	UserID     uuid.UUID
	After      *pagination.Cursor
	Limit      int
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository binds a Repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) owned(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func unread(q *gorm.DB) *gorm.DB {
	return q.Where("is_read = ?", false)
}

func readAt(at time.Time) map[string]any {
	return map[string]any{"is_read": true, "read_at": at}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) Page(ctx context.Context, q pageQuery) ([]models.Notification, error) {
	query := r.owned(ctx, q.UserID)
	if q.UnreadOnly {
		query = query.Scopes(unread)
	}
	var rows []models.Notification
	err := query.Scopes(pagination.Keyset(q.After, q.Limit)).Find(&rows).Error
	return rows, err
}

func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (bool, error) {
	res := r.owned(ctx, userID).Scopes(unread).Where("id = ?", notificationID).Updates(readAt(at))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var n int64
	if err := r.owned(ctx, userID).Where("id = ?", notificationID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.owned(ctx, userID).Scopes(unread).Updates(readAt(at))
	return res.RowsAffected, res.Error
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.owned(ctx, userID).Scopes(unread).Count(&n).Error
	return n, err
}

// DeleteReadBefore drops read notifications created before cutoff.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return r.purge(ctx, tx, "is_read = ? AND created_at < ?", true, cutoff)
}

// DeleteOlderThan drops every notification created before cutoff.
func (r *gormRepository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return r.purge(ctx, tx, "created_at < ?", cutoff)
}

func (r *gormRepository) purge(ctx context.Context, tx *gorm.DB, where string, args ...any) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Where(where, args...).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
