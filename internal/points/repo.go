package points

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

const historyLimit = 50

// Repository reads and appends the point ledger.
type Repository struct {
	repo.Base
}

// NewRepository binds the ledger repository to a GORM connection.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

type summaryRow struct {
	ThanksSent      int64
	ThanksReceived  int64
	GoodjobSent     int64
	GoodjobReceived int64
}

type historyRow struct {
	ID                uuid.UUID
	FromUserID        uuid.UUID
	ToUserID          uuid.UUID
	PointType         enums.PointType
	Points            int
	GoodjobCategoryID *uuid.UUID
	GoodjobFreeText   *string
	Message           *string
	CreatedAt         time.Time
	FromNickname      string
	FromAvatarID      string
	ToNickname        string
	ToAvatarID        string
	CategoryName      *string
	CategoryIcon      *string
}

type rankingRow struct {
	UserID   uuid.UUID
	Nickname string
	AvatarID string
	Rank     int
	Points   int64
}

// LockUser loads a user row holding a write lock until tx ends.
func (r *Repository) LockUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.ForUpdate(tx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUser loads a user row inside tx.
func (r *Repository) FindUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindCategory loads a goodjob category inside tx.
func (r *Repository) FindCategory(tx *gorm.DB, id uuid.UUID) (*models.GoodJobCategory, error) {
	var category models.GoodJobCategory
	if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// SumSentSince totals points sent by userID at or after since. A nil tx
// reads outside any transaction.
func (r *Repository) SumSentSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int, error) {
	var total int64
	err := r.conn(ctx, tx).
		Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("from_user_id = ? AND created_at >= ?", userID, since).
		Scan(&total).Error
	return int(total), err
}

// Insert appends a ledger entry.
func (r *Repository) Insert(tx *gorm.DB, entry *models.PointTransaction) error {
	return tx.Create(entry).Error
}

// Summary folds the ledger for userID in one aggregate statement.
func (r *Repository) Summary(ctx context.Context, userID uuid.UUID) (summaryRow, error) {
	var row summaryRow
	err := r.DB(ctx).
		Model(&models.PointTransaction{}).
		Select(`
COALESCE(SUM(CASE WHEN from_user_id = @user AND point_type = @thanks THEN points ELSE 0 END), 0) AS thanks_sent,
COALESCE(SUM(CASE WHEN to_user_id = @user AND point_type = @thanks THEN points ELSE 0 END), 0) AS thanks_received,
COALESCE(SUM(CASE WHEN from_user_id = @user AND point_type = @goodjob THEN points ELSE 0 END), 0) AS goodjob_sent,
COALESCE(SUM(CASE WHEN to_user_id = @user AND point_type = @goodjob THEN points ELSE 0 END), 0) AS goodjob_received`,
			map[string]any{"user": userID, "thanks": enums.PointTypeThanks, "goodjob": enums.PointTypeGoodJob}).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Scan(&row).Error
	return row, err
}

// History returns the newest ledger entries touching userID.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, direction enums.PointDirection) ([]historyRow, error) {
	query := r.DB(ctx).
		Table("point_transactions AS pt").
		Select(`pt.id, pt.from_user_id, pt.to_user_id, pt.point_type, pt.points,
pt.goodjob_category_id, pt.goodjob_free_text, pt.message, pt.created_at,
fu.nickname AS from_nickname, fu.avatar_id AS from_avatar_id,
tu.nickname AS to_nickname, tu.avatar_id AS to_avatar_id,
gc.name AS category_name, gc.icon AS category_icon`).
		Joins("JOIN users fu ON fu.id = pt.from_user_id").
		Joins("JOIN users tu ON tu.id = pt.to_user_id").
		Joins("LEFT JOIN goodjob_categories gc ON gc.id = pt.goodjob_category_id")

	switch direction {
	case enums.PointDirectionSent:
		query = query.Where("pt.from_user_id = ?", userID)
	case enums.PointDirectionReceived:
		query = query.Where("pt.to_user_id = ?", userID)
	default:
		query = query.Where("pt.from_user_id = ? OR pt.to_user_id = ?", userID, userID)
	}

	var rows []historyRow
	err := query.Order("pt.created_at DESC, pt.id DESC").Limit(historyLimit).Scan(&rows).Error
	return rows, err
}

// Categories lists goodjob categories of an organization.
func (r *Repository) Categories(ctx context.Context, organizationID uuid.UUID) ([]models.GoodJobCategory, error) {
	var rows []models.GoodJobCategory
	err := r.DB(ctx).
		Where("organization_id = ?", organizationID).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

// Rankings totals points of pointType received since the given instant by
// each active member of a store.
func (r *Repository) Rankings(ctx context.Context, storeID uuid.UUID, pointType enums.PointType, since time.Time) ([]rankingRow, error) {
	var rows []rankingRow
	err := r.DB(ctx).
		Table("users AS u").
		Select("u.id AS user_id, u.nickname, u.avatar_id, u.rank, COALESCE(SUM(pt.points), 0) AS points").
		Joins("LEFT JOIN point_transactions pt ON pt.to_user_id = u.id AND pt.point_type = ? AND pt.created_at >= ?", pointType, since).
		Where("u.primary_store_id = ? AND u.is_active = ?", storeID, true).
		Group("u.id, u.nickname, u.avatar_id, u.rank").
		Order("points DESC, u.nickname ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.DB(ctx)
}
