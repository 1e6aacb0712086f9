package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
)

// Repository persists attendance records.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

type recordRow struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StoreID   uuid.UUID
	ClockIn   time.Time
	ClockOut  *time.Time
	CreatedAt time.Time
	StoreName string
}

type workingRow struct {
	AttendanceID uuid.UUID
	UserID       uuid.UUID
	Nickname     string
	AvatarID     string
	Rank         int
	ClockIn      time.Time
}

type exportRow struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Nickname string
	ClockIn  time.Time
	ClockOut *time.Time
}

// LockUser takes a row lock on the user so concurrent clock-ins serialize.
func (r *Repository) LockUser(tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.ForUpdate(tx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOpen returns the user's open record regardless of the day it started.
func (r *Repository) FindOpen(tx *gorm.DB, userID uuid.UUID) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := tx.Where("user_id = ? AND clock_out IS NULL", userID).
		Order("clock_in DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) Insert(tx *gorm.DB, rec *models.AttendanceRecord) error {
	return tx.Create(rec).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	if err := r.DB(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close sets clock_out only while the record is still open and reports
// whether a row changed.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id = ? AND clock_out IS NULL", id).
		Update("clock_out", at)
	return res.RowsAffected == 1, res.Error
}

// CurrentSince returns the newest open record of userID started at or after since.
func (r *Repository) CurrentSince(ctx context.Context, userID uuid.UUID, since time.Time) (*recordRow, error) {
	var rows []recordRow
	err := r.DB(ctx).
		Table("attendance_records AS ar").
		Select("ar.id, ar.user_id, ar.store_id, ar.clock_in, ar.clock_out, ar.created_at, s.name AS store_name").
		Joins("JOIN stores s ON s.id = ar.store_id").
		Where("ar.user_id = ? AND ar.clock_out IS NULL AND ar.clock_in >= ?", userID, since).
		Order("ar.clock_in DESC").
		Limit(1).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Working lists members with an open record at storeID started at or after since.
func (r *Repository) Working(ctx context.Context, storeID uuid.UUID, since time.Time) ([]workingRow, error) {
	var rows []workingRow
	err := r.DB(ctx).
		Table("attendance_records AS ar").
		Select("ar.id AS attendance_id, u.id AS user_id, u.nickname, u.avatar_id, u.rank, ar.clock_in").
		Joins("JOIN users u ON u.id = ar.user_id").
		Where("ar.store_id = ? AND ar.clock_out IS NULL AND ar.clock_in >= ?", storeID, since).
		Order("ar.clock_in ASC").
		Scan(&rows).Error
	return rows, err
}

// History returns the user's newest records with store names.
func (r *Repository) History(ctx context.Context, userID uuid.UUID, limit int) ([]recordRow, error) {
	var rows []recordRow
	err := r.DB(ctx).
		Table("attendance_records AS ar").
		Select("ar.id, ar.user_id, ar.store_id, ar.clock_in, ar.clock_out, ar.created_at, s.name AS store_name").
		Joins("JOIN stores s ON s.id = ar.store_id").
		Where("ar.user_id = ?", userID).
		Order("ar.clock_in DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// Range returns store records with clock_in in [from, to), oldest first.
func (r *Repository) Range(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]exportRow, error) {
	var rows []exportRow
	err := r.DB(ctx).
		Table("attendance_records AS ar").
		Select("ar.id, ar.user_id, u.name, u.nickname, ar.clock_in, ar.clock_out").
		Joins("JOIN users u ON u.id = ar.user_id").
		Where("ar.store_id = ? AND ar.clock_in >= ? AND ar.clock_in < ?", storeID, from, to).
		Order("ar.clock_in ASC, u.nickname ASC").
		Scan(&rows).Error
	return rows, err
}

// ListStale returns open records that started before cutoff.
func (r *Repository) ListStale(tx *gorm.DB, cutoff time.Time) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := tx.Where("clock_out IS NULL AND clock_in < ?", cutoff).
		Order("clock_in ASC").
		Find(&rows).Error
	return rows, err
}

// CloseAt is Close bound to tx.
func (r *Repository) CloseAt(tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	res := tx.Model(&models.AttendanceRecord{}).
		Where("id = ? AND clock_out IS NULL", id).
		Update("clock_out", at)
	return res.RowsAffected == 1, res.Error
}
