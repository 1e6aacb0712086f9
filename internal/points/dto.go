package points

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

// SendInput describes a single point transfer.
type SendInput struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Type       enums.PointType
	Points     int
	Message    *string
	CategoryID *uuid.UUID
	FreeText   *string
}

// UserRef is the short profile shown next to ledger entries.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	AvatarID string    `json:"avatar_id"`
}

// CategoryRef is the short category shown next to goodjob entries.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon string    `json:"icon"`
}

// TransactionDTO is a ledger entry in API responses.
type TransactionDTO struct {
	ID                uuid.UUID       `json:"id"`
	FromUserID        uuid.UUID       `json:"from_user_id"`
	ToUserID          uuid.UUID       `json:"to_user_id"`
	PointType         enums.PointType `json:"point_type"`
	Points            int             `json:"points"`
	GoodJobCategoryID *uuid.UUID      `json:"goodjob_category_id,omitempty"`
	GoodJobFreeText   *string         `json:"goodjob_free_text,omitempty"`
	Message           *string         `json:"message,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	FromUser          *UserRef        `json:"from_user,omitempty"`
	ToUser            *UserRef        `json:"to_user,omitempty"`
	Category          *CategoryRef    `json:"goodjob_category,omitempty"`
}

// SummaryDTO is the per-user fold of the ledger.
type SummaryDTO struct {
	UserID          uuid.UUID `json:"user_id"`
	ThanksSent      int       `json:"thanks_sent"`
	ThanksReceived  int       `json:"thanks_received"`
	GoodJobSent     int       `json:"goodjob_sent"`
	GoodJobReceived int       `json:"goodjob_received"`
}

// AllowanceDTO reports today's sending budget.
type AllowanceDTO struct {
	DailyLimit int       `json:"daily_limit"`
	SentToday  int       `json:"sent_today"`
	Remaining  int       `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at"`
}

// CategoryDTO is a goodjob category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	SortOrder   int       `json:"sort_order"`
}

// RankingEntryDTO is one row of a store leaderboard.
type RankingEntryDTO struct {
	Position int       `json:"position"`
	UserID   uuid.UUID `json:"user_id"`
	Nickname string    `json:"nickname"`
	AvatarID string    `json:"avatar_id"`
	Rank     int       `json:"rank"`
	Points   int       `json:"points"`
}

func transactionFromModel(m *models.PointTransaction) *TransactionDTO {
	return &TransactionDTO{
		ID:                m.ID,
		FromUserID:        m.FromUserID,
		ToUserID:          m.ToUserID,
		PointType:         m.PointType,
		Points:            m.Points,
		GoodJobCategoryID: m.GoodJobCategoryID,
		GoodJobFreeText:   m.GoodJobFreeText,
		Message:           m.Message,
		CreatedAt:         m.CreatedAt,
	}
}

func transactionFromRow(r historyRow) TransactionDTO {
	dto := TransactionDTO{
		ID:                r.ID,
		FromUserID:        r.FromUserID,
		ToUserID:          r.ToUserID,
		PointType:         r.PointType,
		Points:            r.Points,
		GoodJobCategoryID: r.GoodjobCategoryID,
		GoodJobFreeText:   r.GoodjobFreeText,
		Message:           r.Message,
		CreatedAt:         r.CreatedAt,
		FromUser:          &UserRef{ID: r.FromUserID, Nickname: r.FromNickname, AvatarID: r.FromAvatarID},
		ToUser:            &UserRef{ID: r.ToUserID, Nickname: r.ToNickname, AvatarID: r.ToAvatarID},
	}
	if r.GoodjobCategoryID != nil && r.CategoryName != nil {
		icon := ""
		if r.CategoryIcon != nil {
			icon = *r.CategoryIcon
		}
		dto.Category = &CategoryRef{ID: *r.GoodjobCategoryID, Name: *r.CategoryName, Icon: icon}
	}
	return dto
}

func categoryFromModel(m models.GoodJobCategory) CategoryDTO {
	return CategoryDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		SortOrder:   m.SortOrder,
	}
}
