package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/pagination"
)

// stubRepo returns canned values and records what the service passed in.
type stubRepo struct {
	created  *models.Notification
	query    pageQuery
	rows     []models.Notification
	found    bool
	affected int64
	err      error
}

func (s *stubRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, n *models.Notification) error {
	s.created = n
	return s.err
}

func (s *stubRepo) Page(_ context.Context, q pageQuery) ([]models.Notification, error) {
	s.query = q
	return s.rows, s.err
}

func (s *stubRepo) MarkRead(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return s.found, s.err
}

func (s *stubRepo) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return s.affected, s.err
}

func (s *stubRepo) CountUnread(context.Context, uuid.UUID) (int64, error) {
	return s.affected, s.err
}

func (s *stubRepo) DeleteReadBefore(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) DeleteOlderThan(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.As(err).Code()
}

func TestCreateStoresUnreadNotification(t *testing.T) {
	repo := &stubRepo{}
	userID := uuid.New()

	n, err := newServiceWithRepo(repo).Create(context.Background(), CreateInput{
		UserID: userID,
		Type:   enums.NotificationTypePointReceived,
		Title:  "title",
		Body:   "body",
		Data:   map[string]any{"points": 5},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, userID, repo.created.UserID)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.JSONEq(t, `{"points":5}`, string(repo.created.Data))
	assert.False(t, repo.created.IsRead)
}

func TestCreateRejects(t *testing.T) {
	tests := []struct {
		name  string
		input CreateInput
		repo  *stubRepo
		want  pkgerrors.Code
	}{
		{"missing user", CreateInput{Type: enums.NotificationTypeSystem, Title: "t"}, &stubRepo{}, pkgerrors.CodeValidation},
		{"unknown type", CreateInput{UserID: uuid.New(), Type: "promo", Title: "t"}, &stubRepo{}, pkgerrors.CodeValidation},
		{"blank title", CreateInput{UserID: uuid.New(), Type: enums.NotificationTypeSystem, Title: "  "}, &stubRepo{}, pkgerrors.CodeValidation},
		{"store failure", CreateInput{UserID: uuid.New(), Type: enums.NotificationTypeSystem, Title: "t"}, &stubRepo{err: errors.New("db down")}, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newServiceWithRepo(tt.repo).Create(context.Background(), tt.input)
			assert.Equal(t, tt.want, codeOf(err))
		})
	}
}

func TestListTrimsAndEncodesCursor(t *testing.T) {
	now := time.Now().UTC()
	rows := []models.Notification{
		{ID: uuid.New(), CreatedAt: now},
		{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)},
	}
	repo := &stubRepo{rows: rows}

	page, err := newServiceWithRepo(repo).List(context.Background(), ListParams{UserID: uuid.New(), Limit: 1, UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.query.Limit)
	assert.True(t, repo.query.UnreadOnly)
	require.Len(t, page.Items, 1)

	next, err := pagination.ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[0].ID, next.ID)
}

func TestListRejectsBadCursor(t *testing.T) {
	_, err := newServiceWithRepo(&stubRepo{}).List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestMarkRead(t *testing.T) {
	svc := newServiceWithRepo(&stubRepo{found: true})
	assert.NoError(t, svc.MarkRead(context.Background(), uuid.New(), uuid.New()))

	svc = newServiceWithRepo(&stubRepo{found: false})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(svc.MarkRead(context.Background(), uuid.New(), uuid.New())))
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(svc.MarkRead(context.Background(), uuid.New(), uuid.Nil)))
}

func TestMarkAllReadAndCount(t *testing.T) {
	svc := newServiceWithRepo(&stubRepo{affected: 3})

	updated, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	_, err = newServiceWithRepo(&stubRepo{err: errors.New("boom")}).UnreadCount(context.Background(), uuid.New())
	assert.Equal(t, pkgerrors.CodeDependency, codeOf(err))
}
