package skills

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/internal/repo/sqlitetest"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

func seedSkill(t *testing.T, conn *gorm.DB, org uuid.UUID, name, category string, order int) models.Skill {
	t.Helper()
	skill := models.Skill{ID: uuid.New(), OrganizationID: org, Name: name, Category: category, Level: 1, Icon: "⭐", SortOrder: order}
	require.NoError(t, conn.Create(&skill).Error)
	return skill
}

func TestListSkillsOrdering(t *testing.T) {
	conn := sqlitetest.Open(t)
	org := uuid.New()
	seedSkill(t, conn, org, "Latte art", "drinks", 2)
	seedSkill(t, conn, org, "Espresso", "drinks", 1)
	seedSkill(t, conn, org, "Register", "counter", 5)
	seedSkill(t, conn, uuid.New(), "Other org", "counter", 0)

	svc, err := NewService(NewRepository(conn), nil, nil)
	require.NoError(t, err)

	list, err := svc.ListSkills(context.Background(), org)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Register", list[0].Name)
	assert.Equal(t, "Espresso", list[1].Name)
	assert.Equal(t, "Latte art", list[2].Name)
}

func TestAcquireOnceAndNotify(t *testing.T) {
	conn := sqlitetest.Open(t)
	store := sqlitetest.Store(t, conn, "Kyoto")
	staff := sqlitetest.User(t, conn, store, "hana")
	manager := sqlitetest.User(t, conn, store, "lead", sqlitetest.WithRole(enums.UserRoleManager))
	skill := seedSkill(t, conn, store.OrganizationID, "Espresso", "drinks", 1)

	notifs, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), notifs, nil)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	acq, err := svc.Acquire(ctx, staff.ID, skill.ID, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", acq.Skill.Name)

	_, err = svc.Acquire(ctx, staff.ID, skill.ID, manager.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	mine, err := svc.UserSkills(ctx, staff.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, skill.ID, mine[0].SkillID)
	assert.Equal(t, manager.ID, mine[0].CertifiedBy)

	unread, err := notifs.UnreadCount(ctx, staff.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestAcquireUnknownReferences(t *testing.T) {
	conn := sqlitetest.Open(t)
	store := sqlitetest.Store(t, conn, "Kobe")
	staff := sqlitetest.User(t, conn, store, "mei")
	svc, err := NewService(NewRepository(conn), nil, nil)
	require.NoError(t, err)

	_, err = svc.Acquire(context.Background(), staff.ID, uuid.New(), staff.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Acquire(context.Background(), uuid.New(), uuid.New(), staff.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
