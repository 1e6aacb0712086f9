package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/internal/repo/sqlitetest"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

type fakeProvider struct {
	createFn func(ctx context.Context, email, password string) (*identity.Account, error)
	signUpFn func(ctx context.Context, email, password string) (*identity.Session, error)
	calls    int
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*identity.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string) (*identity.Session, error) {
	f.calls++
	return f.signUpFn(ctx, email, password)
}

func (f *fakeProvider) CurrentUser(context.Context, string) (*identity.Account, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) CreateUser(ctx context.Context, email, password string) (*identity.Account, error) {
	f.calls++
	return f.createFn(ctx, email, password)
}

func (f *fakeProvider) ListUsers(context.Context) ([]identity.Account, error) {
	return nil, errors.New("not implemented")
}

// failingCreateRepo lets the provider write succeed and the database write fail.
type failingCreateRepo struct {
	*Repository
	err error
}

func (r failingCreateRepo) Create(context.Context, *models.User) error {
	return r.err
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	repo     *Repository
	provider *fakeProvider
	store    *models.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := sqlitetest.Open(t)
	store := sqlitetest.Store(t, conn, "Shinjuku")
	provider := &fakeProvider{
		createFn: func(_ context.Context, email, _ string) (*identity.Account, error) {
			return &identity.Account{AuthID: "uid-" + email, Email: email}, nil
		},
		signUpFn: func(_ context.Context, email, _ string) (*identity.Session, error) {
			return &identity.Session{Account: identity.Account{AuthID: "uid-" + email, Email: email}, IDToken: "tok"}, nil
		},
	}
	repository := NewRepository(conn)
	svc, err := NewService(ServiceParams{Repo: repository, Stores: stores.NewRepository(conn), Provider: provider})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, repo: repository, provider: provider, store: store}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreateUserProvisionsDefaults(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), CreateUserInput{
		Email:          "Aoi@Example.com",
		Password:       "password-1",
		Name:           "Aoi Tanaka",
		Role:           enums.UserRoleManager,
		PrimaryStoreID: f.store.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "aoi@example.com", result.User.Email)
	assert.Equal(t, "Aoi Tanaka", result.User.Nickname)
	assert.Equal(t, models.DefaultAvatarID, result.User.AvatarID)
	assert.Equal(t, 1, result.User.Rank)
	assert.True(t, result.User.IsActive)
	assert.Empty(t, result.TemporaryPassword)

	stored, err := f.repo.FindByAuthID(context.Background(), "uid-aoi@example.com")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, stored.ID)
}

func TestCreateUserGeneratesTemporaryPassword(t *testing.T) {
	f := newFixture(t)
	var used string
	f.provider.createFn = func(_ context.Context, email, password string) (*identity.Account, error) {
		used = password
		return &identity.Account{AuthID: "uid-1", Email: email}, nil
	}

	result, err := f.svc.Create(context.Background(), CreateUserInput{
		Email: "ren@example.com", Name: "Ren", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID,
	})
	require.NoError(t, err)
	assert.Len(t, result.TemporaryPassword, tempPasswordLength)
	assert.Equal(t, used, result.TemporaryPassword)
}

func TestCreateUserValidationNeverReachesProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []CreateUserInput{
		{Email: "bad-email", Name: "X", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID},
		{Email: "x@example.com", Name: " ", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID},
		{Email: "x@example.com", Name: "X", Role: "owner", PrimaryStoreID: f.store.ID},
		{Email: "x@example.com", Name: "X", Role: enums.UserRoleStaff, PrimaryStoreID: uuid.New()},
		{Email: "x@example.com", Name: "X", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID, Password: "short"},
	}
	for _, input := range cases {
		_, err := f.svc.Create(ctx, input)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "input %+v", input)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
	assert.Zero(t, f.provider.calls)
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	input := CreateUserInput{Email: "dup@example.com", Password: "password-1", Name: "Dup", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID}

	_, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, 1, f.provider.calls)
}

func TestCreateUserProviderFailureIsAdapterFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.createFn = func(context.Context, string, string) (*identity.Account, error) {
		return nil, errors.New("provider unavailable")
	}

	_, err := f.svc.Create(context.Background(), CreateUserInput{
		Email: "x@example.com", Password: "password-1", Name: "X", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID,
	})
	assert.Equal(t, pkgerrors.CategoryAdapter, pkgerrors.CategoryOf(err))

	_, lookupErr := f.repo.FindByEmail(context.Background(), "x@example.com")
	assert.Error(t, lookupErr)
}

func TestCreateUserDatabaseFailureIsConsistencyFailure(t *testing.T) {
	f := newFixture(t)
	svc, err := NewService(ServiceParams{
		Repo:     failingCreateRepo{Repository: f.repo, err: errors.New("disk full")},
		Stores:   stubStores{store: f.store},
		Provider: f.provider,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Email: "orphan@example.com", Password: "password-1", Name: "Orphan", Role: enums.UserRoleStaff, PrimaryStoreID: f.store.ID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryConsistency, pkgerrors.CategoryOf(err))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConsistency, typed.Code())
	assert.True(t, strings.Contains(typed.Message(), "uid-orphan@example.com"), typed.Message())
}

type stubStores struct {
	store *models.Store
}

func (s stubStores) FindByID(context.Context, uuid.UUID) (*models.Store, error) {
	return s.store, nil
}

func TestRegisterCreatesStaff(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Register(context.Background(), RegisterInput{
		Email: "yui@example.com", Password: "password-1", Name: "Yui", Nickname: "yuyu", PrimaryStoreID: f.store.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleStaff, result.User.Role)
	assert.Equal(t, "yuyu", result.User.Nickname)
	assert.Equal(t, "tok", result.Session.IDToken)
}

func TestUpdateProfileOnlyTouchesEditableFields(t *testing.T) {
	f := newFixture(t)
	user := sqlitetest.User(t, f.conn, f.store, "kai", sqlitetest.WithRank(4))

	nickname := "  Kai-kun "
	hobbies := "climbing"
	empty := ""
	dto, err := f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Nickname:    &nickname,
		Hobbies:     &hobbies,
		ProfileText: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kai-kun", dto.Nickname)
	require.NotNil(t, dto.Hobbies)
	assert.Equal(t, "climbing", *dto.Hobbies)
	assert.Nil(t, dto.ProfileText)
	assert.Equal(t, 4, dto.Rank)
	assert.Equal(t, enums.UserRoleStaff, dto.Role)

	blank := " "
	_, err = f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Nickname: &blank})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListStoreMembersOrdersByRank(t *testing.T) {
	f := newFixture(t)
	conn := f.conn
	sqlitetest.User(t, conn, f.store, "low", sqlitetest.WithRank(1))
	sqlitetest.User(t, conn, f.store, "high", sqlitetest.WithRank(5))
	sqlitetest.User(t, conn, f.store, "gone", sqlitetest.WithRank(9), sqlitetest.Inactive())

	members, err := f.svc.ListStoreMembers(context.Background(), f.store.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "high", members[0].Nickname)
	assert.Equal(t, "low", members[1].Nickname)
}

func TestListPaginatesAndSetActive(t *testing.T) {
	f := newFixture(t)
	conn := f.conn
	for _, name := range []string{"a", "b", "c"} {
		sqlitetest.User(t, conn, f.store, name)
	}

	first, err := f.svc.List(context.Background(), ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(context.Background(), ListParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	target := second.Items[0].ID
	dto, err := f.svc.SetActive(context.Background(), target, false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	active, err := f.svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Len(t, active.Items, 2)

	all, err := f.svc.List(context.Background(), ListParams{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	_, err = f.svc.SetActive(context.Background(), uuid.New(), true)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
