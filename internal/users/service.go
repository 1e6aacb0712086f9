package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/pagination"
	"github.com/shota3227/ludi/pkg/security"
)

const (
	tempPasswordLength = 16
	maxNicknameLength  = 50
	maxFreeTextLength  = 1000
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByAuthID(ctx context.Context, authID string) (*models.User, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.User, error)
	List(ctx context.Context, params listUsersParams) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service exposes profile reads, profile edits and account administration.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	GetByAuthID(ctx context.Context, authID string) (*UserDTO, error)
	ListStoreMembers(ctx context.Context, storeID uuid.UUID) ([]UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[UserDTO], error)
	Create(ctx context.Context, input CreateUserInput) (*CreateUserResult, error)
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	SetActive(ctx context.Context, userID uuid.UUID, active bool) (*UserDTO, error)
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo     userRepository
	Stores   storeLookup
	Provider identity.Provider
	Logger   *logger.Logger
}

type service struct {
	repo     userRepository
	stores   storeLookup
	provider identity.Provider
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and builds the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		stores:   params.Stores,
		provider: params.Provider,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) GetByAuthID(ctx context.Context, authID string) (*UserDTO, error) {
	if strings.TrimSpace(authID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth id required")
	}
	user, err := s.repo.FindByAuthID(ctx, authID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return FromModel(user), nil
}

func (s *service) ListStoreMembers(ctx context.Context, storeID uuid.UUID) ([]UserDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store members")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	updates := map[string]any{}
	if input.Nickname != nil {
		nickname := strings.TrimSpace(*input.Nickname)
		if nickname == "" || len([]rune(nickname)) > maxNicknameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "nickname must be 1-50 characters")
		}
		updates["nickname"] = nickname
	}
	if input.AvatarID != nil {
		avatar := strings.TrimSpace(*input.AvatarID)
		if avatar == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar id cannot be empty")
		}
		updates["avatar_id"] = avatar
	}
	freeText := map[string]*string{
		"profile_text":     input.ProfileText,
		"strengths":        input.Strengths,
		"weaknesses":       input.Weaknesses,
		"hobbies":          input.Hobbies,
		"personality_type": input.PersonalityType,
	}
	for column, value := range freeText {
		if value == nil {
			continue
		}
		if len([]rune(*value)) > maxFreeTextLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, column+" is too long")
		}
		updates[column] = nullableText(*value)
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID)
	}
	updates["updated_at"] = s.now().UTC()

	found, err := s.repo.Update(ctx, userID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.Get(ctx, userID)
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[UserDTO], error) {
	query := listUsersParams{
		Limit:           params.Limit,
		StoreID:         params.StoreID,
		Role:            params.Role,
		IncludeInactive: params.IncludeInactive,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.Trim(dtos, params.Limit, func(u UserDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return &page, nil
}

func (s *service) Create(ctx context.Context, input CreateUserInput) (*CreateUserResult, error) {
	email := identity.NormalizeEmail(input.Email)
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if err := s.validateNewUser(ctx, email, input.Name, input.PrimaryStoreID); err != nil {
		return nil, err
	}

	password := input.Password
	generated := ""
	if password == "" {
		temp, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		password, generated = temp, temp
	} else if err := security.ValidatePassword(password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	account, err := s.provider.CreateUser(ctx, email, password)
	if err != nil {
		return nil, identity.MapError(err, "create provider account")
	}

	user, err := s.provision(ctx, *account, email, input.Name, input.Nickname, input.Role, input.PrimaryStoreID)
	if err != nil {
		return nil, err
	}
	return &CreateUserResult{User: *FromModel(user), TemporaryPassword: generated}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := identity.NormalizeEmail(input.Email)
	if err := s.validateNewUser(ctx, email, input.Name, input.PrimaryStoreID); err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(input.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	sess, err := s.provider.SignUp(ctx, email, input.Password)
	if err != nil {
		return nil, identity.MapError(err, "provider sign up")
	}

	user, err := s.provision(ctx, sess.Account, email, input.Name, input.Nickname, enums.UserRoleStaff, input.PrimaryStoreID)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{User: *FromModel(user), Session: *sess}, nil
}

func (s *service) SetActive(ctx context.Context, userID uuid.UUID, active bool) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	found, err := s.repo.Update(ctx, userID, map[string]any{
		"is_active":  active,
		"updated_at": s.now().UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.Get(ctx, userID)
}

func (s *service) validateNewUser(ctx context.Context, email, name string, storeID uuid.UUID) error {
	if email == "" || !strings.Contains(email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "primary store required")
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "primary store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "primary store is inactive")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	return nil
}

// provision writes the application row for a provider account that already
// exists. A failure here leaves the provider account orphaned; it is
// reported, never rolled back.
func (s *service) provision(ctx context.Context, account identity.Account, email, name, nickname string, role enums.UserRole, storeID uuid.UUID) (*models.User, error) {
	now := s.now().UTC()
	name = strings.TrimSpace(name)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = name
	}
	authID := account.AuthID
	user := &models.User{
		ID:             uuid.New(),
		AuthID:         &authID,
		Email:          email,
		Name:           name,
		Nickname:       nickname,
		Role:           role,
		PrimaryStoreID: &storeID,
		AvatarID:       models.DefaultAvatarID,
		Rank:           1,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		msg := fmt.Sprintf("identity account %s (%s) was created but the user record was not; delete the account from the identity provider manually", account.AuthID, email)
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{"auth_id": account.AuthID, "email": email}), "orphaned identity account", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeConsistency, err, msg).WithDetails(map[string]string{
			"auth_id": account.AuthID,
			"email":   email,
		})
	}
	return user, nil
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}

func nullableText(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
