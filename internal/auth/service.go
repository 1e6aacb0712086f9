// Package auth turns identity provider credentials into application
// sessions: a short-lived JWT access token plus a Redis-backed refresh token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/internal/users"
	pkgAuth "github.com/shota3227/ludi/pkg/auth"
	"github.com/shota3227/ludi/pkg/auth/session"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Exchange(ctx context.Context, req ExchangeRequest) (*TokenResponse, error)
	SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type userRepository interface {
	FindByAuthID(ctx context.Context, authID string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type registrar interface {
	Register(ctx context.Context, input users.RegisterInput) (*users.RegisterResult, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Provider       identity.Provider
	UserRepo       userRepository
	Users          registrar
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
}

type service struct {
	provider identity.Provider
	users    userRepository
	register registrar
	session  sessionManager
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users service is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		provider: params.Provider,
		users:    params.UserRepo,
		register: params.Users,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	sess, err := s.provider.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, identity.MapError(err, "provider sign in")
	}
	return s.openSession(ctx, sess.Account)
}

func (s *service) Exchange(ctx context.Context, req ExchangeRequest) (*TokenResponse, error) {
	token := strings.TrimSpace(req.IDToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity token required")
	}
	account, err := s.provider.CurrentUser(ctx, token)
	if err != nil {
		return nil, identity.MapError(err, "provider token verification")
	}
	return s.openSession(ctx, *account)
}

func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error) {
	res, err := s.register.Register(ctx, users.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Nickname:       req.Nickname,
		PrimaryStoreID: req.PrimaryStoreID,
	})
	if err != nil {
		return nil, err
	}
	user := res.User
	return s.issue(ctx, user.ID, user.Role, user.PrimaryStoreID, &user)
}

func (s *service) Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	rotation, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if rotation.UserID != claims.UserID {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	// role, store and active flag are re-read so a refresh never outlives a demotion
	user, err := s.users.FindByID(ctx, rotation.UserID)
	if err != nil || !user.IsActive {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account unavailable")
	}

	access, err := s.mint(user.ID, user.Role, user.PrimaryStoreID, rotation.AccessID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: rotation.RefreshToken,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// openSession maps a verified provider account onto its application user.
func (s *service) openSession(ctx context.Context, account identity.Account) (*TokenResponse, error) {
	user, err := s.users.FindByAuthID(ctx, account.AuthID)
	if err != nil {
		if db.IsNotFound(err) {
			s.logg.Warn(s.logg.WithField(ctx, "auth_id", account.AuthID), "provider account has no application user")
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not provisioned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}
	return s.issue(ctx, user.ID, user.Role, user.PrimaryStoreID, users.FromModel(user))
}

func (s *service) issue(ctx context.Context, userID uuid.UUID, role enums.UserRole, storeID *uuid.UUID, dto *users.UserDTO) (*TokenResponse, error) {
	accessID := session.NewAccessID()
	access, err := s.mint(userID, role, storeID, accessID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.session.Generate(ctx, accessID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		User:         dto,
	}, nil
}

func (s *service) mint(userID uuid.UUID, role enums.UserRole, storeID *uuid.UUID, accessID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:  userID,
		StoreID: storeID,
		Role:    role,
		JTI:     accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}
