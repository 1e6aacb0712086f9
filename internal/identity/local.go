package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	pkgauth "github.com/shota3227/ludi/pkg/auth"
	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/security"
)

// LocalProvider keeps credentials in the auth_identities table. It stands in
// for an external provider in development and single-node deployments.
type LocalProvider struct {
	repo.Base
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	tokenTTL    time.Duration
	now         func() time.Time
}

// NewLocalProvider builds the database-backed provider.
func NewLocalProvider(conn *gorm.DB, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig, tokenTTL time.Duration) (*LocalProvider, error) {
	if conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &LocalProvider{
		Base:        repo.NewBase(conn),
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var ident models.AuthIdentity
	err := p.DB(ctx).Where("email = ?", NormalizeEmail(email)).First(&ident).Error
	if db.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	ok, err := security.VerifyPassword(password, ident.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	if security.NeedsRehash(ident.PasswordHash, p.passwordCfg) {
		// best effort: a failed upgrade leaves the old hash valid
		if hash, err := security.HashPassword(password, p.passwordCfg); err == nil {
			_ = p.DB(ctx).Model(&models.AuthIdentity{}).Where("id = ?", ident.ID).Update("password_hash", hash).Error
		}
	}
	return p.session(ident)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	ident, err := p.create(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.session(*ident)
}

func (p *LocalProvider) CurrentUser(ctx context.Context, idToken string) (*Account, error) {
	claims, err := pkgauth.ParseIdentityToken(p.jwtCfg, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var ident models.AuthIdentity
	err = p.DB(ctx).Where("id = ?", claims.Subject).First(&ident).Error
	if db.IsNotFound(err) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return &Account{AuthID: ident.ID, Email: ident.Email}, nil
}

func (p *LocalProvider) CreateUser(ctx context.Context, email, password string) (*Account, error) {
	ident, err := p.create(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &Account{AuthID: ident.ID, Email: ident.Email}, nil
}

func (p *LocalProvider) ListUsers(ctx context.Context) ([]Account, error) {
	var rows []models.AuthIdentity
	if err := p.DB(ctx).Order("email ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, Account{AuthID: row.ID, Email: row.Email})
	}
	return out, nil
}

func (p *LocalProvider) create(ctx context.Context, email, password string) (*models.AuthIdentity, error) {
	if err := security.ValidatePassword(password); err != nil {
		return nil, ErrWeakPassword
	}
	hash, err := security.HashPassword(password, p.passwordCfg)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ident := &models.AuthIdentity{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.DB(ctx).Create(ident).Error; err != nil {
		if db.IsUniqueViolation(err, "auth_identities_email_key") {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return ident, nil
}

func (p *LocalProvider) session(ident models.AuthIdentity) (*Session, error) {
	token, err := pkgauth.MintIdentityToken(p.jwtCfg, p.tokenTTL, p.now(), ident.ID, ident.Email)
	if err != nil {
		return nil, fmt.Errorf("mint identity token: %w", err)
	}
	return &Session{
		Account: Account{AuthID: ident.ID, Email: ident.Email},
		IDToken: token,
	}, nil
}
