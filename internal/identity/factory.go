package identity

import (
	"context"

	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/config"
)

// New returns the provider selected by configuration.
func New(ctx context.Context, cfg *config.Config, conn *gorm.DB) (Provider, error) {
	if cfg.Identity.IsFirebase() {
		return NewFirebaseProvider(ctx, cfg.Identity)
	}
	return NewLocalProvider(conn, cfg.JWT, cfg.Password, cfg.Identity.LocalTokenTTL)
}
