package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

type storeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListActive(ctx context.Context) ([]models.Store, error)
}

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	ListActive(ctx context.Context) ([]StoreDTO, error)
}

type service struct {
	repo storeReader
}

func NewService(repo storeReader) (Service, error) {
	if repo == nil {
		return nil, errors.New("stores: repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	switch {
	case db.IsNotFound(err):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return FromModel(store), nil
}

// ListActive returns open stores sorted by name.
func (s *service) ListActive(ctx context.Context) ([]StoreDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	dtos := make([]StoreDTO, len(rows))
	for i := range rows {
		dtos[i] = *FromModel(&rows[i])
	}
	return dtos, nil
}
