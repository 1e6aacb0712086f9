// Package reconciliation finds and removes application users whose identity
// provider account no longer exists.
package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/pkg/db/models"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type usersRepository interface {
	ListUsers(ctx context.Context, tx *gorm.DB) ([]models.User, error)
	DeleteUsers(tx *gorm.DB, ids []uuid.UUID) (int64, error)
}

type accountLister interface {
	ListUsers(ctx context.Context) ([]identity.Account, error)
}

// Service compares application users against provider accounts.
type Service interface {
	Check(ctx context.Context) (*Report, error)
	Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error)
}

type ServiceParams struct {
	Repo     usersRepository
	DB       txRunner
	Provider accountLister
	Metrics  *metrics.DomainMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     usersRepository
	db       txRunner
	provider accountLister
	metrics  *metrics.DomainMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
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
		db:       params.DB,
		provider: params.Provider,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Check reports ghosts without touching either side.
func (s *service) Check(ctx context.Context) (*Report, error) {
	accounts, err := s.listAccounts(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list application users")
	}

	known := authIDSet(accounts)
	report := &Report{
		CheckedAt:        s.now().UTC(),
		ProviderAccounts: len(accounts),
		DatabaseUsers:    len(users),
		Ghosts:           findGhosts(users, known),
		Unlinked:         findUnlinked(accounts, users),
	}
	s.metrics.SetGhostUsers(len(report.Ghosts))
	return report, nil
}

// Execute deletes the requested users that are still ghosts against a fresh
// provider listing. Ids that have since been linked are skipped.
func (s *service) Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error) {
	if !input.Confirm {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deletion must be explicitly confirmed")
	}
	requested := dedupe(input.UserIDs)
	result := &ExecuteResult{Deleted: []uuid.UUID{}, Skipped: []uuid.UUID{}}
	if len(requested) == 0 {
		return result, nil
	}

	accounts, err := s.listAccounts(ctx)
	if err != nil {
		return nil, err
	}
	known := authIDSet(accounts)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		users, err := s.repo.ListUsers(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list application users")
		}
		ghosts := make(map[uuid.UUID]struct{})
		for _, g := range findGhosts(users, known) {
			ghosts[g.ID] = struct{}{}
		}

		for _, id := range requested {
			if _, ok := ghosts[id]; ok {
				result.Deleted = append(result.Deleted, id)
			} else {
				result.Skipped = append(result.Skipped, id)
			}
		}

		if _, err := s.repo.DeleteUsers(tx, result.Deleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ghost users")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit ghost deletion")
		}
		return nil, err
	}

	s.metrics.GhostUsersDeleted(len(result.Deleted))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"deleted": len(result.Deleted),
		"skipped": len(result.Skipped),
	})
	s.logg.Info(logCtx, "ghost users deleted")
	return result, nil
}

// listAccounts never turns a provider failure into an empty listing.
func (s *service) listAccounts(ctx context.Context) ([]identity.Account, error) {
	accounts, err := s.provider.ListUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provider accounts")
	}
	if accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider returned no account listing")
	}
	return accounts, nil
}

func authIDSet(accounts []identity.Account) map[string]struct{} {
	set := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		set[a.AuthID] = struct{}{}
	}
	return set
}

func findGhosts(users []models.User, known map[string]struct{}) []Ghost {
	ghosts := []Ghost{}
	for _, u := range users {
		if u.AuthID == nil || strings.TrimSpace(*u.AuthID) == "" {
			ghosts = append(ghosts, ghostFromModel(u, GhostReasonNoAuthID))
			continue
		}
		if _, ok := known[*u.AuthID]; !ok {
			ghosts = append(ghosts, ghostFromModel(u, GhostReasonMissingProvider))
		}
	}
	sort.SliceStable(ghosts, func(i, j int) bool {
		if ghosts[i].Email != ghosts[j].Email {
			return ghosts[i].Email < ghosts[j].Email
		}
		return ghosts[i].ID.String() < ghosts[j].ID.String()
	})
	return ghosts
}

func findUnlinked(accounts []identity.Account, users []models.User) []UnlinkedAccount {
	linked := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.AuthID != nil {
			linked[*u.AuthID] = struct{}{}
		}
	}
	out := []UnlinkedAccount{}
	for _, a := range accounts {
		if _, ok := linked[a.AuthID]; !ok {
			out = append(out, UnlinkedAccount{AuthID: a.AuthID, Email: a.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
