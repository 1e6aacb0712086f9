package cron

import (
	"context"
	"fmt"

	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/pkg/logger"
)

// maxLoggedGhosts caps how many ghost ids go into one log entry.
const maxLoggedGhosts = 20

type reconciliationChecker interface {
	Check(ctx context.Context) (*reconciliation.Report, error)
}

// NewReconciliationAuditJob runs the read-only identity reconciliation check
// and reports ghosts. It never deletes; removal stays an administrator action.
func NewReconciliationAuditJob(logg *logger.Logger, checker reconciliationChecker) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if checker == nil {
		return nil, fmt.Errorf("reconciliation service required")
	}
	return &reconciliationAuditJob{logg: logg, checker: checker}, nil
}

type reconciliationAuditJob struct {
	logg    *logger.Logger
	checker reconciliationChecker
}

func (j *reconciliationAuditJob) Name() string { return "identity-reconciliation-audit" }

func (j *reconciliationAuditJob) Run(ctx context.Context) error {
	report, err := j.checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation check: %w", err)
	}

	ids := make([]string, 0, min(len(report.Ghosts), maxLoggedGhosts))
	for _, ghost := range report.Ghosts {
		if len(ids) == maxLoggedGhosts {
			break
		}
		ids = append(ids, ghost.ID.String())
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"provider_accounts": report.ProviderAccounts,
		"database_users":    report.DatabaseUsers,
		"ghost_users":       len(report.Ghosts),
		"unlinked_accounts": len(report.Unlinked),
		"ghost_ids":         ids,
	})
	if len(report.Ghosts) > 0 {
		j.logg.Warn(logCtx, "ghost users awaiting review")
		return nil
	}
	j.logg.Info(logCtx, "identity reconciliation clean")
	return nil
}
