package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/pkg/logger"
)

type fakeCloser struct {
	closed int
	err    error
	calls  int
}

func (f *fakeCloser) AutoClose(context.Context) (int, error) {
	f.calls++
	return f.closed, f.err
}

type fakeChecker struct {
	report *reconciliation.Report
	err    error
}

func (f *fakeChecker) Check(context.Context) (*reconciliation.Report, error) {
	return f.report, f.err
}

func TestAttendanceAutoCloseJob(t *testing.T) {
	closer := &fakeCloser{closed: 2}
	job, err := NewAttendanceAutoCloseJob(logger.Nop(), closer)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "attendance-auto-close" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if closer.calls != 1 {
		t.Fatalf("expected one AutoClose call, got %d", closer.calls)
	}

	closer.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestReconciliationAuditJobOnlyReports(t *testing.T) {
	ghosts := make([]reconciliation.Ghost, maxLoggedGhosts+5)
	for i := range ghosts {
		ghosts[i] = reconciliation.Ghost{ID: uuid.New(), Reason: reconciliation.GhostReasonMissingProvider}
	}
	checker := &fakeChecker{report: &reconciliation.Report{Ghosts: ghosts}}
	job, err := NewReconciliationAuditJob(logger.Nop(), checker)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	checker.err = errors.New("provider unavailable")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected provider failure to fail the job")
	}
}

func TestJobConstructorsValidate(t *testing.T) {
	if _, err := NewAttendanceAutoCloseJob(logger.Nop(), nil); err == nil {
		t.Fatal("expected closer requirement")
	}
	if _, err := NewReconciliationAuditJob(nil, &fakeChecker{}); err == nil {
		t.Fatal("expected logger requirement")
	}
}
