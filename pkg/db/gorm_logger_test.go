package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shota3227/ludi/pkg/logger"
)

func TestGormLoggerReportsSlowQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newGormLogger(logger.New(logger.Options{ServiceName: "test", Output: buf}), 10*time.Millisecond)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM point_transactions", 3
	}, nil)

	if !bytes.Contains(buf.Bytes(), []byte("sql.slow")) {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("point_transactions")) {
		t.Fatalf("expected statement in entry, got %s", buf.String())
	}
}

func TestGormLoggerSkipsFastAndNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newGormLogger(logger.New(logger.Options{ServiceName: "test", Output: buf}), time.Second)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)

	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}

func TestGormLoggerSilentMode(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newGormLogger(logger.New(logger.Options{ServiceName: "test", Output: buf}), time.Millisecond).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	if buf.Len() != 0 {
		t.Fatalf("silent mode should not log, got %s", buf.String())
	}
}

func TestDialectorFor(t *testing.T) {
	for driver, want := range map[string]string{"": "postgres", "postgres": "postgres", "SQLite": "sqlite"} {
		d, err := dialectorFor(configWithDriver(driver))
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if d.Name() != want {
			t.Fatalf("driver %q: expected %s, got %s", driver, want, d.Name())
		}
	}
	if _, err := dialectorFor(configWithDriver("mysql")); err == nil {
		t.Fatal("expected unsupported driver to fail")
	}
}
