// Command migrate manages the Postgres schema.
//
//	migrate up|down|status [-dir path]
//	migrate to -version YYYYMMDDHHMMSS [-dir path]
//	migrate create -name add_column [-dir path]
//	migrate validate [-dir path]
//
// Database commands apply the migrations embedded in the binary unless -dir
// points at a directory on disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/migrate"
)

var errUsage = errors.New("usage: migrate up|down|status|to|create|validate [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	command := args[0]

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	dir := fs.String("dir", "", "migrations directory on disk (default: embedded)")
	name := fs.String("name", "", "migration name (create)")
	version := fs.String("version", "", "target version YYYYMMDDHHMMSS (to)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch command {
	case "create":
		if *name == "" {
			return fmt.Errorf("create: -name is required")
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			return fmt.Errorf("create: %w", err)
		}
		fmt.Println("created", path)
		return nil

	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateFS(migrate.Embedded())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		fmt.Println("migrations valid")
		return nil

	case "up", "down", "status", "to":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	source := *dir
	if source == "" {
		source = "embedded"
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": command, "source": source})

	if strings.EqualFold(cfg.DB.Driver, db.DriverSQLite) {
		return fmt.Errorf("%s: migrations target postgres; the sqlite schema is applied by the api at boot", command)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	logg.Info(ctx, "migrate starting")
	if command == "to" {
		if *version == "" {
			return fmt.Errorf("to: -version is required")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	} else {
		err = migrate.Run(ctx, sqlDB, *dir, command)
	}
	if err != nil {
		logg.Error(ctx, "migrate failed", err)
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}
