package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/app"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
)

const usage = `usage: migrate <command> [flags]

commands:
  up                 apply every pending migration
  down -steps N      revert the last N migrations (default 1)
  version            print the applied schema version`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	if err := run(os.Args[1:]); err != nil {
		slog.Default().Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return errors.New("missing command")
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	dsn := fs.String("dsn", "", "postgres DSN (defaults to PG_DSN)")
	steps := fs.Int("steps", 1, "migrations to revert with down")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *dsn == "" {
		*dsn = os.Getenv("PG_DSN")
	}
	if *dsn == "" {
		return errors.New("no DSN: pass -dsn or set PG_DSN")
	}
	logger := app.NewLogger(&app.Config{LogFormat: os.Getenv("LOG_FORMAT"), LogLevel: os.Getenv("LOG_LEVEL")})

	switch args[0] {
	case "up":
		if err := db.Migrate(*dsn); err != nil {
			return err
		}
		logger.Info("migrations applied")
	case "down":
		if err := db.Rollback(*dsn, *steps); err != nil {
			return err
		}
		logger.Info("migrations reverted", slog.Int("steps", *steps))
	case "version":
		version, dirty, err := db.Version(*dsn)
		if err != nil {
			return err
		}
		logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
