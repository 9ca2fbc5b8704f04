package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_ = godotenv.Load()

	source := flag.String("source", "file://migrations", "migrations source URL")
	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		logger.Error("usage: migrate [-source url] <up|down|version|force N>")
		os.Exit(1)
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		logger.Error("MONGODB_URI environment variable is required")
		os.Exit(1)
	}

	m, err := migrate.New(*source, mongoURI)
	if err != nil {
		logger.Error("failed to create migrate instance", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, logger, args); err != nil {
		logger.Error("migration failed", slog.String("command", args[0]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no pending migrations")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migrations applied successfully")

	case "down":
		err := m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to rollback")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migration rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("migration version forced", slog.Int("version", version))

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
