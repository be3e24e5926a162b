package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/farmstore/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `Farm store schema migrations

Usage:
  migrate [-log-level level] <up|down|step n|version|force v>

FARM_DATABASE_* overrides the database section of config.toml.`

func main() {
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatal("Versioned migrations target PostgreSQL; sqlite stores use database.auto_migrate",
			zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Backing store unreachable", zap.Error(err))
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	st, err := m.Run(flag.Arg(0), flag.Args()[1:])
	if errors.Is(err, migration.ErrUnknownCommand) || errors.Is(err, migration.ErrMissingArgument) {
		log.Error("Invalid command", zap.Error(err))
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Schema version", zap.Uint("version", st.Version), zap.Bool("dirty", st.Dirty))
}
