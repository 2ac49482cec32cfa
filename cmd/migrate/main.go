package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/infrastructure/config"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/migration"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		databaseURL    string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&databaseURL, "database-url", "", "postgres:// URL; overrides the database config")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	migrationsPath, err = resolveMigrationsPath(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("migrations_path", migrationsPath),
	)

	// create and list only touch the filesystem
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		files, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(files) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Available migrations", zap.Int("count", len(files)))
		for _, f := range files {
			fmt.Println("  -", f)
		}
		return
	}

	m, closeDB := openMigrator(databaseURL, migrationsPath, log)
	defer closeDB()
	defer m.Close()

	if err := run(m, command, args[1:], log); err != nil {
		log.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func resolveMigrationsPath(path string) (string, error) {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if execPath, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(execPath), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

func openMigrator(databaseURL, migrationsPath string, log *zap.Logger) (*migration.Migrator, func()) {
	if databaseURL != "" {
		m, err := migration.NewFromURL(databaseURL, migrationsPath, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		return m, func() {}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		_ = db.Close()
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return m, func() { _ = db.Close() }
}

func run(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step", "steps":
		if len(args) < 1 {
			return fmt.Errorf("step count required. Usage: migrate steps <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)

	case "goto":
		if len(args) < 1 {
			return fmt.Errorf("version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return m.GoTo(uint(version))

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
		return nil

	case "force":
		if len(args) < 1 {
			return fmt.Errorf("version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return m.Force(version)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Println(`Communal Billing Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  steps <n>             Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  create <name> [desc]  Create a new migration file pair
  list                  List available migrations

Flags:
  -path string          Path to migrations directory (default: ./migrations)
  -database-url string  postgres:// URL, overrides database settings
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  COMMUNAL_DATABASE_HOST, COMMUNAL_DATABASE_PORT, COMMUNAL_DATABASE_USER,
  COMMUNAL_DATABASE_PASSWORD, COMMUNAL_DATABASE_DBNAME, COMMUNAL_DATABASE_SSLMODE

Examples:
  migrate up
  migrate steps -1
  migrate create add_meter_serial "Add serial number to meters"
  migrate version`)
}
