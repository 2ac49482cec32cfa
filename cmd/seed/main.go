package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/communal/backend/internal/infrastructure/config"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/infrastructure/persistence"
)

//go:embed demo.yaml
var demoFixture []byte

func main() {
	var (
		fixturePath string
		logLevel    string
	)
	flag.StringVar(&fixturePath, "file", "", "YAML fixture to load (default: built-in demo data)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

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

	fixture, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatal("Failed to load fixture", zap.String("file", fixturePath), zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeder := NewSeeder(
		persistence.NewGormHouseRepository(db.DB),
		persistence.NewGormApartmentRepository(db.DB),
		persistence.NewGormMeterRepository(db.DB),
		persistence.NewGormMeterTypeRepository(db.DB),
		persistence.NewGormTariffRepository(db.DB),
		log,
	)

	stats, err := seeder.Seed(ctx, fixture)
	if err != nil {
		log.Error("Seeding failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Seeding completed",
		zap.Int("meter_types", stats.MeterTypes),
		zap.Int("tariffs", stats.Tariffs),
		zap.Int("houses", stats.Houses),
		zap.Int("apartments", stats.Apartments),
		zap.Int("meters", stats.Meters),
		zap.Int("readings", stats.Readings),
	)
}

func loadFixture(path string) (*Fixture, error) {
	var r io.Reader = bytes.NewReader(demoFixture)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return DecodeFixture(r)
}
