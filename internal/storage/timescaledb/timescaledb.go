// Package timescaledb reads daily forcing from the weather platform's TimescaleDB
// aggregates and stores computed snowmelt series next to them.
package timescaledb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/log"
	"github.com/chrissnell/cemaneige/internal/storage"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage holds both connections to a TimescaleDB database: a plain
// database/sql handle for the forcing queries and a GORM handle for the
// snowmelt table.
type Storage struct {
	*ForcingReader
	gormDB *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to TimescaleDB and makes sure the snowmelt table exists
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Storage, error) {
	logger.Info("connecting to TimescaleDB...")

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("unable to open TimescaleDB connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach TimescaleDB: %w", err)
	}

	gormDB, err := CreateConnection(connectionString)
	if err != nil {
		db.Close()
		return nil, err
	}

	t := &Storage{ForcingReader: NewForcingReader(db, logger), gormDB: gormDB, logger: logger}
	if err := t.createTables(ctx); err != nil {
		t.Close()
		return nil, err
	}

	logger.Info("TimescaleDB connection successful")
	return t, nil
}

// CreateConnection opens a GORM handle whose log output goes through zap
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	return db, nil
}

// Close closes both connections
func (t *Storage) Close() error {
	if sqlDB, err := t.gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	return t.db.Close()
}

// CheckHealth pings the forcing connection
func (t *Storage) CheckHealth(ctx context.Context) *storage.HealthData {
	return storage.PingHealth(ctx, t.db)
}
