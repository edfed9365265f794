// Package managers opens the configured storage backends and hands the rest of
// the application a single forcing source and melt sink.
package managers

import (
	"context"
	"fmt"
	"io"

	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/chrissnell/cemaneige/internal/storage/sqlite"
	"github.com/chrissnell/cemaneige/internal/storage/timescaledb"
	"github.com/chrissnell/cemaneige/pkg/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []StorageEngine
	Health  *storage.HealthManager
	logger  *zap.SugaredLogger
}

// StorageEngine is one opened backend
type StorageEngine struct {
	Name   string
	Source storage.ForcingSource
	Sink   storage.MeltSink
	Reader storage.MeltReader // nil when the backend cannot read runs back
	closer io.Closer
}

// NewStorageManager opens every backend found in the storage configuration
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{
		Health: storage.NewHealthManager(),
		logger: logger,
	}

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, "timescaledb", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
	}

	if c.SQLite != nil && c.SQLite.Path != "" {
		if err := s.AddEngine(ctx, "sqlite", c); err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	}

	return s, nil
}

// AddEngine opens the backend named engineName
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.StorageData) error {
	switch engineName {
	case "timescaledb":
		t, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString, s.logger.Named("timescaledb"))
		if err != nil {
			return err
		}
		s.Engines = append(s.Engines, StorageEngine{Name: engineName, Source: t, Sink: t, closer: t})
		s.Health.Register(engineName, t)
	case "sqlite":
		st, err := sqlite.Open(ctx, c.SQLite.Path, s.logger.Named("sqlite"))
		if err != nil {
			return err
		}
		s.Engines = append(s.Engines, StorageEngine{Name: engineName, Source: st, Sink: st, Reader: st, closer: st})
		s.Health.Register(engineName, st)
	default:
		return fmt.Errorf("unknown storage backend: %s", engineName)
	}

	s.logger.Infof("%s storage backend enabled", engineName)
	return nil
}

// Source returns the forcing source of the first configured backend, or nil
// when none is configured. TimescaleDB wins over SQLite when both are present.
func (s *StorageManager) Source() storage.ForcingSource {
	if len(s.Engines) == 0 {
		return nil
	}
	return s.Engines[0].Source
}

// Sink returns a sink that writes every run to all configured backends, or nil
// when none is configured
func (s *StorageManager) Sink() storage.MeltSink {
	if len(s.Engines) == 0 {
		return nil
	}
	sinks := make(multiSink, len(s.Engines))
	for i, e := range s.Engines {
		sinks[i] = e.Sink
	}
	return sinks
}

// Reader returns the first backend able to read stored runs back, or nil
func (s *StorageManager) Reader() storage.MeltReader {
	for _, e := range s.Engines {
		if e.Reader != nil {
			return e.Reader
		}
	}
	return nil
}

// Close closes every backend
func (s *StorageManager) Close() error {
	var err error
	for _, e := range s.Engines {
		err = multierr.Append(err, e.closer.Close())
	}
	return err
}

// multiSink fans a run out to several sinks
type multiSink []storage.MeltSink

func (m multiSink) StoreMelt(ctx context.Context, run storage.MeltRun) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.StoreMelt(ctx, run))
	}
	return err
}
