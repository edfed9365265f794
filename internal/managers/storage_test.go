package managers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/chrissnell/cemaneige/internal/storage/sqlite"
	"github.com/chrissnell/cemaneige/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestNewStorageManagerWithoutBackends(t *testing.T) {
	s, err := NewStorageManager(context.Background(), config.StorageData{}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewStorageManager failed: %v", err)
	}
	defer s.Close()

	if s.Source() != nil || s.Sink() != nil || s.Reader() != nil {
		t.Error("expected nothing wired without backends")
	}
}

func TestNewStorageManagerSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "melt.db")

	s, err := NewStorageManager(ctx, config.StorageData{SQLite: &config.SQLiteData{Path: path}}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewStorageManager failed: %v", err)
	}
	defer s.Close()

	if len(s.Engines) != 1 || s.Engines[0].Name != "sqlite" {
		t.Fatalf("unexpected engines: %+v", s.Engines)
	}
	if s.Source() == nil || s.Sink() == nil {
		t.Fatal("expected a source and a sink")
	}

	health := s.Health.Refresh(ctx)
	if health["sqlite"].Status != storage.HealthStatusHealthy {
		t.Errorf("expected sqlite to be healthy, got %+v", health["sqlite"])
	}

	if _, ok := s.Source().(*sqlite.Store); !ok {
		t.Errorf("expected the sqlite store as source, got %T", s.Source())
	}
	if _, ok := s.Reader().(*sqlite.Store); !ok {
		t.Errorf("expected the sqlite store as reader, got %T", s.Reader())
	}
}

type recordingSink struct {
	runs int
	err  error
}

func (r *recordingSink) StoreMelt(ctx context.Context, run storage.MeltRun) error {
	r.runs++
	return r.err
}

func TestMultiSink(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("connection refused")}
	worse := &recordingSink{err: errors.New("disk full")}

	run := storage.MeltRun{
		ID:     uuid.New(),
		Site:   "crystal",
		Days:   []cemaneige.Day{{Date: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), TempC: 1, PrecipMM: 1}},
		Output: []float64{1},
	}

	err := multiSink{bad, ok, worse}.StoreMelt(context.Background(), run)
	if len(multierr.Errors(err)) != 2 {
		t.Errorf("expected 2 errors, got %v", err)
	}
	if ok.runs != 1 || bad.runs != 1 || worse.runs != 1 {
		t.Error("every sink should receive the run even after a failure")
	}
}
