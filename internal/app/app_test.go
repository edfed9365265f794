package app

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage/sqlite"
	"github.com/chrissnell/cemaneige/pkg/config"
	"go.uber.org/zap"
)

func TestRunSites(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop().Sugar()
	path := filepath.Join(t.TempDir(), "melt.db")
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

	store, err := sqlite.Open(ctx, path, logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	err = store.PutForcing(ctx, "CSI", []cemaneige.Day{
		{Date: start, TempC: -5, PrecipMM: 10},
		{Date: start.AddDate(0, 0, 1), TempC: -5, PrecipMM: 0},
		{Date: start.AddDate(0, 0, 2), TempC: 5, PrecipMM: 0},
	})
	store.Close()
	if err != nil {
		t.Fatalf("PutForcing failed: %v", err)
	}

	cfg := &config.ConfigData{
		Sites: []config.SiteData{
			{Name: "crystal", Station: "CSI", Start: start, End: start.AddDate(0, 0, 3), Params: cemaneige.Params{Kf: 5, CTG: 0}},
		},
		Storage: config.StorageData{SQLite: &config.SQLiteData{Path: path}},
		Batch:   config.BatchData{Workers: 2},
	}

	if err := New(cfg, logger).RunSites(ctx); err != nil {
		t.Fatalf("RunSites failed: %v", err)
	}

	store, err = sqlite.Open(ctx, path, logger)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	melt, err := store.FetchMelt(ctx, "crystal", start, start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("FetchMelt failed: %v", err)
	}
	if len(melt) != 3 {
		t.Fatalf("expected 3 stored days, got %d", len(melt))
	}
	if math.Abs(melt[2].LiquidMM-10) > 1e-9 {
		t.Errorf("expected 10mm on day 3, got %v", melt[2].LiquidMM)
	}
}

func TestRunSitesRequiresStorage(t *testing.T) {
	cfg := &config.ConfigData{
		Sites: []config.SiteData{{Name: "crystal", Station: "CSI", Params: cemaneige.Params{Kf: 5}}},
	}
	if err := New(cfg, zap.NewNop().Sugar()).RunSites(context.Background()); err == nil {
		t.Error("expected an error without a storage backend")
	}
}

func TestRunSitesRequiresSites(t *testing.T) {
	if err := New(&config.ConfigData{}, zap.NewNop().Sugar()).RunSites(context.Background()); err == nil {
		t.Error("expected an error without sites")
	}
}
