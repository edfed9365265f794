package sqlite

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestForcingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	start := time.Date(2021, time.December, 30, 0, 0, 0, 0, time.UTC)
	series := []cemaneige.Day{
		{Date: start, TempC: -4, PrecipMM: 8},
		{Date: start.AddDate(0, 0, 1), TempC: -6, PrecipMM: 0},
		{Date: start.AddDate(0, 0, 2), TempC: 2.5, PrecipMM: 1.2},
	}

	if err := s.PutForcing(ctx, "CSI", series); err != nil {
		t.Fatalf("PutForcing failed: %v", err)
	}

	// Upsert replaces a day instead of duplicating it
	if err := s.PutForcing(ctx, "CSI", []cemaneige.Day{{Date: start, TempC: -5, PrecipMM: 9}}); err != nil {
		t.Fatalf("PutForcing upsert failed: %v", err)
	}

	got, err := s.FetchDailySeries(ctx, "CSI", start, start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("FetchDailySeries failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 days, got %d", len(got))
	}
	if !got[0].Date.Equal(start) || got[0].TempC != -5 || got[0].PrecipMM != 9 {
		t.Errorf("unexpected first day: %+v", got[0])
	}
	if got[2].TempC != 2.5 || got[2].PrecipMM != 1.2 {
		t.Errorf("unexpected last day: %+v", got[2])
	}

	// End is exclusive
	got, err = s.FetchDailySeries(ctx, "CSI", start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 day, got %d", len(got))
	}
}

func TestFetchDailySeriesNoData(t *testing.T) {
	s := openTestStore(t)

	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.FetchDailySeries(context.Background(), "nowhere", start, start.AddDate(1, 0, 0))
	if !errors.Is(err, storage.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestStoreMelt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := []cemaneige.Day{
		{Date: start, TempC: -5, PrecipMM: 10},
		{Date: start.AddDate(0, 0, 1), TempC: -5, PrecipMM: 0},
		{Date: start.AddDate(0, 0, 2), TempC: 5, PrecipMM: 0},
	}
	params := cemaneige.Params{Kf: 5, CTG: 0.5}
	out, err := cemaneige.Simulate(days, params)
	if err != nil {
		t.Fatal(err)
	}

	first := storage.MeltRun{
		ID:         uuid.New(),
		Site:       "upper-basin",
		Station:    "CSI",
		Params:     params,
		Threshold:  cemaneige.SnowThreshold(days),
		Days:       days,
		Output:     out,
		ComputedAt: time.Now(),
	}
	if err := s.StoreMelt(ctx, first); err != nil {
		t.Fatalf("StoreMelt failed: %v", err)
	}

	// A second run over the same span replaces the first
	second := first
	second.ID = uuid.New()
	if err := s.StoreMelt(ctx, second); err != nil {
		t.Fatalf("second StoreMelt failed: %v", err)
	}

	melt, err := s.FetchMelt(ctx, "upper-basin", start, start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("FetchMelt failed: %v", err)
	}
	if len(melt) != 3 {
		t.Fatalf("expected 3 melt days, got %d", len(melt))
	}
	for i, m := range melt {
		if m.RunID != second.ID.String() {
			t.Errorf("day %d: expected run %s, got %s", i, second.ID, m.RunID)
		}
	}
	if math.Abs(melt[2].LiquidMM-10) > 1e-9 {
		t.Errorf("expected 10mm on day 3, got %v", melt[2].LiquidMM)
	}
}

func TestStoreMeltRejectsMismatchedRun(t *testing.T) {
	s := openTestStore(t)

	run := storage.MeltRun{
		ID:     uuid.New(),
		Site:   "upper-basin",
		Days:   []cemaneige.Day{{Date: time.Now()}},
		Output: nil,
	}
	if err := s.StoreMelt(context.Background(), run); err == nil {
		t.Fatal("expected an error for mismatched days and output")
	}
}

func TestCheckHealth(t *testing.T) {
	s := openTestStore(t)
	if h := s.CheckHealth(context.Background()); h.Status != storage.HealthStatusHealthy {
		t.Errorf("expected healthy store, got %+v", h)
	}
}
