package runner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"go.uber.org/zap"
)

func TestGrid(t *testing.T) {
	tests := []struct {
		name     string
		n, m     int
		expected int
		last     cemaneige.Params
	}{
		{name: "corners", n: 2, m: 2, expected: 4, last: cemaneige.Params{Kf: 10, CTG: 1}},
		{name: "fine", n: 10, m: 5, expected: 50, last: cemaneige.Params{Kf: 10, CTG: 1}},
		{name: "single kf", n: 1, m: 3, expected: 3, last: cemaneige.Params{Kf: 1, CTG: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := Grid(cemaneige.ParamBounds(), tt.n, tt.m)
			if len(grid) != tt.expected {
				t.Fatalf("expected %d params, got %d", tt.expected, len(grid))
			}
			if grid[0] != (cemaneige.Params{Kf: 1, CTG: 0}) {
				t.Errorf("expected grid to start at the lower bounds, got %+v", grid[0])
			}
			if got := grid[len(grid)-1]; math.Abs(got.Kf-tt.last.Kf) > 1e-9 || math.Abs(got.CTG-tt.last.CTG) > 1e-9 {
				t.Errorf("expected last %+v, got %+v", tt.last, got)
			}
			for _, p := range grid {
				if err := cemaneige.ParamBounds().Check(p); err != nil {
					t.Errorf("grid point outside bounds: %v", err)
				}
			}
		})
	}
}

func TestSweep(t *testing.T) {
	s := series([]float64{-5, -5, 5, 4}, []float64{10, 0, 0, 2})
	params := []cemaneige.Params{
		{Kf: 1, CTG: 0},
		{Kf: 5, CTG: 0},
		{Kf: 10, CTG: 0},
	}

	r := New(nil, nil, 2, zap.NewNop().Sugar())
	results, err := r.Sweep(context.Background(), s, params)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(results) != len(params) {
		t.Fatalf("expected %d results, got %d", len(params), len(results))
	}

	for i, res := range results {
		if res.Params != params[i] {
			t.Errorf("result %d has params %+v, expected %+v", i, res.Params, params[i])
		}
		if res.TotalMM > 12+1e-9 {
			t.Errorf("result %d releases more water than fell: %v", i, res.TotalMM)
		}
	}

	// Kf=5 melts 10mm on day 3, then rain on day 4
	if math.Abs(results[1].PeakMM-10) > 1e-9 || math.Abs(results[1].TotalMM-12) > 1e-9 {
		t.Errorf("unexpected Kf=5 summary: %+v", results[1])
	}
	if results[1].MeltDays != 1 {
		t.Errorf("expected 1 melt day, got %d", results[1].MeltDays)
	}
	// Kf=1 leaves snow behind and melts on both warm days
	if results[0].MeltDays != 2 || results[0].TotalMM >= results[1].TotalMM {
		t.Errorf("unexpected Kf=1 summary: %+v", results[0])
	}
}

func TestSweepRejectsInvalidSeries(t *testing.T) {
	s := series([]float64{1, 2}, []float64{-1, 0})
	r := New(nil, nil, 1, zap.NewNop().Sugar())
	if _, err := r.Sweep(context.Background(), s, []cemaneige.Params{{Kf: 2, CTG: 0.5}}); !errors.Is(err, cemaneige.ErrInvalidSeries) {
		t.Errorf("expected ErrInvalidSeries, got %v", err)
	}
}
