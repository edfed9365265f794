package cemaneige

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func dailySeries(start time.Time, temps, precips []float64) []Day {
	series := make([]Day, len(temps))
	for i := range temps {
		series[i] = Day{Date: start.AddDate(0, 0, i), TempC: temps[i], PrecipMM: precips[i]}
	}
	return series
}

func randomSeries(r *rand.Rand, start time.Time, n int) []Day {
	series := make([]Day, n)
	for i := range series {
		// Seasonal temperature cycle with noise, precipitation on ~40% of days
		doy := float64(start.AddDate(0, 0, i).YearDay())
		temp := -12*math.Cos(2*math.Pi*(doy-15)/365) + r.NormFloat64()*4
		precip := 0.0
		if r.Float64() < 0.4 {
			precip = r.ExpFloat64() * 6
		}
		series[i] = Day{Date: start.AddDate(0, 0, i), TempC: temp, PrecipMM: precip}
	}
	return series
}

func TestSimulate(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		temps    []float64
		precips  []float64
		params   Params
		expected []float64
		epsilon  float64
	}{
		{
			name:     "accumulate then melt everything",
			temps:    []float64{-5, -5, 5},
			precips:  []float64{10, 0, 0},
			params:   Params{Kf: 5, CTG: 0.5},
			expected: []float64{0, 0, 10},
			epsilon:  1e-9,
		},
		{
			name:     "melt triggers with thermal state inside (-1, 0]",
			temps:    []float64{-5, 1},
			precips:  []float64{10, 0},
			params:   Params{Kf: 5, CTG: 0.5},
			expected: []float64{0, 5}, // eTG = -0.75, PotMelt = 5, G=10 >= Gthreshold=9
			epsilon:  1e-9,
		},
		{
			name:     "no melt while thermal state truncates to -1",
			temps:    []float64{-5, 0.5},
			precips:  []float64{10, 0},
			params:   Params{Kf: 5, CTG: 0.5},
			expected: []float64{0, 0}, // eTG = -1.0
			epsilon:  1e-9,
		},
		{
			name:     "rain passes straight through",
			temps:    []float64{2, 8, 15},
			precips:  []float64{4, 0, 12.5},
			params:   Params{Kf: 3, CTG: 0.2},
			expected: []float64{4, 0, 12.5},
			epsilon:  1e-9,
		},
		{
			name:    "partial snow cover scales melt",
			temps:   []float64{-5, -5, 5, 5},
			precips: []float64{10, 10, 0, 0},
			params:  Params{Kf: 1, CTG: 0},
			// Gthreshold = 18. Day 3: G=20, melt 5, G=15. Day 4: ratio 15/18,
			// melt = (0.9*15/18 + 0.1) * 5 = 4.25
			expected: []float64{0, 0, 5, 4.25},
			epsilon:  1e-9,
		},
		{
			name:     "thermal state boundary at exactly -0.2",
			temps:    []float64{-0.2, -0.2},
			precips:  []float64{3, 3},
			params:   Params{Kf: 5, CTG: 0.5},
			expected: []float64{3, 3}, // -0.2 is not below the threshold: liquid
			epsilon:  1e-9,
		},
		{
			name:     "empty series",
			temps:    []float64{},
			precips:  []float64{},
			params:   Params{Kf: 5, CTG: 0.5},
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Simulate(dailySeries(start, tt.temps, tt.precips), tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d results, got %d", len(tt.expected), len(result))
			}

			for i, val := range result {
				if math.Abs(val-tt.expected[i]) > tt.epsilon {
					t.Errorf("day %d: expected %.4f ± %g, got %.4f", i, tt.expected[i], tt.epsilon, val)
				}
			}
		})
	}
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		series []Day
		params Params
		target error
	}{
		{
			name:   "NaN temperature",
			series: dailySeries(start, []float64{-1, math.NaN()}, []float64{0, 0}),
			params: Params{Kf: 5, CTG: 0.5},
			target: ErrInvalidSeries,
		},
		{
			name:   "infinite precipitation",
			series: dailySeries(start, []float64{-1, -1}, []float64{math.Inf(1), 0}),
			params: Params{Kf: 5, CTG: 0.5},
			target: ErrInvalidSeries,
		},
		{
			name:   "negative precipitation",
			series: dailySeries(start, []float64{-1}, []float64{-0.1}),
			params: Params{Kf: 5, CTG: 0.5},
			target: ErrInvalidSeries,
		},
		{
			name: "dates out of order",
			series: []Day{
				{Date: start.AddDate(0, 0, 1)},
				{Date: start},
			},
			params: Params{Kf: 5, CTG: 0.5},
			target: ErrInvalidSeries,
		},
		{
			name:   "NaN parameter",
			series: dailySeries(start, []float64{-1}, []float64{1}),
			params: Params{Kf: math.NaN(), CTG: 0.5},
			target: ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Simulate(tt.series, tt.params)
			if !errors.Is(err, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, err)
			}
			if out != nil {
				t.Errorf("expected no output on error, got %d values", len(out))
			}
		})
	}
}

func TestSimulateAcceptsOutOfBoundsParams(t *testing.T) {
	series := dailySeries(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		[]float64{-5, -5, 5}, []float64{10, 0, 0})

	out, err := Simulate(series, Params{Kf: 25, CTG: 1.5})
	if err != nil {
		t.Fatalf("out-of-bounds parameters should not fail: %v", err)
	}
	if len(out) != len(series) {
		t.Errorf("expected %d results, got %d", len(series), len(out))
	}
}

func TestSimulateInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	start := time.Date(2015, time.October, 1, 0, 0, 0, 0, time.UTC)
	bounds := ParamBounds()

	for trial := 0; trial < 25; trial++ {
		series := randomSeries(r, start, 3*365)
		p := Params{
			Kf:  bounds.Kf.Min + r.Float64()*(bounds.Kf.Max-bounds.Kf.Min),
			CTG: r.Float64(),
		}

		days := 0
		run(series, p, func(day int, s snowpack, f dayFlux) {
			days++
			if s.g < 0 {
				t.Fatalf("trial %d day %d: snowpack went negative (%g) with %+v", trial, day, s.g, p)
			}
			if s.etg > 0 {
				t.Fatalf("trial %d day %d: thermal state positive (%g) with %+v", trial, day, s.etg, p)
			}
			if f.melt > f.potMelt+1e-12 {
				t.Fatalf("trial %d day %d: melt %g exceeds potential %g", trial, day, f.melt, f.potMelt)
			}
		})
		if days != len(series) {
			t.Fatalf("trial %d: observed %d days, expected %d", trial, days, len(series))
		}

		out, err := Simulate(series, p)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if len(out) != len(series) {
			t.Fatalf("trial %d: expected %d results, got %d", trial, len(series), len(out))
		}
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	series := randomSeries(r, time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC), 730)
	p := Params{Kf: 4.2, CTG: 0.25}

	first, err := Simulate(series, p)
	if err != nil {
		t.Fatal(err)
	}

	// Checking bounds between calls must not change anything
	_ = ParamBounds().Check(p)

	second, err := Simulate(series, p)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("day %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestSimulateZeroPrecipitation(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	series := randomSeries(r, time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC), 500)
	for i := range series {
		series[i].PrecipMM = 0
	}

	out, err := Simulate(series, Params{Kf: 10, CTG: 0})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("day %d: expected 0, got %v", i, v)
		}
	}
}
