package runner

import (
	"context"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// meltEpsilon separates melt from rounding noise when counting melt days
const meltEpsilon = 1e-9

// SweepResult summarizes one parameter set over a series
type SweepResult struct {
	Params   cemaneige.Params `json:"params"`
	Output   []float64        `json:"output"`
	TotalMM  float64          `json:"total_mm"`
	PeakMM   float64          `json:"peak_mm"`
	MeltDays int              `json:"melt_days"`
}

// Sweep simulates the same series under every parameter set. Results are in
// the order of params.
func (r *Runner) Sweep(ctx context.Context, series []cemaneige.Day, params []cemaneige.Params) ([]SweepResult, error) {
	if err := cemaneige.Validate(series); err != nil {
		return nil, err
	}

	solid := cemaneige.Partition(series)
	results := make([]SweepResult, len(params))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			output, err := cemaneige.Simulate(series, p)
			if err != nil {
				return err
			}
			results[i] = summarize(series, solid, p, output)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debugf("swept %d parameter sets over %d days", len(params), len(series))
	return results, nil
}

func summarize(series []cemaneige.Day, solid []bool, p cemaneige.Params, output []float64) SweepResult {
	res := SweepResult{Params: p, Output: output}
	if len(output) == 0 {
		return res
	}
	res.TotalMM = floats.Sum(output)
	res.PeakMM = floats.Max(output)
	for t, v := range output {
		rain := series[t].PrecipMM
		if solid[t] {
			rain = 0
		}
		if v-rain > meltEpsilon {
			res.MeltDays++
		}
	}
	return res
}

// Grid returns n×m parameter sets evenly covering b, including both ends of
// each range. n and m below 2 give only the lower bound on that axis.
func Grid(b cemaneige.Bounds, n, m int) []cemaneige.Params {
	kfs := linspace(b.Kf, n)
	ctgs := linspace(b.CTG, m)

	params := make([]cemaneige.Params, 0, len(kfs)*len(ctgs))
	for _, kf := range kfs {
		for _, ctg := range ctgs {
			params = append(params, cemaneige.Params{Kf: kf, CTG: ctg})
		}
	}
	return params
}

func linspace(r cemaneige.Range, n int) []float64 {
	if n < 2 {
		return []float64{r.Min}
	}
	return floats.Span(make([]float64, n), r.Min, r.Max)
}
