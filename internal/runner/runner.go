// Package runner executes snow simulations for many sites or parameter sets in
// parallel. Every job owns its own snowpack; nothing is shared between jobs.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one site simulation
type Job struct {
	Site    string
	Station string
	Start   time.Time
	End     time.Time
	Params  cemaneige.Params
}

// Result is the outcome of a Job. Err is set when the job failed.
type Result struct {
	Job       Job
	RunID     uuid.UUID
	Threshold float64
	Days      []cemaneige.Day
	Output    []float64
	Err       error
}

// Runner fetches forcing, simulates and stores the result for each job
type Runner struct {
	source  storage.ForcingSource
	sink    storage.MeltSink
	workers int
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// New creates a Runner. sink may be nil, in which case results are only returned.
func New(source storage.ForcingSource, sink storage.MeltSink, workers int, logger *zap.SugaredLogger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:  source,
		sink:    sink,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes every job and returns one Result per job in the same order.
// A failing job does not stop the others; the returned error combines all
// job failures.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = r.runJob(ctx, job)
			return nil
		})
	}
	// jobs report failures through results, so Wait never returns an error
	_ = g.Wait()

	var err error
	for _, res := range results {
		err = multierr.Append(err, res.Err)
	}
	return results, err
}

// RunOne fetches, simulates and stores a single job
func (r *Runner) RunOne(ctx context.Context, job Job) Result {
	return r.runJob(ctx, job)
}

func (r *Runner) runJob(ctx context.Context, job Job) Result {
	res := Result{Job: job, RunID: uuid.New()}
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("site %s: %w", job.Site, err)
		return res
	}

	end := job.End
	if end.IsZero() {
		end = r.now().UTC().Truncate(24 * time.Hour)
	}

	series, err := r.source.FetchDailySeries(ctx, job.Station, job.Start, end)
	if err != nil {
		res.Err = fmt.Errorf("site %s: %w", job.Site, err)
		return res
	}

	output, err := cemaneige.Simulate(series, job.Params)
	if err != nil {
		res.Err = fmt.Errorf("site %s: %w", job.Site, err)
		return res
	}
	res.Days = series
	res.Output = output
	res.Threshold = cemaneige.SnowThreshold(series)

	if r.sink != nil {
		run := storage.MeltRun{
			ID:         res.RunID,
			Site:       job.Site,
			Station:    job.Station,
			Params:     job.Params,
			Threshold:  res.Threshold,
			Days:       series,
			Output:     output,
			ComputedAt: r.now().UTC(),
		}
		if err := r.sink.StoreMelt(ctx, run); err != nil {
			res.Err = fmt.Errorf("site %s: %w", job.Site, err)
			return res
		}
	}

	r.logger.Infow("simulated site",
		"site", job.Site,
		"station", job.Station,
		"run_id", res.RunID.String(),
		"days", len(series),
		"threshold_mm", res.Threshold,
	)
	return res
}
