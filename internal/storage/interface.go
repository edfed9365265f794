// Package storage defines the interfaces between the snow routine and the
// places daily forcing comes from and snowmelt series go to.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/google/uuid"
)

// ErrNoData is returned when a source has no forcing for the requested station and span
var ErrNoData = errors.New("no forcing data")

// ForcingSource provides daily temperature and precipitation series
type ForcingSource interface {
	// FetchDailySeries returns the days in [start, end) for a station, oldest first
	FetchDailySeries(ctx context.Context, station string, start, end time.Time) ([]cemaneige.Day, error)
}

// MeltSink receives computed liquid-water series
type MeltSink interface {
	StoreMelt(ctx context.Context, run MeltRun) error
}

// MeltReader returns melt series written by earlier runs
type MeltReader interface {
	// FetchMelt returns the stored days in [start, end) for a site, oldest first
	FetchMelt(ctx context.Context, site string, start, end time.Time) ([]MeltDay, error)
}

// MeltDay is one stored day of a melt run
type MeltDay struct {
	Date     time.Time
	RunID    string
	TempC    float64
	PrecipMM float64
	LiquidMM float64
}

// MeltRun is one completed simulation ready to be stored
type MeltRun struct {
	ID         uuid.UUID
	Site       string
	Station    string
	Params     cemaneige.Params
	Threshold  float64 // Gthreshold used for the run, mm
	Days       []cemaneige.Day
	Output     []float64 // liquid precipitation plus melt, mm/day
	ComputedAt time.Time
}
