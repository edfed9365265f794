package cemaneige

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidSeries is returned when a daily series cannot be simulated
	ErrInvalidSeries = errors.New("invalid input series")

	// ErrInvalidParams is returned when a parameter is not a finite number
	ErrInvalidParams = errors.New("invalid parameters")
)

// Day is one simulated day of forcing data
type Day struct {
	Date     time.Time
	TempC    float64 // mean daily air temperature, °C
	PrecipMM float64 // mean daily precipitation depth, mm/day
}

// Params holds the two calibratable parameters of the snow routine
type Params struct {
	// Kf is the degree-day melt rate in mm/(day·°C)
	Kf float64 `json:"kf" yaml:"kf"`

	// CTG is the dimensionless weight of the snowpack thermal state
	CTG float64 `json:"ctg" yaml:"ctg"`
}

// NewSeries builds a daily series from columnar data. All three columns must
// have the same length.
func NewSeries(dates []time.Time, tempC, precipMM []float64) ([]Day, error) {
	if len(dates) != len(tempC) || len(dates) != len(precipMM) {
		return nil, fmt.Errorf("%w: column lengths differ (dates=%d, temp=%d, precip=%d)",
			ErrInvalidSeries, len(dates), len(tempC), len(precipMM))
	}

	series := make([]Day, len(dates))
	for i := range dates {
		series[i] = Day{Date: dates[i], TempC: tempC[i], PrecipMM: precipMM[i]}
	}

	if err := Validate(series); err != nil {
		return nil, err
	}
	return series, nil
}

// Validate checks that every value is finite, precipitation is non-negative
// and dates are strictly increasing.
func Validate(series []Day) error {
	for i, d := range series {
		if math.IsNaN(d.TempC) || math.IsInf(d.TempC, 0) {
			return fmt.Errorf("%w: non-finite temperature on day %d (%s)", ErrInvalidSeries, i, d.Date.Format("2006-01-02"))
		}
		if math.IsNaN(d.PrecipMM) || math.IsInf(d.PrecipMM, 0) {
			return fmt.Errorf("%w: non-finite precipitation on day %d (%s)", ErrInvalidSeries, i, d.Date.Format("2006-01-02"))
		}
		if d.PrecipMM < 0 {
			return fmt.Errorf("%w: negative precipitation %.3f on day %d (%s)", ErrInvalidSeries, d.PrecipMM, i, d.Date.Format("2006-01-02"))
		}
		if i > 0 && !d.Date.After(series[i-1].Date) {
			return fmt.Errorf("%w: day %d (%s) does not follow %s", ErrInvalidSeries, i,
				d.Date.Format("2006-01-02"), series[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Validate rejects non-finite parameters; range checks belong to Bounds
func (p Params) Validate() error {
	if math.IsNaN(p.Kf) || math.IsInf(p.Kf, 0) || math.IsNaN(p.CTG) || math.IsInf(p.CTG, 0) {
		return fmt.Errorf("%w: Kf=%v CTG=%v", ErrInvalidParams, p.Kf, p.CTG)
	}
	return nil
}
