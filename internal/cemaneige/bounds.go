package cemaneige

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrParamOutOfBounds is returned by Bounds.Check for every parameter outside its range
var ErrParamOutOfBounds = errors.New("parameter out of bounds")

// Range is a closed interval [Min, Max]
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp returns v limited to the range
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Bounds holds the calibration ranges for the two free parameters
type Bounds struct {
	Kf  Range `json:"kf"`
	CTG Range `json:"ctg"`
}

// ParamBounds returns the valid calibration ranges: Kf in [1, 10] and CTG in [0, 1].
// Simulate does not enforce them; calibration and configuration layers do.
func ParamBounds() Bounds {
	return Bounds{
		Kf:  Range{Min: 1, Max: 10},
		CTG: Range{Min: 0, Max: 1},
	}
}

// Check returns nil when p lies inside b, otherwise an error wrapping
// ErrParamOutOfBounds for each offending parameter.
func (b Bounds) Check(p Params) error {
	var err error
	if !b.Kf.Contains(p.Kf) {
		err = multierr.Append(err, fmt.Errorf("%w: Kf=%g not in [%g, %g]", ErrParamOutOfBounds, p.Kf, b.Kf.Min, b.Kf.Max))
	}
	if !b.CTG.Contains(p.CTG) {
		err = multierr.Append(err, fmt.Errorf("%w: CTG=%g not in [%g, %g]", ErrParamOutOfBounds, p.CTG, b.CTG.Min, b.CTG.Max))
	}
	return err
}

// Clip returns p with each parameter clamped into b
func (b Bounds) Clip(p Params) Params {
	return Params{
		Kf:  b.Kf.Clamp(p.Kf),
		CTG: b.CTG.Clamp(p.CTG),
	}
}
