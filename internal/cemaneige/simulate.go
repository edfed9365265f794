// Package cemaneige implements the CemaNeige degree-day snow accounting routine.
// It turns daily temperature and precipitation into the daily liquid water
// (rain plus snowmelt) that a downstream hydrological model receives.
package cemaneige

import "math"

const (
	// meltTempC is the air temperature above which the snowpack can melt
	meltTempC = 0.0

	// minMeltSpeed is the fraction of potential melt applied even under thin snow cover
	minMeltSpeed = 0.1
)

// snowpack is the state threaded through the day loop of a single simulation
type snowpack struct {
	g   float64 // snowpack mass, mm water equivalent
	etg float64 // thermal state, °C, never positive after step
}

// dayFlux holds everything computed for one day
type dayFlux struct {
	liquid  float64
	solid   float64
	potMelt float64
	gRatio  float64
	melt    float64
	output  float64
}

// step advances the snowpack by one day and returns the day's fluxes
func (s *snowpack) step(tempC, precipMM float64, solid bool, threshold float64, p Params) dayFlux {
	var f dayFlux
	if solid {
		f.solid = precipMM
	} else {
		f.liquid = precipMM
	}

	// Snow accumulates before melt
	s.g += f.solid

	// Exponential smoothing of air temperature; the pack cannot store warmth
	s.etg = p.CTG*s.etg + (1-p.CTG)*tempC
	if s.etg > 0 {
		s.etg = 0
	}

	// Melt only starts once the thermal state has truncated to zero, i.e. eTG in (-1, 0]
	if math.Trunc(s.etg) == 0 && tempC > meltTempC {
		f.potMelt = math.Min(p.Kf*(tempC-meltTempC), s.g)
	}

	f.gRatio = 1
	if threshold > 0 && s.g < threshold {
		f.gRatio = s.g / threshold
	}

	f.melt = ((1-minMeltSpeed)*f.gRatio + minMeltSpeed) * f.potMelt
	s.g -= f.melt

	f.output = f.liquid + f.melt
	return f
}

// Simulate runs the snow routine over a daily series and returns, for each day,
// liquid precipitation plus snowmelt in mm/day. The series is validated first;
// parameters outside ParamBounds are accepted.
func Simulate(series []Day, p Params) ([]float64, error) {
	if err := Validate(series); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := make([]float64, len(series))
	run(series, p, func(t int, _ snowpack, f dayFlux) {
		out[t] = f.output
	})
	return out, nil
}

// run is the two-pass core: the whole-series threshold is computed first,
// then the days are walked in order. observe, if set, sees the state after
// each day.
func run(series []Day, p Params, observe func(t int, s snowpack, f dayFlux)) {
	solid := Partition(series)
	threshold := SnowThreshold(series)

	var s snowpack
	for t, d := range series {
		f := s.step(d.TempC, d.PrecipMM, solid[t], threshold, p)
		if observe != nil {
			observe(t, s, f)
		}
	}
}
