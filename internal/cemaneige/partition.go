package cemaneige

import (
	"gonum.org/v1/gonum/stat"
)

const (
	// SolidTempThresholdC is the air temperature below which precipitation falls as snow
	SolidTempThresholdC = -0.2

	// thresholdFraction scales mean annual solid precipitation into Gthreshold
	thresholdFraction = 0.9
)

// IsSolid reports whether precipitation at tempC is classified as snow
func IsSolid(tempC float64) bool {
	return tempC < SolidTempThresholdC
}

// Partition classifies every day of the series as solid (true) or liquid (false)
func Partition(series []Day) []bool {
	solid := make([]bool, len(series))
	for i, d := range series {
		solid[i] = IsSolid(d.TempC)
	}
	return solid
}

// YearlySolidPrecip sums solid precipitation per calendar year. Every year from
// the first day's year through the last day's year gets a total, so years
// without any snowfall contribute a zero.
func YearlySolidPrecip(series []Day) []float64 {
	if len(series) == 0 {
		return nil
	}

	first := series[0].Date.Year()
	last := series[len(series)-1].Date.Year()
	totals := make([]float64, last-first+1)

	for _, d := range series {
		if IsSolid(d.TempC) {
			totals[d.Date.Year()-first] += d.PrecipMM
		}
	}
	return totals
}

// MeanAnnualSolidPrecip returns the mean of the yearly solid precipitation
// totals over the whole series, in mm. An empty series yields 0.
func MeanAnnualSolidPrecip(series []Day) float64 {
	totals := YearlySolidPrecip(series)
	if len(totals) == 0 {
		return 0
	}
	return stat.Mean(totals, nil)
}

// SnowThreshold returns Gthreshold, the snowpack mass above which the
// catchment is considered fully snow covered.
func SnowThreshold(series []Day) float64 {
	return thresholdFraction * MeanAnnualSolidPrecip(series)
}
