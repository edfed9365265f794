package timescaledb

import (
	"math"
	"testing"
)

func TestUnitConversions(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(float64) float64
		input    float64
		expected float64
	}{
		{name: "freezing point", fn: FahrenheitToCelsius, input: 32, expected: 0},
		{name: "boiling point", fn: FahrenheitToCelsius, input: 212, expected: 100},
		{name: "minus forty", fn: FahrenheitToCelsius, input: -40, expected: -40},
		{name: "snow threshold", fn: FahrenheitToCelsius, input: 31.64, expected: -0.2},
		{name: "one inch", fn: InchesToMM, input: 1, expected: 25.4},
		{name: "no rain", fn: InchesToMM, input: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.input); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
