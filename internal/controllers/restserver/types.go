package restserver

import (
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
)

const dateLayout = "2006-01-02"

// SimulateRequest is the body of POST /simulate
type SimulateRequest struct {
	Dates    []string  `json:"dates"`
	TempC    []float64 `json:"temp_c"`
	PrecipMM []float64 `json:"precip_mm"`
	Kf       float64   `json:"kf"`
	CTG      float64   `json:"ctg"`
}

// SimulateResponse is returned by POST /simulate
type SimulateResponse struct {
	RunID       string    `json:"run_id"`
	ThresholdMM float64   `json:"threshold_mm"`
	MASPMM      float64   `json:"masp_mm"`
	Output      []float64 `json:"output"`
}

// BoundsCheckResponse is returned by POST /bounds/check
type BoundsCheckResponse struct {
	Valid      bool             `json:"valid"`
	Violations []string         `json:"violations"`
	Clipped    cemaneige.Params `json:"clipped"`
}

// SiteResponse describes a configured site
type SiteResponse struct {
	Name    string           `json:"name"`
	Station string           `json:"station"`
	Start   string           `json:"start,omitempty"`
	End     string           `json:"end,omitempty"`
	Params  cemaneige.Params `json:"params"`
}

// MeltDay is one day of a site melt series
type MeltDay struct {
	Date     string  `json:"date"`
	RunID    string  `json:"run_id,omitempty"`
	TempC    float64 `json:"temp_c"`
	PrecipMM float64 `json:"precip_mm"`
	LiquidMM float64 `json:"liquid_mm"`
}

// SiteMeltResponse is returned by POST /sites/{site}/melt
type SiteMeltResponse struct {
	RunID       string           `json:"run_id"`
	Site        string           `json:"site"`
	Station     string           `json:"station"`
	Params      cemaneige.Params `json:"params"`
	ThresholdMM float64          `json:"threshold_mm"`
	Days        []MeltDay        `json:"days"`
}

// StoredMeltResponse is returned by GET /sites/{site}/melt. Days may come
// from different runs when the site was re-run over part of the span.
type StoredMeltResponse struct {
	Site    string    `json:"site"`
	Station string    `json:"station"`
	Days    []MeltDay `json:"days"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string                        `json:"status"`
	Uptime   string                        `json:"uptime"`
	Backends map[string]storage.HealthData `json:"backends,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
