package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/runner"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/chrissnell/cemaneige/pkg/config"
	"github.com/chrissnell/cemaneige/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/multierr"
)

// maxBodyBytes caps request bodies; a century of daily forcing fits comfortably
const maxBodyBytes = 8 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding response: %v", err)
	}
}

// GetHealth reports the health of every storage backend
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	backends := h.controller.health.Refresh(req.Context())

	resp := HealthResponse{
		Status:   storage.HealthStatusHealthy,
		Uptime:   time.Since(h.controller.startedAt).Truncate(time.Second).String(),
		Backends: backends,
	}
	status := http.StatusOK
	if !h.controller.health.Healthy() {
		resp.Status = storage.HealthStatusUnhealthy
		status = http.StatusServiceUnavailable
	}

	if err := h.formatter.WriteStatus(w, req, status, resp, nil); err != nil {
		h.controller.logger.Errorf("error encoding health response: %v", err)
	}
}

// GetBounds returns the calibration ranges of the parameters
func (h *Handlers) GetBounds(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, cemaneige.ParamBounds())
}

// CheckBounds validates a parameter set against the calibration ranges
func (h *Handlers) CheckBounds(w http.ResponseWriter, req *http.Request) {
	var p cemaneige.Params
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := h.formatter.Decode(req, &p); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := p.Validate(); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	bounds := cemaneige.ParamBounds()
	resp := BoundsCheckResponse{
		Valid:      true,
		Violations: []string{},
		Clipped:    bounds.Clip(p),
	}
	if err := bounds.Check(p); err != nil {
		resp.Valid = false
		for _, v := range multierr.Errors(err) {
			resp.Violations = append(resp.Violations, v.Error())
		}
	}

	h.write(w, req, resp)
}

// Simulate runs the snow routine over a series posted by the client
func (h *Handlers) Simulate(w http.ResponseWriter, req *http.Request) {
	var body SimulateRequest
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := h.formatter.Decode(req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	dates := make([]time.Time, len(body.Dates))
	for i, s := range body.Dates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid date %q at index %d", s, i))
			return
		}
		dates[i] = d
	}

	series, err := cemaneige.NewSeries(dates, body.TempC, body.PrecipMM)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	p := cemaneige.Params{Kf: body.Kf, CTG: body.CTG}
	output, err := cemaneige.Simulate(series, p)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.write(w, req, SimulateResponse{
		RunID:       uuid.NewString(),
		ThresholdMM: cemaneige.SnowThreshold(series),
		MASPMM:      cemaneige.MeanAnnualSolidPrecip(series),
		Output:      output,
	})
}

// GetSites lists the configured sites
func (h *Handlers) GetSites(w http.ResponseWriter, req *http.Request) {
	sites := make([]SiteResponse, len(h.controller.cfg.Sites))
	for i, s := range h.controller.cfg.Sites {
		sites[i] = SiteResponse{
			Name:    s.Name,
			Station: s.Station,
			Start:   formatDate(s.Start),
			End:     formatDate(s.End),
			Params:  s.Params,
		}
	}
	h.write(w, req, sites)
}

// siteSpan resolves the site named in the route and the [start, end) span
// requested by the query, defaulting to the site's configured span. It writes
// the error response itself and returns ok=false on failure.
func (h *Handlers) siteSpan(w http.ResponseWriter, req *http.Request) (site config.SiteData, start, end time.Time, ok bool) {
	name := mux.Vars(req)["site"]
	site, found := h.controller.cfg.Site(name)
	if !found {
		h.formatter.WriteError(w, req, http.StatusNotFound, "site not found: "+name)
		return site, start, end, false
	}

	start, end = site.Start, site.End
	for _, q := range []struct {
		key string
		dst *time.Time
	}{{"start", &start}, {"end", &end}} {
		v := req.URL.Query().Get(q.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid %s date %q", q.key, v))
			return site, start, end, false
		}
		*q.dst = t
	}
	if !end.IsZero() && !end.After(start) {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "end must be after start")
		return site, start, end, false
	}
	return site, start, end, true
}

// RunSiteMelt simulates a configured site against the forcing source and
// writes the run to every configured store
func (h *Handlers) RunSiteMelt(w http.ResponseWriter, req *http.Request) {
	site, start, end, ok := h.siteSpan(w, req)
	if !ok {
		return
	}

	if h.controller.runner == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no forcing source configured")
		return
	}

	res := h.controller.runner.RunOne(req.Context(), runner.Job{
		Site:    site.Name,
		Station: site.Station,
		Start:   start,
		End:     end,
		Params:  site.Params,
	})
	if res.Err != nil {
		switch {
		case errors.Is(res.Err, storage.ErrNoData):
			h.formatter.WriteError(w, req, http.StatusNotFound, res.Err.Error())
		case errors.Is(res.Err, cemaneige.ErrInvalidSeries):
			h.formatter.WriteError(w, req, http.StatusUnprocessableEntity, res.Err.Error())
		default:
			h.controller.logger.Errorf("error simulating site %s: %v", site.Name, res.Err)
			h.formatter.WriteError(w, req, http.StatusInternalServerError, "error simulating site")
		}
		return
	}

	days := make([]MeltDay, len(res.Days))
	for i, d := range res.Days {
		days[i] = MeltDay{
			Date:     d.Date.Format(dateLayout),
			TempC:    d.TempC,
			PrecipMM: d.PrecipMM,
			LiquidMM: res.Output[i],
		}
	}

	h.write(w, req, SiteMeltResponse{
		RunID:       res.RunID.String(),
		Site:        site.Name,
		Station:     site.Station,
		Params:      site.Params,
		ThresholdMM: res.Threshold,
		Days:        days,
	})
}

// GetSiteMelt returns the melt series stored by earlier runs of a site
func (h *Handlers) GetSiteMelt(w http.ResponseWriter, req *http.Request) {
	site, start, end, ok := h.siteSpan(w, req)
	if !ok {
		return
	}

	if h.controller.melt == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no melt store configured")
		return
	}
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	}

	stored, err := h.controller.melt.FetchMelt(req.Context(), site.Name, start, end)
	if err != nil {
		h.controller.logger.Errorf("error reading stored melt for %s: %v", site.Name, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error reading stored melt")
		return
	}
	if len(stored) == 0 {
		h.formatter.WriteError(w, req, http.StatusNotFound, "no stored melt for site "+site.Name)
		return
	}

	days := make([]MeltDay, len(stored))
	for i, d := range stored {
		days[i] = MeltDay{
			Date:     d.Date.Format(dateLayout),
			RunID:    d.RunID,
			TempC:    d.TempC,
			PrecipMM: d.PrecipMM,
			LiquidMM: d.LiquidMM,
		}
	}

	h.write(w, req, StoredMeltResponse{
		Site:    site.Name,
		Station: site.Station,
		Days:    days,
	})
}
