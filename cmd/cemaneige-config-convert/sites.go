package main

import (
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/pkg/config"
)

const dateLayout = "2006-01-02"

// siteEditor is the part of the SQLite provider that edits sites in place
type siteEditor interface {
	PutSite(site *config.SiteData) error
	DeleteSite(name string) error
}

// buildSite assembles a site from the command line. Parameters outside the
// calibration bounds are refused rather than clipped.
func buildSite(name, station, start, end string, kf, ctg float64) (*config.SiteData, error) {
	site := &config.SiteData{
		Name:    name,
		Station: station,
		Params:  cemaneige.Params{Kf: kf, CTG: ctg},
	}
	if site.Station == "" {
		site.Station = name
	}

	var err error
	if start != "" {
		if site.Start, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if site.End, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		if !site.End.After(site.Start) {
			return nil, fmt.Errorf("end %s is not after start %s", end, start)
		}
	}

	if err := site.Params.Validate(); err != nil {
		return nil, err
	}
	if err := cemaneige.ParamBounds().Check(site.Params); err != nil {
		return nil, err
	}
	return site, nil
}

// editSites applies a put, a delete, or both (put first) to the configuration database
func editSites(e siteEditor, put *config.SiteData, del string) error {
	if put != nil {
		if err := e.PutSite(put); err != nil {
			return err
		}
		fmt.Printf("Saved site %s (station %s): Kf=%g CTG=%g\n", put.Name, put.Station, put.Params.Kf, put.Params.CTG)
	}
	if del != "" {
		if err := e.DeleteSite(del); err != nil {
			return err
		}
		fmt.Printf("Deleted site %s\n", del)
	}
	return nil
}
