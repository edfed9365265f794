// Package config loads site, storage and server settings from a YAML file or
// a SQLite database.
package config

import (
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Defaults applied when a provider leaves a setting empty
const (
	DefaultListenAddr = "0.0.0.0"
	DefaultPort       = 8080
	DefaultWorkers    = 4
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSites() ([]SiteData, error)
	GetStorageConfig() (*StorageData, error)
	GetServerConfig() (*ServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Sites   []SiteData  `json:"sites"`
	Storage StorageData `json:"storage,omitempty"`
	Server  ServerData  `json:"server,omitempty"`
	Batch   BatchData   `json:"batch,omitempty"`
}

// SiteData is a station to simulate with its own parameter set
type SiteData struct {
	Name    string           `json:"name"`
	Station string           `json:"station"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"` // exclusive; zero means today
	Params  cemaneige.Params `json:"params"`
}

// StorageData holds the configuration for the storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

// ServerData configures the REST server
type ServerData struct {
	ListenAddr  string `json:"listen_addr,omitempty"`
	Port        int    `json:"port,omitempty"`
	TLSCertPath string `json:"tls_cert_path,omitempty"`
	TLSKeyPath  string `json:"tls_key_path,omitempty"`
}

// BatchData configures the batch runner
type BatchData struct {
	Workers int `json:"workers,omitempty"`
}

// Site returns the site with the given name
func (c *ConfigData) Site(name string) (SiteData, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteData{}, false
}

// Load reads the configuration from p, fills in defaults and clips site
// parameters that fall outside the calibration bounds.
func Load(p ConfigProvider, logger *zap.SugaredLogger) (*ConfigData, error) {
	cfg, err := p.LoadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = DefaultWorkers
	}

	seen := make(map[string]bool, len(cfg.Sites))
	bounds := cemaneige.ParamBounds()
	for i := range cfg.Sites {
		site := &cfg.Sites[i]
		if site.Name == "" {
			return nil, fmt.Errorf("site %d has no name", i)
		}
		if seen[site.Name] {
			return nil, fmt.Errorf("site %s is defined more than once", site.Name)
		}
		seen[site.Name] = true
		if site.Station == "" {
			site.Station = site.Name
		}
		if !site.End.IsZero() && !site.End.After(site.Start) {
			return nil, fmt.Errorf("site %s: end %s is not after start %s", site.Name,
				site.End.Format(dateLayout), site.Start.Format(dateLayout))
		}

		if err := site.Params.Validate(); err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		if err := bounds.Check(site.Params); err != nil {
			clipped := bounds.Clip(site.Params)
			logger.Warnf("site %s: %v; using Kf=%g CTG=%g", site.Name, err, clipped.Kf, clipped.CTG)
			site.Params = clipped
		}
	}

	return cfg, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
