package config

import (
	"fmt"
	"os"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML structs mirror ConfigData with yaml tags and string dates

type yamlConfig struct {
	Sites   []SiteYAML  `yaml:"sites"`
	Storage StorageYAML `yaml:"storage,omitempty"`
	Server  ServerYAML  `yaml:"server,omitempty"`
	Batch   BatchYAML   `yaml:"batch,omitempty"`
}

type SiteYAML struct {
	Name    string  `yaml:"name"`
	Station string  `yaml:"station,omitempty"`
	Start   string  `yaml:"start,omitempty"`
	End     string  `yaml:"end,omitempty"`
	Kf      float64 `yaml:"kf"`
	CTG     float64 `yaml:"ctg"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
	SQLite      *SQLiteYAML      `yaml:"sqlite,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type ServerYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
}

type BatchYAML struct {
	Workers int `yaml:"workers,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(cfgFile, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", y.filename, err)
	}

	config := &ConfigData{
		Sites: make([]SiteData, len(raw.Sites)),
		Server: ServerData{
			ListenAddr:  raw.Server.ListenAddr,
			Port:        raw.Server.Port,
			TLSCertPath: raw.Server.Cert,
			TLSKeyPath:  raw.Server.Key,
		},
		Batch: BatchData{Workers: raw.Batch.Workers},
	}

	for i, s := range raw.Sites {
		start, err := parseDate(s.Start)
		if err != nil {
			return nil, fmt.Errorf("site %s: invalid start date: %w", s.Name, err)
		}
		end, err := parseDate(s.End)
		if err != nil {
			return nil, fmt.Errorf("site %s: invalid end date: %w", s.Name, err)
		}
		config.Sites[i] = SiteData{
			Name:    s.Name,
			Station: s.Station,
			Start:   start,
			End:     end,
			Params:  cemaneige.Params{Kf: s.Kf, CTG: s.CTG},
		}
	}

	if raw.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: raw.Storage.TimescaleDB.ConnectionString,
		}
	}
	if raw.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: raw.Storage.SQLite.Path}
	}

	y.config = config
	return config, nil
}

// GetSites returns the configured sites
func (y *YAMLProvider) GetSites() ([]SiteData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sites, nil
}

// GetStorageConfig returns the storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// GetServerConfig returns the REST server configuration
func (y *YAMLProvider) GetServerConfig() (*ServerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Server, nil
}

// IsReadOnly returns true since YAML files are edited by hand
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
