package config

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"time"

	"github.com/chrissnell/cemaneige/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Keys in the settings table
const (
	settingTimescaleDB  = "timescaledb.connection_string"
	settingSQLitePath   = "sqlite.path"
	settingListenAddr   = "server.listen_addr"
	settingPort         = "server.port"
	settingTLSCert      = "server.tls_cert_path"
	settingTLSKey       = "server.tls_key_path"
	settingBatchWorkers = "batch.workers"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the configuration database, creating its tables if needed
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	m := migrate.NewMigrator(db, MigrationProvider(), zap.NewNop().Sugar())
	if err := m.MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// MigrationProvider returns the embedded migrations of the configuration schema
func MigrationProvider() *migrate.FSProvider {
	return migrate.NewFSProvider(migrations, "migrations", "config_migrations", "sqlite")
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	sites, err := s.GetSites()
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	config.Sites = sites

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	server, err := s.GetServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	config.Server = *server

	settings, err := s.settings()
	if err != nil {
		return nil, err
	}
	if v, ok := settings[settingBatchWorkers]; ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", settingBatchWorkers, v, err)
		}
		config.Batch.Workers = workers
	}

	return config, nil
}

// GetSites returns site configurations from the database
func (s *SQLiteProvider) GetSites() ([]SiteData, error) {
	rows, err := s.db.Query(`SELECT name, station, start_date, end_date, kf, ctg FROM sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []SiteData
	for rows.Next() {
		var site SiteData
		var startDate, endDate sql.NullString

		if err := rows.Scan(&site.Name, &site.Station, &startDate, &endDate, &site.Params.Kf, &site.Params.CTG); err != nil {
			return nil, fmt.Errorf("failed to scan site row: %w", err)
		}

		if site.Start, err = parseDate(startDate.String); err != nil {
			return nil, fmt.Errorf("site %s: invalid start date: %w", site.Name, err)
		}
		if site.End, err = parseDate(endDate.String); err != nil {
			return nil, fmt.Errorf("site %s: invalid end date: %w", site.Name, err)
		}

		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}

	storage := &StorageData{}
	if v := settings[settingTimescaleDB]; v != "" {
		storage.TimescaleDB = &TimescaleDBData{ConnectionString: v}
	}
	if v := settings[settingSQLitePath]; v != "" {
		storage.SQLite = &SQLiteData{Path: v}
	}
	return storage, nil
}

// GetServerConfig returns the REST server configuration from the database
func (s *SQLiteProvider) GetServerConfig() (*ServerData, error) {
	settings, err := s.settings()
	if err != nil {
		return nil, err
	}

	server := &ServerData{
		ListenAddr:  settings[settingListenAddr],
		TLSCertPath: settings[settingTLSCert],
		TLSKeyPath:  settings[settingTLSKey],
	}
	if v, ok := settings[settingPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", settingPort, v, err)
		}
		server.Port = port
	}
	return server, nil
}

func (s *SQLiteProvider) settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sites`); err != nil {
		return fmt.Errorf("failed to clear sites: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}

	for i := range configData.Sites {
		if err := upsertSite(tx, &configData.Sites[i]); err != nil {
			return err
		}
	}

	settings := map[string]string{
		settingListenAddr: configData.Server.ListenAddr,
		settingTLSCert:    configData.Server.TLSCertPath,
		settingTLSKey:     configData.Server.TLSKeyPath,
	}
	if configData.Server.Port != 0 {
		settings[settingPort] = strconv.Itoa(configData.Server.Port)
	}
	if configData.Batch.Workers != 0 {
		settings[settingBatchWorkers] = strconv.Itoa(configData.Batch.Workers)
	}
	if configData.Storage.TimescaleDB != nil {
		settings[settingTimescaleDB] = configData.Storage.TimescaleDB.ConnectionString
	}
	if configData.Storage.SQLite != nil {
		settings[settingSQLitePath] = configData.Storage.SQLite.Path
	}
	for k, v := range settings {
		if v == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to insert setting %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// PutSite adds a site or replaces the one with the same name
func (s *SQLiteProvider) PutSite(site *SiteData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSite(tx, site); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSite removes a site by name
func (s *SQLiteProvider) DeleteSite(name string) error {
	result, err := s.db.Exec(`DELETE FROM sites WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("site not found: %s", name)
	}
	return nil
}

func upsertSite(tx *sql.Tx, site *SiteData) error {
	if err := site.Params.Validate(); err != nil {
		return fmt.Errorf("site %s: %w", site.Name, err)
	}

	_, err := tx.Exec(`
		INSERT INTO sites (name, station, start_date, end_date, kf, ctg)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			station = excluded.station,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			kf = excluded.kf,
			ctg = excluded.ctg`,
		site.Name, site.Station, nullDate(site.Start), nullDate(site.End), site.Params.Kf, site.Params.CTG)
	if err != nil {
		return fmt.Errorf("failed to save site %s: %w", site.Name, err)
	}
	return nil
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}
