// Package sqlite is a local forcing source and melt sink backed by a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
	"github.com/chrissnell/cemaneige/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dayLayout = "2006-01-02"

// Store holds the SQLite connection
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// SQLite allows a single writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	m := migrate.NewMigrator(db, MigrationProvider(), logger)
	if err := m.MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// MigrationProvider returns the store's embedded schema migrations
func MigrationProvider() *migrate.FSProvider {
	return migrate.NewFSProvider(migrations, "migrations", "", "sqlite")
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// PutForcing upserts daily forcing for a station
func (s *Store) PutForcing(ctx context.Context, station string, series []cemaneige.Day) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_forcing (station, day, temp_c, precip_mm)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (station, day) DO UPDATE SET
			temp_c = excluded.temp_c,
			precip_mm = excluded.precip_mm`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range series {
		if _, err := stmt.ExecContext(ctx, station, d.Date.Format(dayLayout), d.TempC, d.PrecipMM); err != nil {
			return fmt.Errorf("failed to insert forcing for %s: %w", d.Date.Format(dayLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debugf("stored %d forcing days for %s", len(series), station)
	return nil
}

// FetchDailySeries returns forcing for station in [start, end)
func (s *Store) FetchDailySeries(ctx context.Context, station string, start, end time.Time) ([]cemaneige.Day, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, temp_c, precip_mm
		 FROM daily_forcing
		 WHERE station = ? AND day >= ? AND day < ?
		 ORDER BY day`,
		station, start.Format(dayLayout), end.Format(dayLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forcing: %w", err)
	}
	defer rows.Close()

	var series []cemaneige.Day
	for rows.Next() {
		var day string
		var d cemaneige.Day
		if err := rows.Scan(&day, &d.TempC, &d.PrecipMM); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if d.Date, err = time.Parse(dayLayout, day); err != nil {
			return nil, fmt.Errorf("bad day %q in daily_forcing: %w", day, err)
		}
		series = append(series, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w for %s between %s and %s", storage.ErrNoData, station,
			start.Format(dayLayout), end.Format(dayLayout))
	}
	return series, nil
}

// StoreMelt replaces the stored melt series of run.Site over the run's span
func (s *Store) StoreMelt(ctx context.Context, run storage.MeltRun) error {
	if len(run.Days) != len(run.Output) {
		return fmt.Errorf("melt run %s has %d days but %d outputs", run.ID, len(run.Days), len(run.Output))
	}
	if len(run.Days) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	first := run.Days[0].Date.Format(dayLayout)
	last := run.Days[len(run.Days)-1].Date.Format(dayLayout)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snowmelt_1d WHERE site = ? AND day >= ? AND day <= ?`,
		run.Site, first, last,
	); err != nil {
		return fmt.Errorf("failed to delete overlapping melt rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snowmelt_1d
			(site, day, run_id, station, kf, ctg, threshold_mm, temp_c, precip_mm, liquid_mm, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	computedAt := run.ComputedAt.UTC().Format(time.RFC3339)
	for i, d := range run.Days {
		if _, err := stmt.ExecContext(ctx,
			run.Site, d.Date.Format(dayLayout), run.ID.String(), run.Station,
			run.Params.Kf, run.Params.CTG, run.Threshold,
			d.TempC, d.PrecipMM, run.Output[i], computedAt,
		); err != nil {
			return fmt.Errorf("failed to insert melt row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debugf("stored %d melt days for %s (run %s)", len(run.Days), run.Site, run.ID)
	return nil
}

// FetchMelt returns the stored melt series of a site in [start, end)
func (s *Store) FetchMelt(ctx context.Context, site string, start, end time.Time) ([]storage.MeltDay, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, run_id, temp_c, precip_mm, liquid_mm
		 FROM snowmelt_1d
		 WHERE site = ? AND day >= ? AND day < ?
		 ORDER BY day`,
		site, start.Format(dayLayout), end.Format(dayLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch melt: %w", err)
	}
	defer rows.Close()

	var days []storage.MeltDay
	for rows.Next() {
		var day string
		var m storage.MeltDay
		if err := rows.Scan(&day, &m.RunID, &m.TempC, &m.PrecipMM, &m.LiquidMM); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if m.Date, err = time.Parse(dayLayout, day); err != nil {
			return nil, fmt.Errorf("bad day %q in snowmelt_1d: %w", day, err)
		}
		days = append(days, m)
	}
	return days, rows.Err()
}

// CheckHealth pings the database
func (s *Store) CheckHealth(ctx context.Context) *storage.HealthData {
	return storage.PingHealth(ctx, s.db)
}
