package timescaledb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/storage"
	"go.uber.org/zap"
)

// The weather_1d aggregate stores temperature in °F and rain in inches
const fetchDailyForcingSQL = `
	SELECT bucket, outtemp, COALESCE(period_rain, 0)
	FROM weather_1d
	WHERE stationname = $1
	  AND bucket >= $2
	  AND bucket < $3
	  AND outtemp IS NOT NULL
	ORDER BY bucket`

// FahrenheitToCelsius converts °F to °C
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// InchesToMM converts inches to millimeters
func InchesToMM(in float64) float64 {
	return in * 25.4
}

// ForcingReader reads daily forcing over a plain database/sql connection
type ForcingReader struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewForcingReader wraps an open "postgres" connection
func NewForcingReader(db *sql.DB, logger *zap.SugaredLogger) *ForcingReader {
	return &ForcingReader{db: db, logger: logger}
}

// FetchDailySeries returns the station's daily mean temperature and total rain
// in [start, end). Days without a temperature are skipped; filling those gaps
// is left to the caller.
func (t *ForcingReader) FetchDailySeries(ctx context.Context, station string, start, end time.Time) ([]cemaneige.Day, error) {
	rows, err := t.db.QueryContext(ctx, fetchDailyForcingSQL, station, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily forcing: %w", err)
	}
	defer rows.Close()

	var series []cemaneige.Day
	for rows.Next() {
		var bucket time.Time
		var tempF, rainIn float64
		if err := rows.Scan(&bucket, &tempF, &rainIn); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		series = append(series, cemaneige.Day{
			Date:     bucket.UTC(),
			TempC:    FahrenheitToCelsius(tempF),
			PrecipMM: InchesToMM(rainIn),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w for %s between %s and %s", storage.ErrNoData, station,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	t.logger.Debugf("fetched %d forcing days for %s from %s to %s", len(series), station,
		series[0].Date.Format("2006-01-02"), series[len(series)-1].Date.Format("2006-01-02"))
	return series, nil
}
