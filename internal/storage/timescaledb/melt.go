package timescaledb

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/cemaneige/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnowmeltReading is one day of a stored melt run
type SnowmeltReading struct {
	Site        string    `gorm:"primaryKey;column:site"`
	Bucket      time.Time `gorm:"primaryKey;column:bucket"`
	RunID       string    `gorm:"column:run_id;index"`
	Station     string    `gorm:"column:station"`
	Kf          float64   `gorm:"column:kf"`
	CTG         float64   `gorm:"column:ctg"`
	ThresholdMM float64   `gorm:"column:threshold_mm"`
	TempC       float64   `gorm:"column:temp_c"`
	PrecipMM    float64   `gorm:"column:precip_mm"`
	LiquidMM    float64   `gorm:"column:liquid_mm"`
	ComputedAt  time.Time `gorm:"column:computed_at"`
}

// TableName implements gorm's Tabler
func (SnowmeltReading) TableName() string {
	return "snowmelt_1d"
}

const createHypertableSQL = `SELECT create_hypertable('snowmelt_1d', 'bucket', if_not_exists => TRUE, migrate_data => TRUE);`

func (t *Storage) createTables(ctx context.Context) error {
	t.logger.Info("creating snowmelt table...")
	if err := t.gormDB.WithContext(ctx).AutoMigrate(&SnowmeltReading{}); err != nil {
		return fmt.Errorf("could not create snowmelt table: %w", err)
	}

	// Plain PostgreSQL works too, just without the hypertable
	if err := t.gormDB.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		t.logger.Warnf("could not convert snowmelt_1d to a hypertable: %v", err)
	}
	return nil
}

// StoreMelt upserts every day of the run, keyed by site and day
func (t *Storage) StoreMelt(ctx context.Context, run storage.MeltRun) error {
	if len(run.Days) != len(run.Output) {
		return fmt.Errorf("melt run %s has %d days but %d outputs", run.ID, len(run.Days), len(run.Output))
	}
	if len(run.Days) == 0 {
		return nil
	}

	readings := make([]SnowmeltReading, len(run.Days))
	for i, d := range run.Days {
		readings[i] = SnowmeltReading{
			Site:        run.Site,
			Bucket:      d.Date,
			RunID:       run.ID.String(),
			Station:     run.Station,
			Kf:          run.Params.Kf,
			CTG:         run.Params.CTG,
			ThresholdMM: run.Threshold,
			TempC:       d.TempC,
			PrecipMM:    d.PrecipMM,
			LiquidMM:    run.Output[i],
			ComputedAt:  run.ComputedAt,
		}
	}

	err := t.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "site"}, {Name: "bucket"}},
			UpdateAll: true,
		}).CreateInBatches(readings, 500).Error
	})
	if err != nil {
		return fmt.Errorf("could not store melt run %s: %w", run.ID, err)
	}

	t.logger.Debugf("stored %d melt days for %s (run %s)", len(readings), run.Site, run.ID)
	return nil
}
