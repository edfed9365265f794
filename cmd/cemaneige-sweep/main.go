// cemaneige-sweep runs the snow routine over one station's history for a grid
// of parameter sets and reports how sensitive the liquid water output is to
// Kf and CTG.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/chrissnell/cemaneige/internal/cemaneige"
	"github.com/chrissnell/cemaneige/internal/log"
	"github.com/chrissnell/cemaneige/internal/runner"
	"github.com/chrissnell/cemaneige/internal/storage/timescaledb"
	_ "github.com/lib/pq"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"
)

// GridSummary describes the spread of one metric across the grid
type GridSummary struct {
	Metric         string
	Mean           float64
	StdDev         float64
	Min            float64
	Median         float64
	Max            float64
	KfCorrelation  float64
	CTGCorrelation float64
}

func main() {
	var (
		dbHost    = flag.String("db-host", "localhost", "Database host")
		dbPort    = flag.Int("db-port", 5432, "Database port")
		dbUser    = flag.String("db-user", "postgres", "Database user")
		dbPass    = flag.String("db-pass", "", "Database password")
		dbName    = flag.String("db-name", "weather_v2_0_0", "Database name")
		station   = flag.String("station", "CSI", "Station name")
		startStr  = flag.String("start", "", "First day (YYYY-MM-DD), default one year before -end")
		endStr    = flag.String("end", "", "Day after the last day (YYYY-MM-DD), default today")
		kfSteps   = flag.Int("kf-steps", 10, "Number of Kf values across its bounds")
		ctgSteps  = flag.Int("ctg-steps", 11, "Number of CTG values across its bounds")
		workers   = flag.Int("workers", 4, "Parallel simulations")
		top       = flag.Int("top", 10, "Parameter sets to list, by total liquid water")
		csvOutput = flag.String("csv", "", "Optional CSV output file path")
		debug     = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if *top < 0 {
		fmt.Fprintf(os.Stderr, "Error: -top must not be negative\n")
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	start, end, err := parseSpan(*startStr, *endStr, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := log.Component("sweep")

	series, err := timescaledb.NewForcingReader(db, logger).FetchDailySeries(ctx, *station, start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching forcing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("CemaNeige Parameter Sweep\n")
	fmt.Printf("=========================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Station: %s\n", *station)
	fmt.Printf("  Period: %s to %s (%d days)\n", series[0].Date.Format("2006-01-02"),
		series[len(series)-1].Date.Format("2006-01-02"), len(series))
	fmt.Printf("  Grid: %d Kf x %d CTG\n", *kfSteps, *ctgSteps)
	fmt.Printf("  MASP: %.1f mm, Gthreshold: %.1f mm\n\n",
		cemaneige.MeanAnnualSolidPrecip(series), cemaneige.SnowThreshold(series))

	params := runner.Grid(cemaneige.ParamBounds(), *kfSteps, *ctgSteps)
	results, err := runner.New(nil, nil, *workers, logger).Sweep(ctx, series, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running sweep: %v\n", err)
		os.Exit(1)
	}

	displaySummaries(summarizeGrid(results))
	displayTop(results, *top)

	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, series, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nData exported to: %s\n", *csvOutput)
		}
	}
}

func parseSpan(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	end := now.Truncate(24 * time.Hour)
	if endStr != "" {
		var err error
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
	}

	start := end.AddDate(-1, 0, 0)
	if startStr != "" {
		var err error
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
		}
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end must be after -start")
	}
	return start, end, nil
}

func summarizeGrid(results []runner.SweepResult) []GridSummary {
	kf := make([]float64, len(results))
	ctg := make([]float64, len(results))
	metrics := map[string][]float64{
		"Total (mm)": make([]float64, len(results)),
		"Peak (mm)":  make([]float64, len(results)),
		"Melt days":  make([]float64, len(results)),
	}
	for i, r := range results {
		kf[i] = r.Params.Kf
		ctg[i] = r.Params.CTG
		metrics["Total (mm)"][i] = r.TotalMM
		metrics["Peak (mm)"][i] = r.PeakMM
		metrics["Melt days"][i] = float64(r.MeltDays)
	}

	var summaries []GridSummary
	for _, name := range []string{"Total (mm)", "Peak (mm)", "Melt days"} {
		values := metrics[name]
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		summaries = append(summaries, GridSummary{
			Metric:         name,
			Mean:           stat.Mean(values, nil),
			StdDev:         stat.StdDev(values, nil),
			Min:            sorted[0],
			Median:         stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Max:            sorted[len(sorted)-1],
			KfCorrelation:  stat.Correlation(kf, values, nil),
			CTGCorrelation: stat.Correlation(ctg, values, nil),
		})
	}
	return summaries
}

func displaySummaries(summaries []GridSummary) {
	fmt.Printf("Grid Summary\n")
	fmt.Printf("============\n\n")

	fmt.Printf("%-12s | %9s | %9s | %9s | %9s | %9s | %7s | %7s\n",
		"Metric", "Mean", "StdDev", "Min", "Median", "Max", "r(Kf)", "r(CTG)")
	fmt.Printf("-------------+-----------+-----------+-----------+-----------+-----------+---------+--------\n")
	for _, s := range summaries {
		fmt.Printf("%-12s | %9.2f | %9.2f | %9.2f | %9.2f | %9.2f | %7.3f | %7.3f\n",
			s.Metric, s.Mean, s.StdDev, s.Min, s.Median, s.Max, s.KfCorrelation, s.CTGCorrelation)
	}
	fmt.Println()
}

// topResults returns up to n results ordered by total liquid water, largest first
func topResults(results []runner.SweepResult, n int) []runner.SweepResult {
	sorted := append([]runner.SweepResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalMM > sorted[j].TotalMM
	})
	n = max(0, min(n, len(sorted)))
	return sorted[:n]
}

func displayTop(results []runner.SweepResult, n int) {
	top := topResults(results, n)

	fmt.Printf("Top %d Parameter Sets\n", len(top))
	fmt.Printf("=====================\n\n")
	fmt.Printf("%6s | %6s | %10s | %9s | %9s\n", "Kf", "CTG", "Total(mm)", "Peak(mm)", "Melt days")
	fmt.Printf("-------+--------+------------+-----------+----------\n")
	for _, r := range top {
		fmt.Printf("%6.2f | %6.3f | %10.1f | %9.2f | %9d\n",
			r.Params.Kf, r.Params.CTG, r.TotalMM, r.PeakMM, r.MeltDays)
	}
}

func exportCSV(filename string, series []cemaneige.Day, results []runner.SweepResult) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	writer := csv.NewWriter(file)

	header := []string{"Kf", "CTG", "Date", "Temperature_C", "Precip_mm", "Liquid_mm"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		for t, d := range series {
			record := []string{
				fmt.Sprintf("%.3f", r.Params.Kf),
				fmt.Sprintf("%.3f", r.Params.CTG),
				d.Date.Format("2006-01-02"),
				fmt.Sprintf("%.2f", d.TempC),
				fmt.Sprintf("%.2f", d.PrecipMM),
				fmt.Sprintf("%.3f", r.Output[t]),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
