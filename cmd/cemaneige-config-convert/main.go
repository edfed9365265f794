// cemaneige-config-convert copies a YAML configuration into a SQLite
// configuration database, or adds and removes sites in an existing one.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/cemaneige/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")

		putSite    = flag.String("put-site", "", "Add or replace the named site in the SQLite database")
		station    = flag.String("station", "", "Station of -put-site (defaults to the site name)")
		start      = flag.String("start", "", "First day of -put-site, YYYY-MM-DD")
		end        = flag.String("end", "", "Day after the last day of -put-site, YYYY-MM-DD")
		kf         = flag.Float64("kf", 0, "Degree-day melt factor of -put-site, mm/(day·°C)")
		ctg        = flag.Float64("ctg", 0, "Snowpack thermal-state coefficient of -put-site")
		deleteSite = flag.String("delete-site", "", "Remove the named site from the SQLite database")
	)
	flag.Parse()

	if *sqliteFile != "" && (*putSite != "" || *deleteSite != "") {
		runSiteEdit(*sqliteFile, *putSite, *station, *start, *end, *kf, *ctg, *deleteSite)
		return
	}

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -sqlite <config.db> -put-site <name> -kf <kf> -ctg <ctg> [-station ...] [-start ...] [-end ...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -sqlite <config.db> -delete-site <name>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	printConfigSummary(configData)

	if *dryRun {
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	provider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	if err := provider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving configuration: %v\n", err)
		os.Exit(1)
	}

	// Read back to make sure the database round-trips
	saved, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying SQLite configuration: %v\n", err)
		os.Exit(1)
	}
	if len(saved.Sites) != len(configData.Sites) {
		fmt.Fprintf(os.Stderr, "Error: wrote %d sites but read back %d\n", len(configData.Sites), len(saved.Sites))
		os.Exit(1)
	}

	fmt.Printf("Conversion complete. Start the server with:\n")
	fmt.Printf("  cemaneige -config %s -config-backend sqlite serve\n", *sqliteFile)
}

func runSiteEdit(sqliteFile, name, station, start, end string, kf, ctg float64, del string) {
	if _, err := os.Stat(sqliteFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: SQLite file does not exist: %s\n", sqliteFile)
		os.Exit(1)
	}

	var put *config.SiteData
	if name != "" {
		site, err := buildSite(name, station, start, end, kf, ctg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: site %s: %v\n", name, err)
			os.Exit(1)
		}
		put = site
	}

	provider, err := config.NewSQLiteProvider(sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	if err := editSites(provider, put, del); err != nil {
		fmt.Fprintf(os.Stderr, "Error editing sites: %v\n", err)
		provider.Close()
		os.Exit(1)
	}
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Sites: %d\n", len(c.Sites))
	for _, s := range c.Sites {
		fmt.Printf("    - %s (station %s): Kf=%g CTG=%g\n", s.Name, s.Station, s.Params.Kf, s.Params.CTG)
	}
	if c.Storage.TimescaleDB != nil {
		fmt.Printf("  TimescaleDB: configured\n")
	}
	if c.Storage.SQLite != nil {
		fmt.Printf("  SQLite store: %s\n", c.Storage.SQLite.Path)
	}
	if c.Server.Port != 0 {
		fmt.Printf("  Server port: %d\n", c.Server.Port)
	}
	fmt.Println()
}
