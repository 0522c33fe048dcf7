package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"
	"treelox/pkg/suite"
)

func main() {
	// Parse command line flags
	var (
		scriptPath = flag.String("path", "", "Directory containing Lox test scripts")
		pattern    = flag.String("pattern", suite.DefaultPattern, "File pattern for script base names")
		verbose    = flag.Bool("verbose", false, "Verbose output")
		limit      = flag.Int("limit", 0, "Limit number of scripts to run (0 = no limit)")
		timeout    = flag.Duration("timeout", 5*time.Second, "Timeout per script (e.g., 5s, 1m)")
		workers    = flag.Int("workers", 0, "Number of scripts run in parallel (0 = one per CPU)")
		maxDepth   = flag.Int("max-depth", 0, "Maximum Lox call depth (0 = default)")
		baseline   = flag.String("baseline", "", "bbolt database holding the pass/fail baseline")
		update     = flag.Bool("update", false, "Record this run as the new baseline")
	)

	flag.Parse()

	if *scriptPath == "" {
		fmt.Fprintf(os.Stderr, "Error: script path not specified\n")
		fmt.Fprintf(os.Stderr, "Usage: %s -path /path/to/scripts\n", os.Args[0])
		os.Exit(1)
	}
	if info, err := os.Stat(*scriptPath); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: script directory not found at %s\n", *scriptPath)
		os.Exit(1)
	}

	fmt.Printf("Running Lox scripts from: %s\n", *scriptPath)

	fsys := os.DirFS(*scriptPath)
	scripts, err := suite.Discover(fsys, *pattern)
	if err != nil {
		log.Fatal("could not discover scripts: ", err)
	}
	if *limit > 0 && len(scripts) > *limit {
		scripts = scripts[:*limit]
	}
	fmt.Printf("Found %d scripts\n", len(scripts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, stats := suite.Run(ctx, scripts, suite.Config{
		FS:       fsys,
		Workers:  *workers,
		Timeout:  *timeout,
		MaxDepth: *maxDepth,
		Verbose:  *verbose,
		Log:      os.Stdout,
	})
	suite.PrintSummary(os.Stdout, stats)

	regressions := 0
	if *baseline != "" {
		regressions = compareBaseline(*baseline, *update, results, stats)
	}

	// Exit with appropriate code
	if stats.Failed > 0 || stats.Timeouts > 0 || regressions > 0 {
		os.Exit(1)
	}
}

// compareBaseline reports the difference to the stored baseline and
// optionally records this run. It returns the number of regressions.
func compareBaseline(path string, update bool, results []suite.Result, stats suite.Stats) int {
	b, err := suite.OpenBaseline(path)
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	diff, err := b.Compare(results)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\n=== Baseline (%s) ===\n", path)
	fmt.Printf("Regressions: %d\n", len(diff.Regressions))
	for _, p := range diff.Regressions {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Printf("Fixes:       %d\n", len(diff.Fixes))
	for _, p := range diff.Fixes {
		fmt.Printf("  + %s\n", p)
	}
	fmt.Printf("New:         %d\n", len(diff.Added))

	if update {
		if err := b.Record(results, stats); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Baseline updated\n")
	}
	return len(diff.Regressions)
}
