package suite

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"runtime"
	"sync"
	"time"
	"treelox/pkg/driver"
	"treelox/pkg/expect"
	"treelox/pkg/source"
)

const debugSuite = false

func debugPrintf(format string, args ...interface{}) {
	if debugSuite {
		fmt.Printf("[Suite] "+format, args...)
	}
}

// Config controls a suite run.
type Config struct {
	FS       fs.FS         // scripts are read from here
	Workers  int           // <= 0 means one per CPU
	Timeout  time.Duration // per script; 0 disables it
	MaxDepth int           // Lox call depth limit; 0 keeps the default
	Verbose  bool          // report passing scripts too
	Log      io.Writer     // progress lines; nil discards them
}

// Stats tracks run statistics
type Stats struct {
	Total    int
	Passed   int
	Failed   int
	Timeouts int
	Skipped  int
	Duration time.Duration
}

// Result represents the result of a single script
type Result struct {
	Path     string
	Passed   bool
	Failed   bool
	TimedOut bool
	Skipped  bool
	Failures []string
	Duration time.Duration
}

type job struct {
	index int
	path  string
}

// Run executes every script in its own session on a bounded pool of
// workers. Results come back in the order of scripts. Cancelling ctx skips
// the scripts that have not started yet and interrupts the running ones.
func Run(ctx context.Context, scripts []string, cfg Config) ([]Result, Stats) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(scripts) {
		workers = len(scripts)
	}
	log := cfg.Log
	if log == nil {
		log = io.Discard
	}

	start := time.Now()
	results := make([]Result, len(scripts))
	jobs := make(chan job)
	done := make(chan int, len(scripts))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results[j.index] = Result{Path: j.path, Skipped: true}
				} else {
					results[j.index] = runOne(ctx, j.path, cfg)
				}
				debugPrintf("worker %d finished %s\n", id, j.path)
				done <- j.index
			}
		}(i)
	}

	go func() {
		for i, p := range scripts {
			jobs <- job{index: i, path: p}
		}
		close(jobs)
		wg.Wait()
		close(done)
	}()

	stats := Stats{Total: len(scripts)}
	finished := 0
	for index := range done {
		finished++
		r := results[index]
		switch {
		case r.Skipped:
			stats.Skipped++
		case r.TimedOut:
			stats.Timeouts++
			fmt.Fprintf(log, "TIMEOUT %d/%d %s - exceeded %v\n", finished, stats.Total, r.Path, cfg.Timeout)
		case r.Failed:
			stats.Failed++
			fmt.Fprintf(log, "FAIL %d/%d %s\n", finished, stats.Total, r.Path)
			for _, failure := range r.Failures {
				fmt.Fprintf(log, "    %s\n", failure)
			}
		default:
			stats.Passed++
			if cfg.Verbose {
				fmt.Fprintf(log, "PASS %d/%d %s (%v)\n", finished, stats.Total, r.Path, r.Duration)
			}
		}
	}
	stats.Duration = time.Since(start)
	return results, stats
}

// runOne runs a single script. A panic anywhere below is reported as a
// failure of that script only.
func runOne(ctx context.Context, p string, cfg Config) (result Result) {
	started := time.Now()
	result.Path = p
	defer func() {
		if r := recover(); r != nil {
			result.Passed, result.TimedOut = false, false
			result.Failed = true
			result.Failures = append(result.Failures, fmt.Sprintf("script panicked: %v", r))
		}
		result.Duration = time.Since(started)
	}()

	content, err := fs.ReadFile(cfg.FS, p)
	if err != nil {
		result.Failed = true
		result.Failures = []string{fmt.Sprintf("failed to read script: %v", err)}
		return result
	}
	expectation, err := expect.Parse(string(content))
	if err != nil {
		result.Failed = true
		result.Failures = []string{fmt.Sprintf("failed to parse expectations: %v", err)}
		return result
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var opts []driver.Option
	if cfg.MaxDepth > 0 {
		opts = append(opts, driver.WithMaxDepth(cfg.MaxDepth))
	}
	sf := source.NewSourceFile(path.Base(p), p, string(content))
	outcome := driver.RunSource(runCtx, sf, opts...)

	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		return result
	}

	result.Failures = expectation.Check(outcome)
	result.Passed = len(result.Failures) == 0
	result.Failed = !result.Passed
	return result
}

// PrintSummary writes the totals of a run.
func PrintSummary(w io.Writer, stats Stats) {
	percent := func(n int) float64 {
		if stats.Total == 0 {
			return 0
		}
		return float64(n) / float64(stats.Total) * 100
	}
	fmt.Fprintf(w, "\n=== Lox Suite Summary ===\n")
	fmt.Fprintf(w, "Total:    %d\n", stats.Total)
	fmt.Fprintf(w, "Passed:   %d (%.1f%%)\n", stats.Passed, percent(stats.Passed))
	fmt.Fprintf(w, "Failed:   %d (%.1f%%)\n", stats.Failed, percent(stats.Failed))
	fmt.Fprintf(w, "Timeouts: %d (%.1f%%)\n", stats.Timeouts, percent(stats.Timeouts))
	fmt.Fprintf(w, "Skipped:  %d (%.1f%%)\n", stats.Skipped, percent(stats.Skipped))
	fmt.Fprintf(w, "Duration: %v\n", stats.Duration)
	fmt.Fprintf(w, "=========================\n")
}
