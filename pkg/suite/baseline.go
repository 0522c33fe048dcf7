package suite

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	scriptsBucket = []byte("scripts")
	runsBucket    = []byte("runs")
)

const (
	statusPass = "pass"
	statusFail = "fail"
)

// Baseline remembers which scripts passed in the last recorded run, and a
// history of run totals.
type Baseline struct {
	db *bolt.DB
}

// RunRecord is the stored summary of one recorded run.
type RunRecord struct {
	Seq      uint64        `json:"seq"`
	Time     time.Time     `json:"time"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Timeouts int           `json:"timeouts"`
	Duration time.Duration `json:"duration"`
}

// Diff compares a run with the baseline.
type Diff struct {
	Regressions []string // passed before, fail now
	Fixes       []string // failed before, pass now
	Added       []string // not in the baseline yet
}

// OpenBaseline opens or creates the baseline database at path.
func OpenBaseline(path string) (*Baseline, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{scriptsBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize baseline %q: %w", path, err)
	}
	return &Baseline{db: db}, nil
}

func (b *Baseline) Close() error {
	return b.db.Close()
}

// Load returns the recorded pass/fail state of every script.
func (b *Baseline) Load() (map[string]bool, error) {
	passed := make(map[string]bool)
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(scriptsBucket).ForEach(func(k, v []byte) error {
			passed[string(k)] = string(v) == statusPass
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}
	return passed, nil
}

// Compare reports how results differ from the baseline. Skipped scripts
// are ignored; a timeout counts as a failure.
func (b *Baseline) Compare(results []Result) (Diff, error) {
	previous, err := b.Load()
	if err != nil {
		return Diff{}, err
	}

	var diff Diff
	for _, r := range results {
		if r.Skipped {
			continue
		}
		before, known := previous[r.Path]
		switch {
		case !known:
			diff.Added = append(diff.Added, r.Path)
		case before && !r.Passed:
			diff.Regressions = append(diff.Regressions, r.Path)
		case !before && r.Passed:
			diff.Fixes = append(diff.Fixes, r.Path)
		}
	}
	sort.Strings(diff.Regressions)
	sort.Strings(diff.Fixes)
	sort.Strings(diff.Added)
	return diff, nil
}

// Record stores results as the new baseline and appends stats to the run
// history, in one transaction.
func (b *Baseline) Record(results []Result, stats Stats) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		scripts := tx.Bucket(scriptsBucket)
		for _, r := range results {
			if r.Skipped {
				continue
			}
			status := statusFail
			if r.Passed {
				status = statusPass
			}
			if err := scripts.Put([]byte(r.Path), []byte(status)); err != nil {
				return err
			}
		}

		runs := tx.Bucket(runsBucket)
		seq, err := runs.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(RunRecord{
			Seq:      seq,
			Time:     time.Now().UTC(),
			Total:    stats.Total,
			Passed:   stats.Passed,
			Failed:   stats.Failed,
			Timeouts: stats.Timeouts,
			Duration: stats.Duration,
		})
		if err != nil {
			return err
		}
		return runs.Put(seqKey(seq), data)
	})
	if err != nil {
		return fmt.Errorf("failed to record baseline: %w", err)
	}
	return nil
}

// Runs returns the recorded run history, oldest first.
func (b *Baseline) Runs() ([]RunRecord, error) {
	var records []RunRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	return records, nil
}

// seqKey encodes seq big-endian so keys sort in run order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
