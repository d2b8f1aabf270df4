package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/bobbeltank/config"
)

// csvLog appends rows to a CSV file, writing the header with the first row.
type csvLog struct {
	file   *os.File
	header bool
}

func openCSV(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{file: f}, nil
}

func (l *csvLog) write(rows any) error {
	if !l.header {
		l.header = true
		return gocsv.Marshal(rows, l.file)
	}
	return gocsv.MarshalWithoutHeaders(rows, l.file)
}

// OutputManager writes run output: rounds.csv, perf.csv, config.yaml and
// state snapshots. A nil *OutputManager is valid and writes nothing.
type OutputManager struct {
	dir    string
	rounds *csvLog
	perf   *csvLog
}

// NewOutputManager creates dir and opens the CSV logs.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	rounds, err := openCSV(dir, "rounds.csv")
	if err != nil {
		return nil, err
	}
	perf, err := openCSV(dir, "perf.csv")
	if err != nil {
		rounds.file.Close()
		return nil, err
	}
	return &OutputManager{dir: dir, rounds: rounds, perf: perf}, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteRound appends a finished round to rounds.csv.
func (om *OutputManager) WriteRound(r RoundRecord) error {
	if om == nil {
		return nil
	}
	if err := om.rounds.write([]RoundRecord{r}); err != nil {
		return fmt.Errorf("writing round: %w", err)
	}
	return nil
}

// WritePerf appends a perf window to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, round, step int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(round, step)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteSnapshot saves s into the output directory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, om.dir)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.rounds.file.Close(), om.perf.file.Close())
}
