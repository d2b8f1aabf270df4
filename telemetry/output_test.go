package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/bobbeltank/config"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager, got %v %v", om, err)
	}
	// All methods are safe on nil
	if err := om.WriteRound(RoundRecord{}); err != nil {
		t.Error(err)
	}
	if err := om.WritePerf(PerfStats{}, 0, 0); err != nil {
		t.Error(err)
	}
	if path, err := om.WriteSnapshot(&Snapshot{}); path != "" || err != nil {
		t.Error("nil manager should not write snapshots")
	}
	if om.Dir() != "" || om.Close() != nil {
		t.Error("nil manager should be inert")
	}
}

func TestOutputManagerWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := om.WriteRound(RoundRecord{Round: i, Steps: i * 10, Catcher: "Wilson"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WritePerf(PerfStats{PhasePct: map[string]float64{}}, 1, 100); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "rounds.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "round,steps,") {
		t.Errorf("header %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "2,20,") || !strings.Contains(lines[2], "Wilson") {
		t.Errorf("row %q", lines[2])
	}

	perf, _ := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if !strings.HasPrefix(string(perf), "step,round,") {
		t.Errorf("perf.csv header %q", perf)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config should load back: %v", err)
	}
}
