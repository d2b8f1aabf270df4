package game

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/bobbeltank/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestHeadlessMaxSteps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	g, err := New(loadConfig(t), Options{
		OutputDir: dir,
		Headless:  true,
		MaxSteps:  25,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := g.RunHeadless(context.Background()); err != nil {
		t.Fatal(err)
	}
	if g.Steps() != 25 || !g.Done() {
		t.Errorf("expected 25 steps, got %d", g.Steps())
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"config.yaml", "rounds.csv", "perf.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	snaps, _ := filepath.Glob(filepath.Join(dir, "snapshot_*.json"))
	if len(snaps) != 1 {
		t.Errorf("expected one final snapshot, got %v", snaps)
	}
}

func TestHeadlessRunsUntilCancelled(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Simulation.IntervalMS = 1
	cfg.Derived.Interval = time.Millisecond

	g, err := New(cfg, Options{Headless: true, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	if err := g.RunHeadless(ctx); err != nil {
		t.Fatalf("cancel should end the run cleanly, got %v", err)
	}
	if g.Steps() == 0 {
		t.Error("expected steps before cancellation")
	}
	if g.Sim().Running() {
		t.Error("timer should be disarmed after the run")
	}
}

func TestSnapshotWithoutOutput(t *testing.T) {
	g, err := New(loadConfig(t), Options{Headless: true, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	g.Snapshot()
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
}
