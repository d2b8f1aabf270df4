package telemetry

import (
	"math"
	"testing"
	"time"
)

// fakeClock only moves when advanced.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) now() time.Time          { return c.t }

func newTestPerf(window int) (*PerfCollector, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	pc := NewPerfCollector(window)
	pc.now = clk.now
	return pc, clk
}

func TestPerfCollectorPhases(t *testing.T) {
	pc, clk := newTestPerf(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhasePerception)
		clk.advance(300 * time.Microsecond)
		pc.StartPhase(PhaseBehavior)
		clk.advance(100 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.AvgStep != 400*time.Microsecond {
		t.Errorf("avg step %v, want 400µs", stats.AvgStep)
	}
	if stats.PhaseAvg[PhasePerception] != 300*time.Microsecond {
		t.Errorf("perception avg %v", stats.PhaseAvg[PhasePerception])
	}
	if math.Abs(stats.PhasePct[PhaseBehavior]-25) > 1e-9 {
		t.Errorf("behavior pct %v, want 25", stats.PhasePct[PhaseBehavior])
	}
	if math.Abs(stats.StepsPerSecond-2500) > 1e-6 {
		t.Errorf("steps/sec %v, want 2500", stats.StepsPerSecond)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clk := newTestPerf(3)

	durations := []time.Duration{10, 10, 10, 40, 40, 40}
	for _, d := range durations {
		pc.StartStep()
		pc.StartPhase(PhaseSnapshot)
		clk.advance(d * time.Millisecond)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.AvgStep != 40*time.Millisecond {
		t.Errorf("window should only hold the last 3 steps, avg %v", stats.AvgStep)
	}
	if stats.MinStep != 40*time.Millisecond || stats.MaxStep != 40*time.Millisecond {
		t.Errorf("min/max %v/%v", stats.MinStep, stats.MaxStep)
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	pc := NewPerfCollector(0)
	stats := pc.Stats()

	if stats.AvgStep != 0 {
		t.Error("expected zero avg step for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollectorFrameTiming(t *testing.T) {
	pc, clk := newTestPerf(10)

	pc.RecordFrame()
	clk.advance(20 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration != 20*time.Millisecond {
		t.Errorf("frame duration %v", stats.FrameDuration)
	}
	if math.Abs(stats.FPS-50) > 1e-9 {
		t.Errorf("fps %v, want 50", stats.FPS)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgStep:  2 * time.Millisecond,
		PhasePct: map[string]float64{PhaseDisplay: 60, PhaseTelemetry: 5},
	}
	row := s.ToCSV(3, 120)
	if row.Round != 3 || row.Step != 120 || row.AvgStepUS != 2000 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.DisplayPct != 60 || row.TelemetryPct != 5 || row.PerceptionPct != 0 {
		t.Errorf("phase columns %+v", row)
	}
}
