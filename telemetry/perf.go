package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one simulation step.
const (
	PhaseSnapshot   = "snapshot"
	PhasePerception = "perception"
	PhaseBehavior   = "behavior"
	PhaseDisplay    = "display"
	PhaseTelemetry  = "telemetry"
)

// Phases lists the step phases in execution order.
var Phases = []string{PhaseSnapshot, PhasePerception, PhaseBehavior, PhaseDisplay, PhaseTelemetry}

type perfSample struct {
	step   time.Duration
	phases map[string]time.Duration
}

// PerfCollector tracks step timing over a rolling window.
type PerfCollector struct {
	window  int
	samples []perfSample
	next    int
	count   int

	phases     map[string]time.Duration
	stepStart  time.Time
	phaseStart time.Time
	phase      string

	lastFrame time.Time
	frame     time.Duration

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over window steps.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		window:  window,
		samples: make([]perfSample, window),
		phases:  make(map[string]time.Duration),
		now:     time.Now,
	}
}

// StartStep begins timing a simulation step.
func (p *PerfCollector) StartStep() {
	p.stepStart = p.now()
	p.phases = make(map[string]time.Duration)
	p.phase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	if p.phase != "" {
		p.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.phase = phase
}

// EndStep closes the step and records its sample.
func (p *PerfCollector) EndStep() {
	now := p.now()
	if p.phase != "" {
		p.phases[p.phase] += now.Sub(p.phaseStart)
		p.phase = ""
	}

	p.samples[p.next] = perfSample{step: now.Sub(p.stepStart), phases: p.phases}
	p.next = (p.next + 1) % p.window
	if p.count < p.window {
		p.count++
	}
}

// RecordFrame records frame timing in windowed mode.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats holds aggregated timing statistics.
type PerfStats struct {
	AvgStep time.Duration
	MinStep time.Duration
	MaxStep time.Duration

	// Average duration and share of the step per phase
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	StepsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frame > 0 {
		fps = float64(time.Second) / float64(p.frame)
	}
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frame,
		FPS:           fps,
	}
	if p.count == 0 {
		return s
	}

	var total time.Duration
	sums := make(map[string]time.Duration)
	for i := 0; i < p.count; i++ {
		smp := p.samples[i]
		total += smp.step
		if i == 0 || smp.step < s.MinStep {
			s.MinStep = smp.step
		}
		if smp.step > s.MaxStep {
			s.MaxStep = smp.step
		}
		for phase, d := range smp.phases {
			sums[phase] += d
		}
	}

	s.AvgStep = total / time.Duration(p.count)
	for phase, sum := range sums {
		s.PhaseAvg[phase] = sum / time.Duration(p.count)
		if s.AvgStep > 0 {
			s.PhasePct[phase] = float64(s.PhaseAvg[phase]) / float64(s.AvgStep) * 100
		}
	}
	if s.AvgStep > 0 {
		s.StepsPerSecond = float64(time.Second) / float64(s.AvgStep)
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStep.Microseconds()),
		slog.Int64("min_step_us", s.MinStep.Microseconds()),
		slog.Int64("max_step_us", s.MaxStep.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is the flat perf.csv row.
type PerfStatsCSV struct {
	Step          int     `csv:"step"`
	Round         int     `csv:"round"`
	AvgStepUS     int64   `csv:"avg_step_us"`
	MinStepUS     int64   `csv:"min_step_us"`
	MaxStepUS     int64   `csv:"max_step_us"`
	StepsPerSec   float64 `csv:"steps_per_sec"`
	FPS           float64 `csv:"fps"`
	SnapshotPct   float64 `csv:"snapshot_pct"`
	PerceptionPct float64 `csv:"perception_pct"`
	BehaviorPct   float64 `csv:"behavior_pct"`
	DisplayPct    float64 `csv:"display_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at step of round.
func (s PerfStats) ToCSV(round, step int) PerfStatsCSV {
	return PerfStatsCSV{
		Step:          step,
		Round:         round,
		AvgStepUS:     s.AvgStep.Microseconds(),
		MinStepUS:     s.MinStep.Microseconds(),
		MaxStepUS:     s.MaxStep.Microseconds(),
		StepsPerSec:   s.StepsPerSecond,
		FPS:           s.FPS,
		SnapshotPct:   s.PhasePct[PhaseSnapshot],
		PerceptionPct: s.PhasePct[PhasePerception],
		BehaviorPct:   s.PhasePct[PhaseBehavior],
		DisplayPct:    s.PhasePct[PhaseDisplay],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
