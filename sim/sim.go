// Package sim drives the tank: a re-armable timer triggers steps, each step
// perceives against a snapshot, applies the behaviour strategy and hands
// one batched frame to the display.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/behavior"
	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/logging"
	"github.com/pthm-cable/bobbeltank/tank"
	"github.com/pthm-cable/bobbeltank/telemetry"
)

// Resetter is implemented by strategies with round-scoped state.
type Resetter interface {
	Reset()
}

// Options configures a Simulator. Zero fields get defaults.
type Options struct {
	Display  Display
	Logger   *slog.Logger
	Strategy behavior.Strategy
	Rand     *rand.Rand
	Output   *telemetry.OutputManager

	// OnRound is called with the record of every finished round.
	OnRound func(telemetry.RoundRecord)
}

// Simulator owns the tank and the step loop. Steps, restarts and
// start/stop are not safe for concurrent use; the busy guard only drops
// overlapping ticks.
type Simulator struct {
	cfg      *config.Config
	tank     *tank.Tank
	strategy behavior.Strategy
	display  Display
	log      *slog.Logger
	rng      *rand.Rand

	timer    Timer
	interval time.Duration
	busy     atomic.Bool

	step  int
	round int
	total int

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	records   []telemetry.RoundRecord
	onRound   func(telemetry.RoundRecord)
}

// New builds the tank from cfg. Configuration problems are logged and the
// offending parts skipped.
func New(cfg *config.Config, opts Options) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		display:   opts.Display,
		log:       opts.Logger,
		rng:       opts.Rand,
		strategy:  opts.Strategy,
		interval:  cfg.Derived.Interval,
		collector: telemetry.NewCollector(),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		output:    opts.Output,
		onRound:   opts.OnRound,
	}
	if s.display == nil {
		s.display = NopDisplay{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(cfg.Simulation.Seed))
	}
	if s.strategy == nil {
		s.strategy = behavior.New(cfg.Game, s.rng)
	}

	t, err := tank.New(cfg, s.rng)
	if err != nil {
		s.log.Error("configuration", "error", err)
	}
	s.tank = t
	return s
}

// Tank returns the current simulation state.
func (s *Simulator) Tank() *tank.Tank { return s.tank }

// StepCount returns the number of steps taken in the current round.
func (s *Simulator) StepCount() int { return s.step }

// TotalSteps returns the number of steps taken across all rounds.
func (s *Simulator) TotalSteps() int { return s.total }

// Round returns the current round, starting at 0.
func (s *Simulator) Round() int { return s.round }

// Records returns the records of every finished round.
func (s *Simulator) Records() []telemetry.RoundRecord { return s.records }

// Perf returns the step timing statistics.
func (s *Simulator) Perf() telemetry.PerfStats { return s.perf.Stats() }

// RecordFrame feeds frame timing from the graphical loop.
func (s *Simulator) RecordFrame() { s.perf.RecordFrame() }

// Start arms the step timer with the current interval.
func (s *Simulator) Start() {
	s.timer.Arm(s.interval)
	s.log.Info("simulation started", "interval", s.interval)
}

// Stop disarms the timer and restores the configured interval. A step in
// progress is not interrupted.
func (s *Simulator) Stop() {
	s.timer.Disarm()
	s.interval = s.cfg.Derived.Interval
	s.log.Info("simulation stopped", "round", s.round, "step", s.step)
}

// Running reports whether the step timer is armed.
func (s *Simulator) Running() bool { return s.timer.Armed() }

// Interval returns the step interval used by Start.
func (s *Simulator) Interval() time.Duration { return s.interval }

// SetInterval changes the step interval, re-arming a running timer.
func (s *Simulator) SetInterval(d time.Duration) {
	s.interval = d
	if s.timer.Armed() {
		s.timer.Arm(d)
	}
}

// Poll runs a step if a tick is due. It never blocks.
func (s *Simulator) Poll() bool {
	select {
	case <-s.timer.C():
		return s.Step()
	default:
		return false
	}
}

// Run steps on every tick until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	if !s.timer.Armed() {
		s.Start()
	}
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.timer.C():
			s.Step()
		}
	}
}

// RunSteps takes n steps back to back, ignoring the timer.
func (s *Simulator) RunSteps(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Step()
	}
	return nil
}

// Step advances the simulation by one tick. It returns false when the tick
// was dropped because another step was still running.
func (s *Simulator) Step() bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Debug("tick dropped", "step", s.step)
		return false
	}
	defer s.busy.Store(false)

	start := time.Now()
	s.perf.StartStep()

	s.perf.StartPhase(telemetry.PhaseSnapshot)
	snap := s.tank.Snapshot()

	var (
		highlights [][2]r2.Vec
		roundOver  bool
	)
	for _, e := range s.tank.Entities() {
		if e.Behavior.Caught {
			continue
		}

		s.perf.StartPhase(telemetry.PhasePerception)
		p := s.perceive(e, snap)
		highlights = appendHighlights(highlights, p)

		s.perf.StartPhase(telemetry.PhaseBehavior)
		d, ok := s.decide(e, p)
		if !ok {
			continue
		}
		if s.apply(e, d) {
			roundOver = true
		}
	}

	s.perf.StartPhase(telemetry.PhaseDisplay)
	for _, edge := range snap.Edges {
		s.display.DisplayEdge(edge.Start, edge.End, edge.Color)
	}
	for _, h := range highlights {
		s.display.DisplayEdge(h[0], h[1], HighlightColor)
	}
	for _, e := range s.tank.Entities() {
		if !e.Behavior.Caught {
			s.display.DisplayEntity(e)
		}
	}
	s.display.Flush()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.step++
	s.total++
	if every := s.cfg.Telemetry.PerfLogEvery; every > 0 && s.step%every == 0 {
		stats := s.perf.Stats()
		s.log.Info("perf", "round", s.round, "step", s.step, "stats", stats)
		if err := s.output.WritePerf(stats, s.round, s.step); err != nil {
			s.log.Error("telemetry", "error", err)
		}
	}
	s.perf.EndStep()

	s.log.Debug("step finished", "step", s.step, "took", time.Since(start), logging.Tag("step"))

	if roundOver {
		s.Restart()
	}
	return true
}

// perceive returns e's perceptions, or nil if perception failed.
func (s *Simulator) perceive(e *bobbel.Entity, snap tank.Snapshot) (p bobbel.Perceptions) {
	defer func() {
		if r := recover(); r != nil {
			s.collector.Record(telemetry.Event{Type: telemetry.EventPerceptionError, Step: s.step, Entity: e.Name})
			s.log.Error("perception panicked", "entity", e.Name, "panic", r)
			p = nil
		}
	}()

	edges := s.tank.EdgesNear(e.Position(), e.SensorRange())
	p, err := bobbel.Perceive(e, snap.Sightings, edges)
	if err != nil {
		s.collector.Record(telemetry.Event{Type: telemetry.EventPerceptionError, Step: s.step, Entity: e.Name})
		s.log.Error("perception", "entity", e.Name, "error", err)
		return nil
	}
	s.logPerceptions(e, p)
	return p
}

func (s *Simulator) decide(e *bobbel.Entity, p bobbel.Perceptions) (d behavior.Decision, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("behavior panicked", "entity", e.Name, "panic", r)
			ok = false
		}
	}()
	return s.strategy.Step(e, p, s.step), true
}

// apply moves e and records what the decision did. It reports whether
// anything was caught.
func (s *Simulator) apply(e *bobbel.Entity, d behavior.Decision) bool {
	if d.Turn != 0 {
		e.Rotate(d.Turn)
	}
	if d.Advance != 0 && e.Move(d.Advance) {
		e.Behavior.HitWall = true
		s.record(telemetry.EventWallHit, e)
	}

	if d.Shouted {
		s.record(telemetry.EventShout, e)
		s.log.Info(e.Name+" shouts Marco!", logging.Tag(e.ID().String()+"shout"))
	}
	if d.Echoed {
		s.record(telemetry.EventEcho, e)
		s.log.Debug(e.Name+" answers Polo!", logging.Tag(e.ID().String()+"shout"))
	}
	if d.Retargeted {
		s.record(telemetry.EventRetarget, e)
	}
	if d.Arrived {
		s.record(telemetry.EventArrival, e)
	}

	caught := false
	for _, id := range d.Caught {
		target, ok := s.tank.Entity(id)
		if !ok || target.Behavior.Caught {
			continue
		}
		target.Behavior.Caught = true
		caught = true
		s.collector.Record(telemetry.NewCatchEvent(s.step, e.Name, target.Name))
		s.log.Info(e.Name+" caught "+target.Name, "round", s.round, "step", s.step)
	}
	return caught
}

func (s *Simulator) record(t telemetry.EventType, e *bobbel.Entity) {
	s.collector.Record(telemetry.Event{Type: t, Step: s.step, Entity: e.Name})
}

// logPerceptions writes one debug line per sensor, replacing the previous
// line for the same entity and sensor on the log panel.
func (s *Simulator) logPerceptions(e *bobbel.Entity, p bobbel.Perceptions) {
	if len(p) == 0 || !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, sn := range e.Sensors() {
		list, ok := p[sn.Name]
		if !ok {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %s's [", e.Name, sn.Name)
		for i, pc := range list {
			if i > 0 {
				sb.WriteByte(' ')
			}
			switch pc.Kind {
			case bobbel.KindEntity:
				fmt.Fprintf(&sb, "(%s %.1f %.0f°)", pc.Target.Name, pc.Distance, pc.Bearing)
			case bobbel.KindEdge:
				fmt.Fprintf(&sb, "(edge %s %d)", pc.Edge.Name, len(pc.Intersections))
			}
		}
		sb.WriteByte(']')
		s.log.Debug(sb.String(), logging.Tag(e.ID().String()+sn.Name))
	}
}

// appendHighlights collects the stretches of edges cut twice by one sensor.
func appendHighlights(dst [][2]r2.Vec, p bobbel.Perceptions) [][2]r2.Vec {
	for _, list := range p {
		for _, pc := range list {
			if pc.Kind == bobbel.KindEdge && len(pc.Intersections) == 2 {
				dst = append(dst, [2]r2.Vec{pc.Intersections[0], pc.Intersections[1]})
			}
		}
	}
	return dst
}

// Restart ends the current round and rebuilds the tank from configuration.
func (s *Simulator) Restart() {
	rec := s.collector.Flush(s.round, s.step)
	s.records = append(s.records, rec)
	s.log.Info("round finished", "record", rec)
	if err := s.output.WriteRound(rec); err != nil {
		s.log.Error("telemetry", "error", err)
	}
	if s.onRound != nil {
		s.onRound(rec)
	}

	if err := s.tank.Reset(s.cfg, s.rng); err != nil {
		s.log.Error("configuration", "error", err)
	}
	if r, ok := s.strategy.(Resetter); ok {
		r.Reset()
	}
	s.step = 0
	s.round++
}

// State captures the tank for serialization.
func (s *Simulator) State(withSensors bool) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    s.cfg.Simulation.Seed,
		Round:   s.round,
		Step:    s.step,
		Width:   s.cfg.Derived.TankW,
		Height:  s.cfg.Derived.TankH,
	}
	for _, e := range s.tank.Entities() {
		snap.Entities = append(snap.Entities, telemetry.NewEntityState(e, withSensors))
	}
	for _, edge := range s.tank.Edges() {
		snap.Edges = append(snap.Edges, telemetry.NewEdgeState(edge, false))
	}
	return snap
}

// Summary aggregates the finished rounds.
func (s *Simulator) Summary() telemetry.RoundSummary {
	return telemetry.Summarize(s.records)
}
