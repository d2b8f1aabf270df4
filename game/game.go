// Package game wires the simulator to its outputs: the raylib window and
// control panel, the websocket viewer and the telemetry files.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/logging"
	"github.com/pthm-cable/bobbeltank/renderer"
	"github.com/pthm-cable/bobbeltank/sim"
	"github.com/pthm-cable/bobbeltank/telemetry"
	"github.com/pthm-cable/bobbeltank/ui"
	"github.com/pthm-cable/bobbeltank/vizserver"
)

// Options configures a Game.
type Options struct {
	OutputDir string // CSV, config and snapshot output; empty disables
	VizAddr   string // overrides the configured viewer address
	Headless  bool   // no raylib window
	MaxSteps  int    // stop after this many steps, 0 runs until cancelled

	Logger   *slog.Logger
	LogPanel *logging.Panel
}

// Game owns the simulator and everything it draws to.
type Game struct {
	cfg  *config.Config
	opts Options
	log  *slog.Logger

	sim    *sim.Simulator
	output *telemetry.OutputManager

	renderer *renderer.TankRenderer
	panel    *ui.Panel

	viz        *vizserver.Server
	vizDisplay *vizserver.Display
	vizAddr    string
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	showSensors bool
}

// New builds the game. In graphical mode the raylib window must already
// be open.
func New(cfg *config.Config, opts Options) (*Game, error) {
	g := &Game{
		cfg:         cfg,
		opts:        opts,
		log:         opts.Logger,
		showSensors: cfg.UI.ShowSensors,
		vizAddr:     cfg.Viz.Addr,
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if opts.VizAddr != "" {
		g.vizAddr = opts.VizAddr
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	g.output = output
	if err := output.WriteConfig(cfg); err != nil {
		g.log.Error("telemetry", "error", err)
	}

	var displays sim.Displays
	if !opts.Headless && !cfg.Tank.Disabled {
		g.renderer = renderer.New(cfg, g.log)
		displays = append(displays, g.renderer)
		g.panel = ui.NewPanel(
			int32(cfg.Tank.Width), 0,
			int32(cfg.UI.PanelWidth), int32(cfg.Tank.Height),
			opts.LogPanel, g.showSensors,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	if g.vizAddr != "" {
		g.viz = vizserver.New(g.log)
		g.vizDisplay = vizserver.NewDisplay(g.viz, cfg.Derived.TankW, cfg.Derived.TankH, g.showSensors)
		displays = append(displays, g.vizDisplay)

		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := g.viz.ListenAndServe(ctx, g.vizAddr); err != nil {
				g.log.Error("viz server", "error", err)
			}
		}()
	}

	simOpts := sim.Options{
		Logger: g.log,
		Output: output,
	}
	switch len(displays) {
	case 0:
	case 1:
		simOpts.Display = displays[0]
	default:
		simOpts.Display = displays
	}
	g.sim = sim.New(cfg, simOpts)
	return g, nil
}

// Sim returns the simulator.
func (g *Game) Sim() *sim.Simulator { return g.sim }

// Steps returns the steps taken since the game started, across rounds.
func (g *Game) Steps() int { return g.sim.TotalSteps() }

// Done reports whether MaxSteps has been reached.
func (g *Game) Done() bool {
	return g.opts.MaxSteps > 0 && g.Steps() >= g.opts.MaxSteps
}

// setShowSensors applies the sensor toggle to every display.
func (g *Game) setShowSensors(on bool) {
	g.showSensors = on
	if g.renderer != nil {
		g.renderer.SetShowSensors(on)
	}
	if g.panel != nil {
		g.panel.SetShowSensors(on)
	}
	if g.vizDisplay != nil {
		g.vizDisplay.SetSensors(on)
	}
}

// Snapshot writes the current tank state to the output directory.
func (g *Game) Snapshot() {
	path, err := g.output.WriteSnapshot(g.sim.State(true))
	switch {
	case err != nil:
		g.log.Error("snapshot", "error", err)
	case path == "":
		g.log.Warn("snapshot needs an output directory")
	default:
		g.log.Info("snapshot written", "path", path)
	}
}

// RunHeadless steps until ctx is done or MaxSteps is reached. Without
// MaxSteps the configured interval paces the steps.
func (g *Game) RunHeadless(ctx context.Context) error {
	g.log.Info("starting headless simulation",
		"seed", g.cfg.Simulation.Seed,
		"interval", g.sim.Interval(),
		"max_steps", g.opts.MaxSteps,
	)
	if g.opts.MaxSteps > 0 {
		for !g.Done() {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.sim.Step()
		}
		g.log.Info("max steps reached", "steps", g.Steps())
		return nil
	}
	err := g.sim.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close writes a final snapshot and summary and releases resources.
func (g *Game) Close() error {
	if g.opts.OutputDir != "" {
		g.Snapshot()
	}
	g.log.Info("simulation finished",
		"rounds", g.sim.Round(),
		"steps", g.Steps(),
		"summary", g.sim.Summary(),
		"perf", g.sim.Perf(),
	)

	g.cancel()
	g.wg.Wait()
	if g.renderer != nil {
		g.renderer.Unload()
	}
	return g.output.Close()
}
