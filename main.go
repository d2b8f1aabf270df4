package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/game"
	"github.com/pthm-cable/bobbeltank/logging"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to a YAML or TOML config (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = unlimited)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config value, -1 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and snapshots")
	vizAddr := flag.String("viz-addr", "", "Serve the websocket viewer on this address")
	logLevel := flag.String("log-level", "", "Override the configured log level")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	switch {
	case *seed == -1:
		cfg.Simulation.Seed = time.Now().UnixNano()
	case *seed != 0:
		cfg.Simulation.Seed = *seed
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, panel, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Bad sensors, entities and edges are skipped, not fatal.
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration", "error", err)
	}

	opts := game.Options{
		OutputDir: *outputDir,
		VizAddr:   *vizAddr,
		Headless:  *headless || cfg.Tank.Disabled,
		MaxSteps:  *maxSteps,
		Logger:    logger,
		LogPanel:  panel,
	}

	if opts.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, err := game.New(cfg, opts)
		if err != nil {
			logger.Error("failed to start", "error", err)
			os.Exit(1)
		}
		if err := g.RunHeadless(ctx); err != nil {
			logger.Error("simulation", "error", err)
		}
		if err := g.Close(); err != nil {
			logger.Error("closing output", "error", err)
		}
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Tank.Width+cfg.UI.PanelWidth), int32(cfg.Tank.Height), "Bobbel Tank")
	defer rl.CloseWindow()

	if cfg.Tank.AutoSize {
		m := rl.GetCurrentMonitor()
		cfg.SetTankSize(rl.GetMonitorWidth(m)-cfg.UI.PanelWidth, rl.GetMonitorHeight(m))
		rl.SetWindowSize(cfg.Tank.Width+cfg.UI.PanelWidth, cfg.Tank.Height)
	}
	rl.SetTargetFPS(int32(cfg.UI.TargetFPS))

	g, err := game.New(cfg, opts)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			logger.Error("closing output", "error", err)
		}
	}()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if g.Done() {
			logger.Info("max steps reached", "steps", g.Steps())
			break
		}
	}
}
