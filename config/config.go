// Package config provides configuration loading and access for the tank.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// ErrUnknownSensor reports an entity referencing an undefined sensor tag.
	ErrUnknownSensor = errors.New("unknown sensor")
	// ErrMalformedPerimeter reports a perimeter that is not a valid point list.
	ErrMalformedPerimeter = errors.New("malformed perimeter")
	// ErrInvalidValue reports an out-of-range parameter.
	ErrInvalidValue = errors.New("invalid value")
)

// Config holds all tank configuration parameters.
type Config struct {
	Tank       TankConfig              `yaml:"tank" toml:"tank"`
	Simulation SimulationConfig        `yaml:"simulation" toml:"simulation"`
	Game       GameConfig              `yaml:"game" toml:"game"`
	UI         UIConfig                `yaml:"ui" toml:"ui"`
	Logging    LoggingConfig           `yaml:"logging" toml:"logging"`
	Telemetry  TelemetryConfig         `yaml:"telemetry" toml:"telemetry"`
	Viz        VizConfig               `yaml:"viz" toml:"viz"`
	Sensors    map[string]SensorConfig `yaml:"sensors" toml:"sensors"`
	Entities   []EntityConfig          `yaml:"entities" toml:"entities"`
	Edges      []EdgeConfig            `yaml:"edges" toml:"edges"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" toml:"-"`
}

// TankConfig holds the arena settings.
type TankConfig struct {
	Width           int    `yaml:"width" toml:"width"`
	Height          int    `yaml:"height" toml:"height"`
	AutoSize        bool   `yaml:"auto_size" toml:"auto_size"` // Fit the tank to the monitor
	Background      string `yaml:"background" toml:"background"`
	BackgroundImage string `yaml:"background_image" toml:"background_image"`
	Disabled        bool   `yaml:"disabled" toml:"disabled"` // No visualization at all
}

// SimulationConfig holds step driver settings.
type SimulationConfig struct {
	IntervalMS                    int   `yaml:"interval_ms" toml:"interval_ms"`
	RandomDefaultPosition         bool  `yaml:"random_default_position" toml:"random_default_position"`
	RandomDefaultDirection        bool  `yaml:"random_default_direction" toml:"random_default_direction"`
	LimitMovementToTankBoundaries bool  `yaml:"limit_movement_to_tank_boundaries" toml:"limit_movement_to_tank_boundaries"`
	Seed                          int64 `yaml:"seed" toml:"seed"`
}

// GameConfig holds the Marco-Polo parameters.
type GameConfig struct {
	Mode             string  `yaml:"mode" toml:"mode"`                           // marco_polo or wander
	ShoutCooldown    int     `yaml:"shout_cooldown" toml:"shout_cooldown"`       // Steps between catcher shouts
	ArrivalThreshold float64 `yaml:"arrival_threshold" toml:"arrival_threshold"` // Distance at which a target counts as reached
	IdleTurn         float64 `yaml:"idle_turn" toml:"idle_turn"`                 // Random-walk turn in degrees
	AvoidTurn        float64 `yaml:"avoid_turn" toml:"avoid_turn"`               // Turn when an edge is perceived
	MaxTurn          float64 `yaml:"max_turn" toml:"max_turn"`                   // Steering limit while seeking
	Uncertainty      float64 `yaml:"uncertainty" toml:"uncertainty"`             // Offset radius at precision 0
	DefaultSpeed     float64 `yaml:"default_speed" toml:"default_speed"`
	DefaultPrecision float64 `yaml:"default_precision" toml:"default_precision"`
	HearSensor       string  `yaml:"hear_sensor" toml:"hear_sensor"`
	FeelSensor       string  `yaml:"feel_sensor" toml:"feel_sensor"`
}

// UIConfig holds window and control panel settings.
type UIConfig struct {
	PanelWidth  int  `yaml:"panel_width" toml:"panel_width"`
	TargetFPS   int  `yaml:"target_fps" toml:"target_fps"`
	ShowSensors bool `yaml:"show_sensors" toml:"show_sensors"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Format     string `yaml:"format" toml:"format"` // json or text
	HideDebug  bool   `yaml:"hide_debug" toml:"hide_debug"`
	PanelTTLMS int    `yaml:"panel_ttl_ms" toml:"panel_ttl_ms"` // Default display time on the log panel
	PanelSize  int    `yaml:"panel_size" toml:"panel_size"`
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	PerfWindow   int `yaml:"perf_window" toml:"perf_window"`       // Steps in the rolling timing window
	PerfLogEvery int `yaml:"perf_log_every" toml:"perf_log_every"` // Steps between perf rows, 0 disables
}

// VizConfig holds the websocket viewer settings.
type VizConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // Empty disables the server
}

// SensorConfig is a sensor definition in entity-local coordinates.
type SensorConfig struct {
	Perimeter [][]float64 `yaml:"perimeter" toml:"perimeter"`
	Color     string      `yaml:"color" toml:"color"`
}

// EntityConfig describes one bobbel. Position and Direction may be omitted.
type EntityConfig struct {
	Name        string    `yaml:"name" toml:"name"`
	Image       string    `yaml:"image" toml:"image"`
	Color       string    `yaml:"color" toml:"color"`
	Position    []float64 `yaml:"position" toml:"position"`
	Direction   *float64  `yaml:"direction" toml:"direction"`
	Speed       float64   `yaml:"speed" toml:"speed"`
	Precision   *float64  `yaml:"precision" toml:"precision"`
	Perceptions []string  `yaml:"perceptions" toml:"perceptions"`
	Catcher     bool      `yaml:"catcher" toml:"catcher"`
}

// EdgeConfig describes a static two-point obstacle.
type EdgeConfig struct {
	Name      string      `yaml:"name" toml:"name"`
	Perimeter [][]float64 `yaml:"perimeter" toml:"perimeter"`
	Color     string      `yaml:"color" toml:"color"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TankW    float64       // Tank.Width as float64
	TankH    float64       // Tank.Height as float64
	Interval time.Duration // Simulation.IntervalMS
	PanelTTL time.Duration // Logging.PanelTTLMS
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML or TOML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Decode into the same struct: only fields present in the file change.
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if err := decodeTOML(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// decodeTOML decodes data over cfg. toml reuses the backing array of
// existing slices, so lists present in the file are dropped first to get
// the same replace semantics as yaml.
func decodeTOML(data string, cfg *Config) error {
	md, err := toml.Decode(data, &struct{}{})
	if err != nil {
		return err
	}
	if md.IsDefined("entities") {
		cfg.Entities = nil
	}
	if md.IsDefined("edges") {
		cfg.Edges = nil
	}
	_, err = toml.Decode(data, cfg)
	return err
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TankW = float64(c.Tank.Width)
	c.Derived.TankH = float64(c.Tank.Height)
	c.Derived.Interval = time.Duration(c.Simulation.IntervalMS) * time.Millisecond
	c.Derived.PanelTTL = time.Duration(c.Logging.PanelTTLMS) * time.Millisecond

	for i := range c.Entities {
		ent := &c.Entities[i]
		if ent.Speed == 0 {
			ent.Speed = c.Game.DefaultSpeed
		}
		if ent.Precision == nil {
			p := c.Game.DefaultPrecision
			ent.Precision = &p
		}
	}
}

// SetTankSize resizes the tank, used when AutoSize fits it to the monitor.
func (c *Config) SetTankSize(width, height int) {
	c.Tank.Width = width
	c.Tank.Height = height
	c.Derived.TankW = float64(width)
	c.Derived.TankH = float64(height)
}

// Validate reports every configuration problem at once. Problems found here
// are not fatal to the simulation; offending sensors are skipped when the
// entities are built.
func (c *Config) Validate() error {
	var errs []error

	if c.Tank.Width <= 0 || c.Tank.Height <= 0 {
		errs = append(errs, fmt.Errorf("tank size %dx%d: %w", c.Tank.Width, c.Tank.Height, ErrInvalidValue))
	}
	if c.Simulation.IntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("simulation.interval_ms %d: %w", c.Simulation.IntervalMS, ErrInvalidValue))
	}
	if c.Game.Mode != "marco_polo" && c.Game.Mode != "wander" {
		errs = append(errs, fmt.Errorf("game.mode %q: %w", c.Game.Mode, ErrInvalidValue))
	}
	if c.Game.ShoutCooldown < 0 {
		errs = append(errs, fmt.Errorf("game.shout_cooldown %d: %w", c.Game.ShoutCooldown, ErrInvalidValue))
	}

	for name, s := range c.Sensors {
		if err := checkPerimeter(s.Perimeter, 1); err != nil {
			errs = append(errs, fmt.Errorf("sensor %q: %w", name, err))
		}
	}

	for i, ent := range c.Entities {
		for _, tag := range ent.Perceptions {
			if _, ok := c.Sensors[tag]; !ok {
				errs = append(errs, fmt.Errorf("entity %d (%s): %w %q", i, ent.Name, ErrUnknownSensor, tag))
			}
		}
		if n := len(ent.Position); n != 0 && n != 2 {
			errs = append(errs, fmt.Errorf("entity %d (%s): position has %d coordinates: %w", i, ent.Name, n, ErrInvalidValue))
		}
		if ent.Precision != nil && (*ent.Precision < 0 || *ent.Precision > 1) {
			errs = append(errs, fmt.Errorf("entity %d (%s): precision %v outside [0,1]: %w", i, ent.Name, *ent.Precision, ErrInvalidValue))
		}
	}

	for i, e := range c.Edges {
		if err := checkPerimeter(e.Perimeter, 2); err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s): %w", i, e.Name, err))
		} else if len(e.Perimeter) != 2 {
			errs = append(errs, fmt.Errorf("edge %d (%s): %d points: %w", i, e.Name, len(e.Perimeter), ErrMalformedPerimeter))
		}
	}

	return errors.Join(errs...)
}

func checkPerimeter(pts [][]float64, minPoints int) error {
	if len(pts) < minPoints {
		return fmt.Errorf("%d points, need %d: %w", len(pts), minPoints, ErrMalformedPerimeter)
	}
	for i, p := range pts {
		if len(p) != 2 {
			return fmt.Errorf("point %d has %d coordinates: %w", i, len(p), ErrMalformedPerimeter)
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
