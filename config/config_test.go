package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("embedded defaults should validate: %v", err)
	}

	if cfg.Derived.TankW != 1000 || cfg.Derived.TankH != 750 {
		t.Errorf("tank %vx%v, want 1000x750", cfg.Derived.TankW, cfg.Derived.TankH)
	}
	if cfg.Derived.Interval != 50*time.Millisecond {
		t.Errorf("interval %v", cfg.Derived.Interval)
	}
	if len(cfg.Sensors["feel"].Perimeter) != 6 {
		t.Errorf("feel perimeter has %d points", len(cfg.Sensors["feel"].Perimeter))
	}

	catchers := 0
	for _, e := range cfg.Entities {
		if e.Catcher {
			catchers++
		}
		if e.Precision == nil {
			t.Errorf("%s: precision not defaulted", e.Name)
		}
		if e.Speed == 0 {
			t.Errorf("%s: speed not defaulted", e.Name)
		}
	}
	if catchers != 1 {
		t.Errorf("expected exactly one catcher, got %d", catchers)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tank.yaml")
	data := []byte(`
tank:
  width: 640
simulation:
  interval_ms: 20
entities:
  - name: Solo
    perceptions: [see]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tank.Width != 640 || cfg.Tank.Height != 750 {
		t.Errorf("expected 640x750 after merge, got %dx%d", cfg.Tank.Width, cfg.Tank.Height)
	}
	if cfg.Derived.Interval != 20*time.Millisecond {
		t.Errorf("interval %v", cfg.Derived.Interval)
	}
	if len(cfg.Entities) != 1 || cfg.Entities[0].Name != "Solo" {
		t.Errorf("entity list should be replaced, got %+v", cfg.Entities)
	}
	if _, ok := cfg.Sensors["see"]; !ok {
		t.Error("default sensors should survive the merge")
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tank.toml")
	data := []byte(`
[game]
shout_cooldown = 120
uncertainty = 10

[sensors.wide]
perimeter = [[0, 0], [80, 40], [80, -40]]
color = "red"

[[entities]]
name = "Toml"
position = [5, 6]
perceptions = ["wide"]
catcher = true
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.ShoutCooldown != 120 || cfg.Game.Uncertainty != 10 {
		t.Errorf("game section not applied: %+v", cfg.Game)
	}
	if cfg.Game.HearSensor != "hear" {
		t.Errorf("untouched default lost: %q", cfg.Game.HearSensor)
	}
	wide, ok := cfg.Sensors["wide"]
	if !ok || len(wide.Perimeter) != 3 || wide.Perimeter[1][0] != 80 {
		t.Errorf("wide sensor %+v", wide)
	}
	if len(cfg.Entities) != 1 || !cfg.Entities[0].Catcher {
		t.Errorf("entities %+v", cfg.Entities)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown sensor", func(c *Config) {
			c.Entities[0].Perceptions = append(c.Entities[0].Perceptions, "smell")
		}, ErrUnknownSensor},
		{"empty perimeter", func(c *Config) {
			c.Sensors["void"] = SensorConfig{}
		}, ErrMalformedPerimeter},
		{"three coordinates", func(c *Config) {
			c.Sensors["bent"] = SensorConfig{Perimeter: [][]float64{{0, 0, 1}}}
		}, ErrMalformedPerimeter},
		{"edge with one point", func(c *Config) {
			c.Edges = append(c.Edges, EdgeConfig{Name: "stub", Perimeter: [][]float64{{1, 1}}})
		}, ErrMalformedPerimeter},
		{"edge with three points", func(c *Config) {
			c.Edges = append(c.Edges, EdgeConfig{Name: "zigzag", Perimeter: [][]float64{{1, 1}, {2, 2}, {3, 1}}})
		}, ErrMalformedPerimeter},
		{"precision", func(c *Config) {
			p := 1.5
			c.Entities[0].Precision = &p
		}, ErrInvalidValue},
		{"interval", func(c *Config) {
			c.Simulation.IntervalMS = 0
		}, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if len(again.Entities) != len(cfg.Entities) || again.Game != cfg.Game {
		t.Error("snapshot does not reproduce the configuration")
	}
}

func TestCfgAfterInit(t *testing.T) {
	MustInit("")
	if Cfg().Game.FeelSensor != "feel" {
		t.Errorf("feel sensor %q", Cfg().Game.FeelSensor)
	}
}

func TestSetTankSize(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.SetTankSize(1600, 900)
	if cfg.Tank.Width != 1600 || cfg.Derived.TankW != 1600 || cfg.Derived.TankH != 900 {
		t.Errorf("tank %dx%d derived %vx%v", cfg.Tank.Width, cfg.Tank.Height, cfg.Derived.TankW, cfg.Derived.TankH)
	}
}
