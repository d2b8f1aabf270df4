package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/bobbeltank/bobbel"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is the serializable state of the tank at one step.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Round   int   `json:"round"`
	Step    int   `json:"step"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Entities []EntityState `json:"entities"`
	Edges    []EdgeState   `json:"edges"`
}

// EntityState is one entity as drawn.
type EntityState struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Image   string  `json:"image,omitempty"`
	Color   string  `json:"color,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	State   string  `json:"state"`
	Catcher bool    `json:"catcher,omitempty"`
	Caught  bool    `json:"caught,omitempty"`

	// Current node of interest, if any
	Target *[2]float64 `json:"target,omitempty"`

	Sensors []SensorState `json:"sensors,omitempty"`
}

// SensorState is a sensor's world-space perimeter.
type SensorState struct {
	Name      string       `json:"name"`
	Color     string       `json:"color,omitempty"`
	Perimeter [][2]float64 `json:"perimeter"`
}

// EdgeState is one obstacle segment.
type EdgeState struct {
	Name  string     `json:"name"`
	Color string     `json:"color,omitempty"`
	Start [2]float64 `json:"start"`
	End   [2]float64 `json:"end"`

	// Set when the edge was crossed twice by a sensor this step
	Highlight bool `json:"highlight,omitempty"`
}

// NewEntityState captures e, including sensor outlines when withSensors is set.
func NewEntityState(e *bobbel.Entity, withSensors bool) EntityState {
	pos := e.Position()
	s := EntityState{
		ID:      e.ID().String(),
		Name:    e.Name,
		Image:   e.Image,
		Color:   e.Color,
		X:       pos.X,
		Y:       pos.Y,
		Heading: e.Heading(),
		State:   e.Behavior.State().String(),
		Catcher: e.IsCatcher,
		Caught:  e.Behavior.Caught,
	}
	if node, ok := e.Behavior.NodeOfInterest(); ok {
		s.Target = &[2]float64{node.X, node.Y}
	}
	if !withSensors {
		return s
	}
	for _, sn := range e.Sensors() {
		poly := sn.Polygon()
		ss := SensorState{Name: sn.Name, Color: sn.Color, Perimeter: make([][2]float64, len(poly))}
		for i, p := range poly {
			ss.Perimeter[i] = [2]float64{p.X, p.Y}
		}
		s.Sensors = append(s.Sensors, ss)
	}
	return s
}

// NewEdgeState captures an edge.
func NewEdgeState(e bobbel.Edge, highlight bool) EdgeState {
	return EdgeState{
		Name:      e.Name,
		Color:     e.Color,
		Start:     [2]float64{e.Start.X, e.Start.Y},
		End:       [2]float64{e.End.X, e.End.Y},
		Highlight: highlight,
	}
}

// SaveSnapshot writes a snapshot to dir and returns the file path.
func SaveSnapshot(s *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot_r%d_s%d.json", s.Round, s.Step))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	return &s, nil
}
