package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/geom"
)

func testEntity(t *testing.T) *bobbel.Entity {
	t.Helper()
	e, err := bobbel.New(bobbel.Descriptor{
		Name:     "Hannah",
		Color:    "#c51b8a",
		Position: r2.Vec{X: 200, Y: 375},
		Heading:  90,
		Sensors:  []string{"hear"},
	}, map[string]bobbel.SensorDef{
		"hear": {Perimeter: geom.Polygon{{X: -10, Y: -10}, {X: 10, Y: -10}, {X: 10, Y: 10}, {X: -10, Y: 10}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSnapshotSaveLoad(t *testing.T) {
	dir := t.TempDir()
	e := testEntity(t)
	e.Behavior.SetNodeOfInterest(r2.Vec{X: 10, Y: 20})
	e.Behavior.Shout()

	snap := &Snapshot{
		Version:  SnapshotVersion,
		Seed:     42,
		Round:    2,
		Step:     17,
		Width:    1000,
		Height:   750,
		Entities: []EntityState{NewEntityState(e, true)},
		Edges: []EdgeState{NewEdgeState(bobbel.Edge{
			Name: "reef", Start: r2.Vec{X: 400, Y: 200}, End: r2.Vec{X: 600, Y: 260},
		}, true)},
	}

	path, err := SaveSnapshot(snap, dir)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_r2_s17.json" {
		t.Errorf("unexpected file name %s", path)
	}

	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Seed != 42 || got.Round != 2 || got.Step != 17 || got.Width != 1000 {
		t.Errorf("header mismatch: %+v", got)
	}

	es := got.Entities[0]
	if es.Name != "Hannah" || es.State != "shouting" || es.Heading != 90 {
		t.Errorf("entity state %+v", es)
	}
	if es.Target == nil || *es.Target != [2]float64{10, 20} {
		t.Errorf("target %v", es.Target)
	}
	if len(es.Sensors) != 1 || len(es.Sensors[0].Perimeter) != 4 {
		t.Fatalf("sensors %+v", es.Sensors)
	}
	// hear square rotated by 90 and moved to the entity
	for _, p := range es.Sensors[0].Perimeter {
		if p[0] < 189.999 || p[0] > 210.001 || p[1] < 364.999 || p[1] > 385.001 {
			t.Errorf("perimeter point %v outside the expected square", p)
		}
	}
	if !got.Edges[0].Highlight || got.Edges[0].End != [2]float64{600, 260} {
		t.Errorf("edge state %+v", got.Edges[0])
	}
}

func TestEntityStateWithoutSensors(t *testing.T) {
	es := NewEntityState(testEntity(t), false)
	if es.Sensors != nil || es.Target != nil {
		t.Errorf("expected no sensors and no target, got %+v", es)
	}
	if es.State != "idle" {
		t.Errorf("state %q", es.State)
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadSnapshot(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadSnapshot(bad); err == nil {
		t.Error("expected an error for invalid JSON")
	}

	old := filepath.Join(dir, "old.json")
	os.WriteFile(old, []byte(`{"version": 99}`), 0644)
	if _, err := LoadSnapshot(old); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("expected a version error, got %v", err)
	}
}
