// Package tank holds the simulation state: the entity and edge registries,
// rebuilt wholesale from configuration on every (re)start.
package tank

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/dhconnelly/rtreego"
	"github.com/mlange-42/ark/ecs"
	uuid "github.com/satori/go.uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/geom"
)

// ErrMalformedEdge is returned for edge descriptors that are not two points.
var ErrMalformedEdge = errors.New("malformed edge")

// Tank owns every entity and edge of the current run.
//
// Entities and edges live as components in an ark world. The world is
// only populated during Reset, so component pointers stay valid between
// resets.
type Tank struct {
	world *ecs.World

	entityMap    *ecs.Map1[bobbel.Entity]
	edgeMap      *ecs.Map1[bobbel.Edge]
	entityFilter *ecs.Filter1[bobbel.Entity]

	// creation order, the iteration order of the step driver
	entities []ecs.Entity
	edges    []ecs.Entity
	byID     map[uuid.UUID]ecs.Entity

	edgeIndex *rtreego.Rtree
	bounds    r2.Box
}

// Snapshot is the read-only view of the tank taken at the start of a step.
type Snapshot struct {
	Sightings []bobbel.Sighting
	Edges     []bobbel.Edge
}

// New builds a tank from cfg. The returned error lists configuration
// problems that were skipped; the tank is usable either way.
func New(cfg *config.Config, rng *rand.Rand) (*Tank, error) {
	t := &Tank{}
	err := t.Reset(cfg, rng)
	return t, err
}

// Reset discards every entity and edge and rebuilds both registries.
func (t *Tank) Reset(cfg *config.Config, rng *rand.Rand) error {
	world := ecs.NewWorld()
	t.world = world
	t.entityMap = ecs.NewMap1[bobbel.Entity](world)
	t.edgeMap = ecs.NewMap1[bobbel.Edge](world)
	t.entityFilter = ecs.NewFilter1[bobbel.Entity](world)
	t.entities = t.entities[:0]
	t.edges = t.edges[:0]
	t.byID = make(map[uuid.UUID]ecs.Entity, len(cfg.Entities))
	t.edgeIndex = rtreego.NewTree(2, 2, 8)
	t.bounds = r2.NewBox(0, 0, cfg.Derived.TankW, cfg.Derived.TankH)

	var errs []error
	defs := SensorDefs(cfg.Sensors)

	for _, ec := range cfg.Entities {
		e, err := bobbel.New(t.describe(ec, cfg.Simulation, rng), defs)
		if err != nil {
			errs = append(errs, err)
		}
		if cfg.Simulation.LimitMovementToTankBoundaries {
			e.SetMovementBounds(t.bounds.Min.X, t.bounds.Min.Y, t.bounds.Max.X, t.bounds.Max.Y)
			e.SetPosition(e.Position())
		}
		handle := t.entityMap.NewEntity(e)
		t.entities = append(t.entities, handle)
		t.byID[e.ID()] = handle
	}

	for i, ed := range cfg.Edges {
		edge, err := edgeFrom(ed)
		if err != nil {
			errs = append(errs, fmt.Errorf("edge %d (%s): %w", i, ed.Name, err))
			continue
		}
		handle := t.edgeMap.NewEntity(&edge)
		t.edges = append(t.edges, handle)
		t.edgeIndex.Insert(&edgeItem{order: len(t.edges) - 1, rect: edgeRect(edge)})
	}

	return errors.Join(errs...)
}

func (t *Tank) describe(ec config.EntityConfig, sim config.SimulationConfig, rng *rand.Rand) bobbel.Descriptor {
	d := bobbel.Descriptor{
		Name:      ec.Name,
		Image:     ec.Image,
		Color:     ec.Color,
		Speed:     ec.Speed,
		Sensors:   ec.Perceptions,
		Catcher:   ec.Catcher,
		Precision: 1,
	}
	if ec.Precision != nil {
		d.Precision = *ec.Precision
	}

	switch {
	case len(ec.Position) == 2:
		d.Position = r2.Vec{X: ec.Position[0], Y: ec.Position[1]}
	case sim.RandomDefaultPosition:
		size := t.bounds.Size()
		d.Position = r2.Vec{X: rng.Float64() * size.X, Y: rng.Float64() * size.Y}
	}

	switch {
	case ec.Direction != nil:
		d.Heading = *ec.Direction
	case sim.RandomDefaultDirection:
		d.Heading = rng.Float64() * 360
	}
	return d
}

// SensorDefs converts configured sensors. A perimeter with a bad point
// becomes an empty definition, which entity construction rejects.
func SensorDefs(sensors map[string]config.SensorConfig) map[string]bobbel.SensorDef {
	defs := make(map[string]bobbel.SensorDef, len(sensors))
	for name, sc := range sensors {
		poly, ok := polygon(sc.Perimeter)
		if !ok {
			poly = nil
		}
		defs[name] = bobbel.SensorDef{Perimeter: poly, Color: sc.Color}
	}
	return defs
}

func polygon(pts [][]float64) (geom.Polygon, bool) {
	poly := make(geom.Polygon, 0, len(pts))
	for _, p := range pts {
		if len(p) != 2 {
			return nil, false
		}
		poly = append(poly, r2.Vec{X: p[0], Y: p[1]})
	}
	return poly, true
}

func edgeFrom(ec config.EdgeConfig) (bobbel.Edge, error) {
	poly, ok := polygon(ec.Perimeter)
	if !ok || len(poly) != 2 {
		return bobbel.Edge{}, ErrMalformedEdge
	}
	return bobbel.Edge{Name: ec.Name, Start: poly[0], End: poly[1], Color: ec.Color}, nil
}

// Entities returns the entities in creation order.
func (t *Tank) Entities() []*bobbel.Entity {
	out := make([]*bobbel.Entity, len(t.entities))
	for i, h := range t.entities {
		out[i] = t.entityMap.Get(h)
	}
	return out
}

// Entity looks an entity up by ID.
func (t *Tank) Entity(id uuid.UUID) (*bobbel.Entity, bool) {
	h, ok := t.byID[id]
	if !ok || !t.world.Alive(h) {
		return nil, false
	}
	return t.entityMap.Get(h), true
}

// Edges returns the edges in creation order.
func (t *Tank) Edges() []bobbel.Edge {
	out := make([]bobbel.Edge, len(t.edges))
	for i, h := range t.edges {
		out[i] = *t.edgeMap.Get(h)
	}
	return out
}

// Len returns the number of entities.
func (t *Tank) Len() int {
	return len(t.entities)
}

// Bounds returns the tank rectangle.
func (t *Tank) Bounds() r2.Box {
	return t.bounds
}

// Snapshot captures every uncaught entity and every edge.
func (t *Tank) Snapshot() Snapshot {
	s := Snapshot{
		Sightings: make([]bobbel.Sighting, 0, len(t.entities)),
		Edges:     t.Edges(),
	}
	query := t.entityFilter.Query()
	for query.Next() {
		e := query.Get()
		if e.Behavior.Caught {
			continue
		}
		s.Sightings = append(s.Sightings, e.Sighting())
	}
	return s
}

// CountCaught returns how many entities are marked caught.
func (t *Tank) CountCaught() int {
	n := 0
	query := t.entityFilter.Query()
	for query.Next() {
		if query.Get().Behavior.Caught {
			n++
		}
	}
	return n
}
