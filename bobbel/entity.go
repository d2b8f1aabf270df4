// Package bobbel models the entities living in the tank: their pose,
// movement, sensors and what those sensors perceive.
package bobbel

import (
	"errors"
	"fmt"
	"log/slog"

	uuid "github.com/satori/go.uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/geom"
)

var (
	// ErrUnknownSensor is returned when a descriptor references a sensor tag
	// with no definition.
	ErrUnknownSensor = errors.New("unknown sensor")
	// ErrMalformedPerimeter is returned for sensor perimeters without vertices.
	ErrMalformedPerimeter = errors.New("malformed perimeter")
)

// Descriptor is a fully resolved entity description.
type Descriptor struct {
	Name      string
	Image     string
	Color     string
	Position  r2.Vec
	Heading   float64
	Speed     float64
	Precision float64
	Sensors   []string
	Catcher   bool
}

// Entity is a bobbel.
type Entity struct {
	id uuid.UUID

	Name  string
	Image string
	Color string

	Speed     float64
	Precision float64
	IsCatcher bool

	// Behavior is the scratch state owned by the behaviour strategies.
	Behavior Behavior

	pos     r2.Vec
	heading float64

	bounds     r2.Box
	restricted bool

	sensors []*Sensor
}

// New builds an entity from d. Sensor tags missing from defs, or defined
// with an empty perimeter, are skipped; the returned error lists them and
// the entity is still usable.
func New(d Descriptor, defs map[string]SensorDef) (*Entity, error) {
	e := &Entity{
		id:        uuid.NewV4(),
		Name:      d.Name,
		Image:     d.Image,
		Color:     d.Color,
		Speed:     d.Speed,
		Precision: d.Precision,
		IsCatcher: d.Catcher,
		pos:       d.Position,
		heading:   geom.NormalizeHeading(d.Heading),
	}

	var errs []error
	for _, tag := range d.Sensors {
		def, ok := defs[tag]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w %q", d.Name, ErrUnknownSensor, tag))
			continue
		}
		if err := e.Attach(tag, def); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
	}
	return e, errors.Join(errs...)
}

// Attach adds a sensor to the entity.
func (e *Entity) Attach(name string, def SensorDef) error {
	if len(def.Perimeter) == 0 {
		return fmt.Errorf("sensor %q: %w", name, ErrMalformedPerimeter)
	}
	s := newSensor(name, def)
	s.update(e.pos, e.heading)
	e.sensors = append(e.sensors, s)
	return nil
}

// ID returns the identifier assigned at construction.
func (e *Entity) ID() uuid.UUID {
	return e.id
}

// Position returns the current position.
func (e *Entity) Position() r2.Vec {
	return e.pos
}

// Heading returns the heading in degrees, in [0, 360).
func (e *Entity) Heading() float64 {
	return e.heading
}

// SetPosition places the entity, clamped into its bounds when restricted.
func (e *Entity) SetPosition(p r2.Vec) {
	e.pos = p
	e.clamp()
	e.refresh()
}

// SetHeading sets the heading in degrees.
func (e *Entity) SetHeading(deg float64) {
	e.heading = geom.NormalizeHeading(deg)
	e.refresh()
}

// Rotate turns the entity by delta degrees (counter-clockwise positive).
func (e *Entity) Rotate(delta float64) {
	e.SetHeading(e.heading + delta)
}

// Move advances the entity by distance along its heading. When movement is
// restricted the result is clamped into the bounds per axis; the return
// value reports whether that happened.
func (e *Entity) Move(distance float64) bool {
	ahead := r2.Add(e.pos, r2.Vec{X: distance})
	e.pos = geom.Rotate(ahead, e.pos, e.heading)
	hit := e.clamp()
	e.refresh()
	return hit
}

// SetMovementBounds restricts movement to [minX,maxX]x[minY,maxY].
func (e *Entity) SetMovementBounds(minX, minY, maxX, maxY float64) {
	e.bounds = r2.NewBox(minX, minY, maxX, maxY)
	e.restricted = true
}

// ClearMovementBounds lifts the movement restriction.
func (e *Entity) ClearMovementBounds() {
	e.bounds = r2.Box{}
	e.restricted = false
}

// MovementBounds returns the bounds and whether they are in effect.
func (e *Entity) MovementBounds() (r2.Box, bool) {
	return e.bounds, e.restricted
}

func (e *Entity) clamp() bool {
	if !e.restricted {
		return false
	}
	var hitX, hitY bool
	e.pos.X, hitX = geom.Clamp(e.pos.X, e.bounds.Min.X, e.bounds.Max.X)
	e.pos.Y, hitY = geom.Clamp(e.pos.Y, e.bounds.Min.Y, e.bounds.Max.Y)
	return hitX || hitY
}

func (e *Entity) refresh() {
	for _, s := range e.sensors {
		s.update(e.pos, e.heading)
	}
}

// Sensors returns the attached sensors in attach order.
func (e *Entity) Sensors() []*Sensor {
	return e.sensors
}

// Sensor returns the sensor with the given tag.
func (e *Entity) Sensor(name string) (*Sensor, bool) {
	for _, s := range e.sensors {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SensorRange returns the largest range over all sensors.
func (e *Entity) SensorRange() float64 {
	var r float64
	for _, s := range e.sensors {
		r = max(r, s.Range())
	}
	return r
}

// Sighting returns what other entities see of e this step.
func (e *Entity) Sighting() Sighting {
	return Sighting{
		ID:        e.id,
		Name:      e.Name,
		Position:  e.pos,
		IsCatcher: e.IsCatcher,
		Shouts:    e.Behavior.Shouts,
	}
}

// LogValue implements slog.LogValuer.
func (e *Entity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", e.id.String()),
		slog.String("name", e.Name),
		slog.Float64("x", e.pos.X),
		slog.Float64("y", e.pos.Y),
		slog.Float64("heading", e.heading),
		slog.String("state", e.Behavior.State().String()),
	)
}
