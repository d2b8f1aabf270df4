package bobbel

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/geom"
)

// SensorDef describes a sensor in entity-local coordinates: the entity sits
// at (0,0) facing +x (heading 0).
type SensorDef struct {
	Perimeter geom.Polygon
	Color     string
}

// Sensor is a SensorDef attached to one entity, with its world-space polygon.
//
// The rotated perimeter is cached per heading: it is valid iff
// cachedHeading equals the heading passed to update. Translation by the
// entity position is reapplied on every update.
type Sensor struct {
	Name  string
	Color string

	local   geom.Polygon
	rotated geom.Polygon
	world   geom.Polygon
	flat    []float64
	reach   float64

	cachedHeading float64
	cached        bool
	rotations     int
}

func newSensor(name string, def SensorDef) *Sensor {
	local := make(geom.Polygon, len(def.Perimeter))
	copy(local, def.Perimeter)
	return &Sensor{
		Name:    name,
		Color:   def.Color,
		local:   local,
		rotated: make(geom.Polygon, len(local)),
		world:   make(geom.Polygon, len(local)),
		flat:    make([]float64, 0, 2*len(local)),
	}
}

// update brings the world polygon in line with the given pose.
func (s *Sensor) update(pos r2.Vec, heading float64) {
	if !s.cached || s.cachedHeading != heading {
		s.reach = 0
		for i, v := range s.local {
			s.rotated[i] = geom.Rotate(v, r2.Vec{}, heading)
			if d := r2.Norm(s.rotated[i]); d > s.reach {
				s.reach = d
			}
		}
		s.cachedHeading = heading
		s.cached = true
		s.rotations++
	}

	s.flat = s.flat[:0]
	for i, v := range s.rotated {
		w := r2.Add(v, pos)
		s.world[i] = w
		s.flat = append(s.flat, w.X, w.Y)
	}
}

// Polygon returns the world-space polygon. The slice is owned by the sensor
// and changes on the next pose update.
func (s *Sensor) Polygon() geom.Polygon {
	return s.world
}

// Flat returns the world-space polygon as x0,y0,x1,y1,...
func (s *Sensor) Flat() []float64 {
	return s.flat
}

// Range is the largest distance from the entity position to any vertex.
func (s *Sensor) Range() float64 {
	return s.reach
}

// Local returns a copy of the entity-local perimeter.
func (s *Sensor) Local() geom.Polygon {
	out := make(geom.Polygon, len(s.local))
	copy(out, s.local)
	return out
}

// CachedHeading returns the heading the rotation cache was built for.
func (s *Sensor) CachedHeading() (float64, bool) {
	return s.cachedHeading, s.cached
}

// Rotations counts how many times the rotation cache was rebuilt.
func (s *Sensor) Rotations() int {
	return s.rotations
}
