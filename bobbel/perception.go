package bobbel

import (
	"fmt"

	uuid "github.com/satori/go.uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/geom"
)

// Edge is a static line obstacle.
type Edge struct {
	Name  string
	Start r2.Vec
	End   r2.Vec
	Color string
}

// Bounds returns the axis-aligned box around the segment.
func (e Edge) Bounds() r2.Box {
	return geom.Bounds(e.Start, e.End)
}

// Sighting is the per-step snapshot of an entity as seen by the others.
type Sighting struct {
	ID        uuid.UUID
	Name      string
	Position  r2.Vec
	IsCatcher bool
	Shouts    bool
}

// Kind discriminates perceptions.
type Kind uint8

const (
	KindEntity Kind = iota + 1
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindEdge:
		return "edge"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Perception is one sensor detecting one object during a step.
type Perception struct {
	Kind   Kind
	Sensor string

	// Entity perceptions.
	Target   Sighting
	Distance float64
	// Bearing is own heading minus the angle to the target, in (-180, 180].
	Bearing float64

	// Edge perceptions. No intersections means the edge lies fully
	// inside the sensor polygon.
	Edge          Edge
	Intersections []r2.Vec
}

// Engulfed reports an edge perception without boundary crossings.
func (p Perception) Engulfed() bool {
	return p.Kind == KindEdge && len(p.Intersections) == 0
}

// Perceptions groups perceptions by sensor name. A nil value means nothing
// was perceived by any sensor.
type Perceptions map[string][]Perception

// Count returns the total number of perceptions.
func (p Perceptions) Count() int {
	n := 0
	for _, l := range p {
		n += len(l)
	}
	return n
}

// Perceive runs every sensor of e against the roster and the edges. Roster
// entries at e's own position, or carrying e's ID, are skipped.
func Perceive(e *Entity, roster []Sighting, edges []Edge) (Perceptions, error) {
	var out Perceptions
	pos := e.Position()

	for _, s := range e.sensors {
		if len(s.local) == 0 {
			return nil, fmt.Errorf("%s: sensor %q: %w", e.Name, s.Name, ErrMalformedPerimeter)
		}
		poly, flat, reach := s.Polygon(), s.Flat(), s.Range()

		var found []Perception
		for _, other := range roster {
			if uuid.Equal(other.ID, e.id) || other.Position == pos {
				continue
			}
			d := geom.Distance(pos, other.Position)
			if d > reach {
				continue
			}
			if !geom.PointInFlatPolygon(other.Position, flat) {
				continue
			}
			found = append(found, Perception{
				Kind:     KindEntity,
				Sensor:   s.Name,
				Target:   other,
				Distance: d,
				Bearing:  geom.NormalizeBearing(e.heading - geom.AngleBetween(pos, other.Position)),
			})
		}

		for _, edge := range edges {
			if geom.MinDistanceToSegment(pos, edge.Start, edge.End) > reach {
				continue
			}
			if geom.PointInFlatPolygon(edge.Start, flat) && geom.PointInFlatPolygon(edge.End, flat) {
				found = append(found, Perception{Kind: KindEdge, Sensor: s.Name, Edge: edge})
				continue
			}
			if hits := crossings(poly, edge); len(hits) > 0 {
				found = append(found, Perception{
					Kind:          KindEdge,
					Sensor:        s.Name,
					Edge:          edge,
					Intersections: hits,
				})
			}
		}

		if len(found) > 0 {
			if out == nil {
				out = make(Perceptions)
			}
			out[s.Name] = append(out[s.Name], found...)
		}
	}
	return out, nil
}

// crossings collects the points where edge crosses the polygon boundary,
// closing edge included.
func crossings(poly geom.Polygon, edge Edge) []r2.Vec {
	var hits []r2.Vec
	n := len(poly)
	for i := range n {
		a, b := poly[i], poly[(i+1)%n]
		if !geom.SegmentsIntersect(a, b, edge.Start, edge.End) {
			continue
		}
		if p, ok := geom.SegmentIntersection(a, b, edge.Start, edge.End); ok {
			hits = append(hits, p)
		}
	}
	return hits
}
