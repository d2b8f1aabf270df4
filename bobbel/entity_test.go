package bobbel

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/geom"
)

const tolerance = 1e-9

var testSensors = map[string]SensorDef{
	"see": {
		Perimeter: geom.Polygon{{X: 0, Y: 0}, {X: 40, Y: 20}, {X: 40, Y: -20}},
		Color:     "#9ecae1",
	},
	"hear": {
		Perimeter: geom.Polygon{{X: -20, Y: -20}, {X: 20, Y: -20}, {X: 20, Y: 20}, {X: -20, Y: 20}},
		Color:     "#fdae6b",
	},
}

func newTestEntity(t *testing.T, pos r2.Vec, heading float64, sensors ...string) *Entity {
	t.Helper()
	e, err := New(Descriptor{
		Name:     "test",
		Position: pos,
		Heading:  heading,
		Speed:    1,
		Sensors:  sensors,
	}, testSensors)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func vecNear(a, b r2.Vec) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := newTestEntity(t, r2.Vec{}, 0)
	b := newTestEntity(t, r2.Vec{}, 0)
	if a.ID() == b.ID() {
		t.Errorf("expected distinct ids, both are %s", a.ID())
	}
}

func TestNewSkipsBadSensors(t *testing.T) {
	defs := map[string]SensorDef{
		"see":   testSensors["see"],
		"empty": {},
	}
	e, err := New(Descriptor{Name: "Wilson", Sensors: []string{"see", "missing", "empty"}}, defs)
	if e == nil {
		t.Fatal("entity should be returned alongside configuration errors")
	}
	if !errors.Is(err, ErrUnknownSensor) {
		t.Errorf("expected ErrUnknownSensor, got %v", err)
	}
	if !errors.Is(err, ErrMalformedPerimeter) {
		t.Errorf("expected ErrMalformedPerimeter, got %v", err)
	}
	if len(e.Sensors()) != 1 || e.Sensors()[0].Name != "see" {
		t.Errorf("expected only the see sensor, got %d sensors", len(e.Sensors()))
	}
}

func TestHeadingNormalized(t *testing.T) {
	tests := []struct {
		start, delta, want float64
	}{
		{0, 90, 90},
		{350, 20, 10},
		{10, -20, 350},
		{0, 720, 0},
		{0, -360, 0},
		{45, -405, 0},
	}
	for _, tt := range tests {
		e := newTestEntity(t, r2.Vec{}, tt.start)
		e.Rotate(tt.delta)
		if math.Abs(e.Heading()-tt.want) > tolerance {
			t.Errorf("heading %v%+v: got %v, want %v", tt.start, tt.delta, e.Heading(), tt.want)
		}
		if e.Heading() < 0 || e.Heading() >= 360 {
			t.Errorf("heading %v out of [0, 360)", e.Heading())
		}
	}
}

func TestSensorCacheRecomputedOnlyOnHeadingChange(t *testing.T) {
	e := newTestEntity(t, r2.Vec{X: 100, Y: 100}, 0, "see")
	s, _ := e.Sensor("see")

	if s.Rotations() != 1 {
		t.Fatalf("expected 1 rotation after attach, got %d", s.Rotations())
	}

	e.Move(10)
	e.SetPosition(r2.Vec{X: 300, Y: 200})
	if s.Rotations() != 1 {
		t.Errorf("translation must not rebuild the rotation cache, got %d rotations", s.Rotations())
	}

	e.Rotate(0)
	if s.Rotations() != 1 {
		t.Errorf("zero rotation must not rebuild the cache, got %d rotations", s.Rotations())
	}

	e.Rotate(30)
	if s.Rotations() != 2 {
		t.Errorf("expected rebuild after heading change, got %d rotations", s.Rotations())
	}
	if h, ok := s.CachedHeading(); !ok || h != e.Heading() {
		t.Errorf("cached heading %v (valid=%v), entity heading %v", h, ok, e.Heading())
	}

	e.SetHeading(30)
	if s.Rotations() != 2 {
		t.Errorf("same heading must hit the cache, got %d rotations", s.Rotations())
	}
}

func TestSensorRotationRoundTrip(t *testing.T) {
	for _, h := range []float64{0, 15, 90, 137.5, 250, 359} {
		e := newTestEntity(t, r2.Vec{X: 50, Y: 60}, 0, "see", "hear")
		var before []geom.Polygon
		for _, s := range e.Sensors() {
			before = append(before, append(geom.Polygon(nil), s.Polygon()...))
		}

		e.Rotate(h)
		e.Rotate(-h)

		for i, s := range e.Sensors() {
			for j, v := range s.Polygon() {
				if math.Abs(v.X-before[i][j].X) > 1e-6 || math.Abs(v.Y-before[i][j].Y) > 1e-6 {
					t.Errorf("h=%v sensor %s vertex %d: got %v, want %v", h, s.Name, j, v, before[i][j])
				}
			}
		}
	}
}

func TestSensorWorldPolygon(t *testing.T) {
	e := newTestEntity(t, r2.Vec{X: 100, Y: 100}, 90, "see")
	s, _ := e.Sensor("see")

	// Facing +y, the far vertices swap to (80,140) and (120,140).
	want := geom.Polygon{{X: 100, Y: 100}, {X: 80, Y: 140}, {X: 120, Y: 140}}
	for i, v := range s.Polygon() {
		if !vecNear(v, want[i]) {
			t.Errorf("vertex %d: got %v, want %v", i, v, want[i])
		}
	}

	flat := s.Flat()
	if len(flat) != 2*len(want) {
		t.Fatalf("flat length %d, want %d", len(flat), 2*len(want))
	}
	for i, v := range want {
		if math.Abs(flat[2*i]-v.X) > tolerance || math.Abs(flat[2*i+1]-v.Y) > tolerance {
			t.Errorf("flat pair %d: got (%v,%v), want %v", i, flat[2*i], flat[2*i+1], v)
		}
	}
}

func TestSensorRangeCoversAllVertices(t *testing.T) {
	for _, h := range []float64{0, 33, 180, 271} {
		e := newTestEntity(t, r2.Vec{X: 10, Y: -5}, h, "see", "hear")
		for _, s := range e.Sensors() {
			equal := false
			for _, v := range s.Polygon() {
				d := geom.Distance(e.Position(), v)
				if d > s.Range()+tolerance {
					t.Errorf("h=%v %s: vertex %v at %v beyond range %v", h, s.Name, v, d, s.Range())
				}
				if math.Abs(d-s.Range()) < 1e-6 {
					equal = true
				}
			}
			if !equal {
				t.Errorf("h=%v %s: no vertex at range %v", h, s.Name, s.Range())
			}
		}
		if e.SensorRange() < math.Sqrt(2)*20-tolerance {
			t.Errorf("entity range %v smaller than hear range", e.SensorRange())
		}
	}
}

func TestMoveZeroIsIdempotent(t *testing.T) {
	e := newTestEntity(t, r2.Vec{X: 123.5, Y: 77.25}, 42, "see")
	s, _ := e.Sensor("see")
	pos, heading := e.Position(), e.Heading()
	poly := append(geom.Polygon(nil), s.Polygon()...)
	rotations := s.Rotations()

	e.Move(0)

	if e.Position() != pos || e.Heading() != heading {
		t.Errorf("pose changed: %v/%v -> %v/%v", pos, heading, e.Position(), e.Heading())
	}
	if s.Rotations() != rotations {
		t.Errorf("rotation cache rebuilt by Move(0)")
	}
	for i, v := range s.Polygon() {
		if v != poly[i] {
			t.Errorf("vertex %d changed: %v -> %v", i, poly[i], v)
		}
	}
}

func TestMoveAlongHeading(t *testing.T) {
	tests := []struct {
		heading float64
		want    r2.Vec
	}{
		{0, r2.Vec{X: 110, Y: 100}},
		{90, r2.Vec{X: 100, Y: 110}},
		{180, r2.Vec{X: 90, Y: 100}},
		{270, r2.Vec{X: 100, Y: 90}},
	}
	for _, tt := range tests {
		e := newTestEntity(t, r2.Vec{X: 100, Y: 100}, tt.heading)
		if hit := e.Move(10); hit {
			t.Errorf("heading %v: unexpected wall hit without bounds", tt.heading)
		}
		if !vecNear(e.Position(), tt.want) {
			t.Errorf("heading %v: got %v, want %v", tt.heading, e.Position(), tt.want)
		}
	}
}

func TestMoveClampsToBounds(t *testing.T) {
	e := newTestEntity(t, r2.Vec{X: 995, Y: 10}, 0, "see")
	e.SetMovementBounds(0, 0, 1000, 750)

	if hit := e.Move(50); !hit {
		t.Error("expected the clamp to be reported")
	}
	if e.Position() != (r2.Vec{X: 1000, Y: 10}) {
		t.Errorf("expected (1000, 10), got %v", e.Position())
	}

	s, _ := e.Sensor("see")
	if s.Polygon()[0] != e.Position() {
		t.Errorf("sensor apex %v not at clamped position %v", s.Polygon()[0], e.Position())
	}
}

func TestClearMovementBounds(t *testing.T) {
	e := newTestEntity(t, r2.Vec{X: 995, Y: 10}, 0)
	e.SetMovementBounds(0, 0, 1000, 750)
	e.ClearMovementBounds()

	if b, ok := e.MovementBounds(); ok || b != (r2.Box{}) {
		t.Errorf("bounds not cleared: %v restricted=%v", b, ok)
	}
	if hit := e.Move(50); hit {
		t.Error("unrestricted move reported a clamp")
	}
	if math.Abs(e.Position().X-1045) > tolerance {
		t.Errorf("expected x=1045, got %v", e.Position().X)
	}
}
