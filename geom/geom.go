// Package geom provides the planar geometry used by sensors and perception.
//
// All angles are in degrees. Points are gonum r2 vectors; a polygon is an
// ordered vertex list that is implicitly closed (the last vertex connects
// back to the first).
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is an implicitly closed vertex list.
type Polygon []r2.Vec

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Rotate returns p rotated counter-clockwise by deg around origin.
// NaN inputs propagate.
func Rotate(p, origin r2.Vec, deg float64) r2.Vec {
	return r2.Rotate(p, Radians(deg), origin)
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q r2.Vec) float64 {
	return r2.Norm(r2.Sub(q, p))
}

// AngleBetween returns the bearing from p to q in degrees, in (-180, 180].
func AngleBetween(p, q r2.Vec) float64 {
	a := Degrees(math.Atan2(q.Y-p.Y, q.X-p.X))
	if a == -180 {
		return 180
	}
	return a
}

// NormalizeHeading wraps deg into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// -1e-15 mod 360 lands on 360 after the correction above
	if h >= 360 {
		h -= 360
	}
	return h
}

// NormalizeBearing wraps deg into (-180, 180].
func NormalizeBearing(deg float64) float64 {
	b := NormalizeHeading(deg)
	if b > 180 {
		b -= 360
	}
	return b
}

// intersectParams returns the parametric positions ua (along a) and ub
// (along b) of the crossing of the two carrier lines. ok is false when the
// lines are parallel or collinear.
func intersectParams(a1, a2, b1, b2 r2.Vec) (ua, ub float64, ok bool) {
	den := (b2.Y-b1.Y)*(a2.X-a1.X) - (b2.X-b1.X)*(a2.Y-a1.Y)
	if den == 0 {
		return 0, 0, false
	}
	ua = ((b2.X-b1.X)*(a1.Y-b1.Y) - (b2.Y-b1.Y)*(a1.X-b1.X)) / den
	ub = ((a2.X-a1.X)*(a1.Y-b1.Y) - (a2.Y-a1.Y)*(a1.X-b1.X)) / den
	return ua, ub, true
}

func strictlyInside(t float64) bool {
	return t > 0 && t < 1
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 cross at a
// point interior to both. Shared endpoints and collinear overlaps do not
// count.
func SegmentsIntersect(a1, a2, b1, b2 r2.Vec) bool {
	ua, ub, ok := intersectParams(a1, a2, b1, b2)
	return ok && strictlyInside(ua) && strictlyInside(ub)
}

// SegmentIntersection returns the interior crossing point of a1-a2 and
// b1-b2. It agrees with SegmentsIntersect.
func SegmentIntersection(a1, a2, b1, b2 r2.Vec) (r2.Vec, bool) {
	ua, ub, ok := intersectParams(a1, a2, b1, b2)
	if !ok || !strictlyInside(ua) || !strictlyInside(ub) {
		return r2.Vec{}, false
	}
	return r2.Add(a1, r2.Scale(ua, r2.Sub(a2, a1))), true
}

// PointInPolygon runs the crossing-number test over every edge of poly,
// including the closing edge. Points exactly on the boundary get whatever
// the half-open crossing rule yields; callers must not rely on either answer.
func PointInPolygon(p r2.Vec, poly Polygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := poly[i], poly[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) &&
			p.X < (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
	}
	return inside
}

// PointInFlatPolygon is PointInPolygon over a flat x0,y0,x1,y1,... list.
// A trailing odd coordinate is ignored.
func PointInFlatPolygon(p r2.Vec, flat []float64) bool {
	inside := false
	n := len(flat) / 2
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[2*i], flat[2*i+1]
		xj, yj := flat[2*j], flat[2*j+1]
		if (yi > p.Y) != (yj > p.Y) &&
			p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// MinDistanceToSegment returns the shortest distance from p to segment a-b:
// the perpendicular distance when its foot lies on the segment, otherwise
// the distance to the nearer endpoint.
func MinDistanceToSegment(p, a, b r2.Vec) float64 {
	switch {
	case a.X == b.X:
		lo, hi := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
		if p.Y >= lo && p.Y <= hi {
			return math.Abs(p.X - a.X)
		}
	case a.Y == b.Y:
		lo, hi := math.Min(a.X, b.X), math.Max(a.X, b.X)
		if p.X >= lo && p.X <= hi {
			return math.Abs(p.Y - a.Y)
		}
	default:
		ab := r2.Sub(b, a)
		t := r2.Dot(r2.Sub(p, a), ab) / r2.Norm2(ab)
		if t >= 0 && t <= 1 {
			foot := r2.Add(a, r2.Scale(t, ab))
			return Distance(p, foot)
		}
	}
	return math.Min(Distance(p, a), Distance(p, b))
}

// Flatten converts a polygon into the flat coordinate-pair list.
func Flatten(poly Polygon) []float64 {
	return AppendFlat(make([]float64, 0, 2*len(poly)), poly)
}

// AppendFlat appends the flat coordinate pairs of poly to dst.
func AppendFlat(dst []float64, poly Polygon) []float64 {
	for _, v := range poly {
		dst = append(dst, v.X, v.Y)
	}
	return dst
}

// Bounds returns the axis-aligned bounding box of the given points.
// The zero Box is returned for an empty list.
func Bounds(pts ...r2.Vec) r2.Box {
	if len(pts) == 0 {
		return r2.Box{}
	}
	b := r2.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Clamp restricts v to [lo, hi] and reports whether it had to.
func Clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
