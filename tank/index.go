package tank

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
)

// pad keeps axis-parallel edges from producing flat boxes, which the
// R-tree's strict overlap test would miss at the border.
const pad = 0.5

type edgeItem struct {
	order int
	rect  rtreego.Rect
}

func (it *edgeItem) Bounds() rtreego.Rect {
	return it.rect
}

func edgeRect(e bobbel.Edge) rtreego.Rect {
	b := e.Bounds()
	r, _ := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad},
		rtreego.Point{b.Max.X + pad, b.Max.Y + pad},
	)
	return r
}

// EdgesNear returns the edges whose bounding box overlaps the square of
// half-size radius around center, in creation order. Every edge within
// radius of center is included.
func (t *Tank) EdgesNear(center r2.Vec, radius float64) []bobbel.Edge {
	if len(t.edges) == 0 {
		return nil
	}
	query := rtreego.Point{center.X, center.Y}.ToRect(radius + pad)
	hits := t.edgeIndex.SearchIntersect(query)
	if len(hits) == 0 {
		return nil
	}

	order := make([]int, len(hits))
	for i, h := range hits {
		order[i] = h.(*edgeItem).order
	}
	slices.Sort(order)

	out := make([]bobbel.Edge, len(order))
	for i, o := range order {
		out[i] = *t.edgeMap.Get(t.edges[o])
	}
	return out
}
