package sim

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
)

// HighlightColor marks the stretch of an edge cut twice by a sensor.
const HighlightColor = "yellow"

// Display receives the draw calls of one step. Flush is called exactly
// once per step, after every edge and entity has been drawn.
type Display interface {
	DisplayEntity(e *bobbel.Entity)
	DisplayEdge(start, end r2.Vec, color string)
	Flush()
}

// NopDisplay is used when visualization is disabled.
type NopDisplay struct{}

func (NopDisplay) DisplayEntity(*bobbel.Entity)      {}
func (NopDisplay) DisplayEdge(_, _ r2.Vec, _ string) {}
func (NopDisplay) Flush()                            {}

// Displays fans every call out to each display in order.
type Displays []Display

func (ds Displays) DisplayEntity(e *bobbel.Entity) {
	for _, d := range ds {
		d.DisplayEntity(e)
	}
}

func (ds Displays) DisplayEdge(start, end r2.Vec, color string) {
	for _, d := range ds {
		d.DisplayEdge(start, end, color)
	}
}

func (ds Displays) Flush() {
	for _, d := range ds {
		d.Flush()
	}
}
