package vizserver

import (
	"encoding/json"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/sim"
	"github.com/pthm-cable/bobbeltank/telemetry"
)

// Frame is one step as sent to viewers.
type Frame struct {
	Seq      uint64                  `json:"seq"`
	Width    float64                 `json:"width"`
	Height   float64                 `json:"height"`
	Entities []telemetry.EntityState `json:"entities"`
	Edges    []telemetry.EdgeState   `json:"edges"`
}

// Display turns draw calls into frames published on a Server.
type Display struct {
	srv     *Server
	sensors bool
	frame   Frame
}

var _ sim.Display = (*Display)(nil)

// NewDisplay returns a display for a tank of the given size. Sensor
// outlines are included when withSensors is set.
func NewDisplay(srv *Server, width, height float64, withSensors bool) *Display {
	return &Display{
		srv:     srv,
		sensors: withSensors,
		frame:   Frame{Width: width, Height: height},
	}
}

// SetSensors toggles sensor outlines in subsequent frames.
func (d *Display) SetSensors(on bool) { d.sensors = on }

func (d *Display) DisplayEntity(e *bobbel.Entity) {
	d.frame.Entities = append(d.frame.Entities, telemetry.NewEntityState(e, d.sensors))
}

func (d *Display) DisplayEdge(start, end r2.Vec, color string) {
	d.frame.Edges = append(d.frame.Edges, telemetry.EdgeState{
		Color:     color,
		Start:     [2]float64{start.X, start.Y},
		End:       [2]float64{end.X, end.Y},
		Highlight: color == sim.HighlightColor,
	})
}

// Flush publishes the accumulated frame and starts a new one.
func (d *Display) Flush() {
	d.frame.Seq++
	data, err := json.Marshal(d.frame)
	if err != nil {
		slog.Error("viz frame", "error", err)
	} else {
		d.srv.Publish(data)
	}
	d.frame.Entities = d.frame.Entities[:0]
	d.frame.Edges = d.frame.Edges[:0]
}
