// Package renderer draws the tank with raylib.
//
// Draw calls of a step go to an off-screen back buffer. Flush presents the
// back buffer by copying it to the front buffer, which is what the window
// shows. Presentation waits until every entity image requested during the
// step has been decoded and drawn.
package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/geom"
	"github.com/pthm-cable/bobbeltank/palette"
	"github.com/pthm-cable/bobbeltank/sim"
)

const (
	entityRadius = 6
	imageSize    = 32
	edgeWidth    = 3
	labelSize    = 10
)

var (
	defaultEntity = rl.Color{R: 240, G: 240, B: 240, A: 255}
	defaultSensor = rl.Color{R: 200, G: 200, B: 200, A: 255}
	defaultEdge   = rl.Color{R: 230, G: 140, B: 40, A: 255}
)

// pose is where to draw an image once it has loaded.
type pose struct {
	pos     r2.Vec
	heading float64
}

// TankRenderer implements sim.Display.
type TankRenderer struct {
	width, height int32

	back, front rl.RenderTexture2D
	background  *Background
	ripples     *RippleRenderer

	images  *imageCache
	waiting map[string][]pose
	gate    *sim.FlushGate
	colors  map[string]rl.Color

	drawing     bool
	showSensors bool
	log         *slog.Logger
}

var _ sim.Display = (*TankRenderer)(nil)

// New creates the renderer. The raylib window must already exist.
func New(cfg *config.Config, log *slog.Logger) *TankRenderer {
	if log == nil {
		log = slog.Default()
	}
	w, h := int32(cfg.Tank.Width), int32(cfg.Tank.Height)
	r := &TankRenderer{
		width:       w,
		height:      h,
		back:        rl.LoadRenderTexture(w, h),
		front:       rl.LoadRenderTexture(w, h),
		background:  NewBackground(cfg.Tank),
		ripples:     NewRippleRenderer(),
		images:      newImageCache(),
		waiting:     make(map[string][]pose),
		colors:      make(map[string]rl.Color),
		showSensors: cfg.UI.ShowSensors,
		log:         log,
	}
	r.gate = sim.NewFlushGate(r.present)
	r.background.Init()
	return r
}

// SetShowSensors toggles sensor outlines.
func (r *TankRenderer) SetShowSensors(on bool) { r.showSensors = on }

// ShowSensors reports whether sensor outlines are drawn.
func (r *TankRenderer) ShowSensors() bool { return r.showSensors }

// Pending returns the number of images still loading.
func (r *TankRenderer) Pending() int { return r.gate.Pending() }

func (r *TankRenderer) color(s string, def rl.Color) rl.Color {
	if c, ok := r.colors[s]; ok {
		return c
	}
	c := palette.Or(s, def)
	r.colors[s] = c
	return c
}

func (r *TankRenderer) begin() {
	if r.drawing {
		return
	}
	rl.BeginTextureMode(r.back)
	r.background.Draw(float32(rl.GetTime()))
	r.drawing = true
}

func vec(p r2.Vec) rl.Vector2 {
	return rl.Vector2{X: float32(p.X), Y: float32(p.Y)}
}

func (r *TankRenderer) DisplayEdge(start, end r2.Vec, color string) {
	r.begin()
	c := r.color(color, defaultEdge)
	width := float32(edgeWidth)
	if color == sim.HighlightColor {
		width++
	}
	rl.DrawLineEx(vec(start), vec(end), width, c)
}

func (r *TankRenderer) DisplayEntity(e *bobbel.Entity) {
	r.begin()
	pos := e.Position()
	c := r.color(e.Color, defaultEntity)

	if r.showSensors {
		for _, sn := range e.Sensors() {
			r.drawPolygon(sn.Polygon(), rl.Fade(r.color(sn.Color, defaultSensor), 0.6))
		}
	}

	if node, ok := e.Behavior.NodeOfInterest(); ok {
		n := vec(node)
		rl.DrawLineV(rl.Vector2{X: n.X - 4, Y: n.Y - 4}, rl.Vector2{X: n.X + 4, Y: n.Y + 4}, c)
		rl.DrawLineV(rl.Vector2{X: n.X - 4, Y: n.Y + 4}, rl.Vector2{X: n.X + 4, Y: n.Y - 4}, c)
	}

	drawn := false
	if e.Image != "" {
		if tex, ok := r.images.texture(e.Image); ok {
			drawTexture(tex, pos, e.Heading())
			drawn = true
		} else if r.images.request(e.Image) {
			r.gate.Begin()
			r.waiting[e.Image] = append(r.waiting[e.Image], pose{pos, e.Heading()})
		} else if _, loading := r.waiting[e.Image]; loading {
			r.waiting[e.Image] = append(r.waiting[e.Image], pose{pos, e.Heading()})
		}
	}
	if !drawn {
		rl.DrawCircleV(vec(pos), entityRadius, c)
		nose := geom.Rotate(r2.Add(pos, r2.Vec{X: entityRadius * 2}), pos, e.Heading())
		rl.DrawLineV(vec(pos), vec(nose), c)
	}
	if e.IsCatcher {
		rl.DrawCircleLinesV(vec(pos), entityRadius+3, rl.Red)
	}
	if e.Behavior.HasShouted {
		r.ripples.Spawn(vec(pos), c)
	}
	rl.DrawText(e.Name, int32(pos.X)+entityRadius+2, int32(pos.Y)-entityRadius, labelSize, rl.RayWhite)
}

func (r *TankRenderer) drawPolygon(poly geom.Polygon, c rl.Color) {
	for i := range poly {
		rl.DrawLineV(vec(poly[i]), vec(poly[(i+1)%len(poly)]), c)
	}
}

func drawTexture(tex rl.Texture2D, pos r2.Vec, heading float64) {
	src := rl.Rectangle{Width: float32(tex.Width), Height: float32(tex.Height)}
	scale := float32(imageSize) / float32(max(tex.Width, tex.Height))
	w, h := float32(tex.Width)*scale, float32(tex.Height)*scale
	dst := rl.Rectangle{X: float32(pos.X), Y: float32(pos.Y), Width: w, Height: h}
	rl.DrawTexturePro(tex, src, dst, rl.Vector2{X: w / 2, Y: h / 2}, float32(heading), rl.White)
}

// Flush ends the step's drawing and presents it once pending images are in.
func (r *TankRenderer) Flush() {
	if r.drawing {
		rl.EndTextureMode()
		r.drawing = false
	}
	r.gate.Request()
}

// Poll finishes image loads between steps, drawing each loaded image into
// the back buffer where its entities were. Call it once per frame.
func (r *TankRenderer) Poll(dt float32) {
	r.ripples.Update(dt)
	for _, d := range r.images.collect() {
		poses := r.waiting[d.path]
		delete(r.waiting, d.path)
		if d.err != nil {
			r.log.Error("entity image", "path", d.path, "error", d.err)
		} else if tex, ok := r.images.texture(d.path); ok && len(poses) > 0 {
			rl.BeginTextureMode(r.back)
			for _, p := range poses {
				drawTexture(tex, p.pos, p.heading)
			}
			rl.EndTextureMode()
		}
		r.gate.Done()
	}
}

// present copies the back buffer to the front buffer.
func (r *TankRenderer) present() {
	rl.BeginTextureMode(r.front)
	rl.DrawTextureRec(r.back.Texture, flipped(r.back.Texture), rl.Vector2{}, rl.White)
	rl.EndTextureMode()
}

// Draw shows the front buffer and ripples at (x, y) on screen.
func (r *TankRenderer) Draw(x, y int32) {
	pos := rl.Vector2{X: float32(x), Y: float32(y)}
	rl.DrawTextureRec(r.front.Texture, flipped(r.front.Texture), pos, rl.White)
	r.ripples.Draw(pos.X, pos.Y)
}

// render textures are stored upside down
func flipped(t rl.Texture2D) rl.Rectangle {
	return rl.Rectangle{Width: float32(t.Width), Height: -float32(t.Height)}
}

// Unload frees GPU resources.
func (r *TankRenderer) Unload() {
	r.images.unload()
	r.background.Unload()
	rl.UnloadRenderTexture(r.back)
	rl.UnloadRenderTexture(r.front)
}
