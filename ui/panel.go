package ui

import (
	"fmt"
	"log/slog"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/bobbeltank/logging"
	"github.com/pthm-cable/bobbeltank/telemetry"
)

// Interval slider bounds in milliseconds.
const (
	MinIntervalMS = 1
	MaxIntervalMS = 1000
)

// Status is what the panel shows about the running simulation.
type Status struct {
	Running  bool
	Round    int
	Step     int
	Interval time.Duration
	Pending  int // images still loading
	Perf     telemetry.PerfStats
	Summary  telemetry.RoundSummary
	VizAddr  string
}

// Actions are the controls the user touched this frame.
type Actions struct {
	Toggle      bool // start or stop
	Step        bool
	Restart     bool
	Snapshot    bool
	Interval    time.Duration // zero when unchanged
	ShowSensors bool
	HideDebug   bool
}

// Panel is the control column drawn right of the tank.
type Panel struct {
	renderer *Renderer
	log      *logging.Panel
	x, y     int32
	width    int32
	height   int32

	showSensors bool
	hideDebug   bool
}

// NewPanel creates a panel at (x, y). log may be nil.
func NewPanel(x, y, width, height int32, log *logging.Panel, showSensors bool) *Panel {
	p := &Panel{
		renderer:    NewRenderer(),
		log:         log,
		x:           x,
		y:           y,
		width:       width,
		height:      height,
		showSensors: showSensors,
	}
	if log != nil {
		p.hideDebug = log.HideDebug()
	}
	return p
}

// SetShowSensors syncs the sensor toggle after a keyboard shortcut.
func (p *Panel) SetShowSensors(on bool) { p.showSensors = on }

// SetHideDebug syncs the debug toggle after a keyboard shortcut.
func (p *Panel) SetHideDebug(on bool) { p.hideDebug = on }

// Draw renders the panel and returns what was clicked.
func (p *Panel) Draw(st Status) Actions {
	r := p.renderer
	th := r.Theme
	pad := th.Padding
	r.DrawPanel(p.x, p.y, p.width, p.height)

	a := Actions{ShowSensors: p.showSensors, HideDebug: p.hideDebug}
	x := p.x + pad
	y := p.y + pad
	inner := float32(p.width - 2*pad)
	half := (inner - float32(pad)) / 2
	bh := float32(th.ButtonHeight)

	y = r.DrawSectionHeader(x, y, "Simulation")
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: half, Height: bh}, toggleText(st.Running, "Stop", "Start")) {
		a.Toggle = true
	}
	if gui.Button(rl.Rectangle{X: float32(x) + half + float32(pad), Y: float32(y), Width: half, Height: bh}, "Step") {
		a.Step = true
	}
	y += th.ButtonHeight + 4
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: half, Height: bh}, "Restart") {
		a.Restart = true
	}
	if gui.Button(rl.Rectangle{X: float32(x) + half + float32(pad), Y: float32(y), Width: half, Height: bh}, "Snapshot") {
		a.Snapshot = true
	}
	y += th.ButtonHeight + 8

	ms := float32(st.Interval.Milliseconds())
	rl.DrawText("Interval", x, y, th.FontSize, th.LabelColor)
	y += th.LineHeight
	next := gui.SliderBar(
		rl.Rectangle{X: float32(x) + 30, Y: float32(y), Width: inner - 90, Height: 16},
		fmt.Sprint(MinIntervalMS),
		fmt.Sprintf("%d ms", int(ms)),
		ms, MinIntervalMS, MaxIntervalMS,
	)
	if int(next) != int(ms) {
		a.Interval = time.Duration(next) * time.Millisecond
	}
	y += 24

	y = r.DrawSectionHeader(x, y, "View")
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: half, Height: bh}, toggleText(p.showSensors, "Sensors: on", "Sensors: off")) {
		p.showSensors = !p.showSensors
	}
	if gui.Button(rl.Rectangle{X: float32(x) + half + float32(pad), Y: float32(y), Width: half, Height: bh}, toggleText(p.hideDebug, "Debug: off", "Debug: on")) {
		p.hideDebug = !p.hideDebug
		if p.log != nil {
			p.log.SetHideDebug(p.hideDebug)
		}
	}
	a.ShowSensors, a.HideDebug = p.showSensors, p.hideDebug
	y += th.ButtonHeight + 8

	y = r.DrawSectionHeader(x, y, "Status")
	y = r.DrawLabelValue(x, y, "State", toggleText(st.Running, "running", "stopped"))
	y = r.DrawLabelValue(x, y, "Round", fmt.Sprint(st.Round))
	y = r.DrawLabelValue(x, y, "Step", fmt.Sprint(st.Step))
	y = r.DrawLabelValue(x, y, "Steps/s", fmt.Sprintf("%.1f", st.Perf.StepsPerSecond))
	y = r.DrawLabelValue(x, y, "Step time", fmt.Sprintf("%.2f ms", float64(st.Perf.AvgStep.Microseconds())/1000))
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%.0f", st.Perf.FPS))
	if st.Pending > 0 {
		y = r.DrawLabelValue(x, y, "Loading", fmt.Sprintf("%d images", st.Pending))
	}
	if st.VizAddr != "" {
		y = r.DrawLabelValue(x, y, "Viewer", st.VizAddr)
	}
	y += 4

	y = r.DrawSectionHeader(x, y, "Rounds")
	y = r.DrawLabelValue(x, y, "Catches", fmt.Sprint(st.Summary.Catches))
	if st.Summary.Rounds > 0 {
		y = r.DrawLabelValue(x, y, "Mean", fmt.Sprintf("%.0f steps", st.Summary.MeanSteps))
		y = r.DrawLabelValue(x, y, "Median", fmt.Sprintf("%.0f steps", st.Summary.MedianSteps))
		y = r.DrawLabelValue(x, y, "Range", fmt.Sprintf("%.0f..%.0f", st.Summary.MinSteps, st.Summary.MaxSteps))
	}
	y += 4

	p.drawLog(x, y)
	return a
}

// drawLog lists the live log panel entries, newest at the bottom.
func (p *Panel) drawLog(x, y int32) {
	if p.log == nil {
		return
	}
	r := p.renderer
	th := r.Theme
	y = r.DrawSectionHeader(x, y, "Log")

	entries := p.log.Entries()
	room := int((p.y + p.height - th.Padding - y) / th.LineHeight)
	if room <= 0 {
		return
	}
	if len(entries) > room {
		entries = entries[len(entries)-room:]
	}
	maxW := p.width - 2*th.Padding
	for _, e := range entries {
		rl.DrawText(clip(e.Message, maxW, th.FontSize), x, y, th.FontSize, p.levelColor(e.Level))
		y += th.LineHeight
	}
}

func (p *Panel) levelColor(l slog.Level) rl.Color {
	th := p.renderer.Theme
	switch {
	case l >= slog.LevelError:
		return th.ErrorColor
	case l >= slog.LevelWarn:
		return th.WarnColor
	case l >= slog.LevelInfo:
		return th.ValueColor
	default:
		return th.DebugColor
	}
}

// clip shortens s with an ellipsis until it fits width pixels.
func clip(s string, width, size int32) string {
	if rl.MeasureText(s, size) <= width {
		return s
	}
	rs := []rune(s)
	for len(rs) > 0 && rl.MeasureText(string(rs)+"...", size) > width {
		rs = rs[:len(rs)-1]
	}
	return string(rs) + "..."
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
