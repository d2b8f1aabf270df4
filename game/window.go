package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/bobbeltank/ui"
)

// Update handles input and runs a step when the timer is due.
func (g *Game) Update() {
	g.handleInput()
	g.sim.Poll()
	if g.renderer != nil {
		g.renderer.Poll(rl.GetFrameTime())
	}
	g.sim.RecordFrame()
}

// handleInput processes keyboard shortcuts.
func (g *Game) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		g.toggleRunning()
	}
	if rl.IsKeyPressed(rl.KeyN) {
		g.sim.Step()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.sim.Restart()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		g.setShowSensors(!g.showSensors)
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.Snapshot()
	}
	if rl.IsKeyPressed(rl.KeyD) && g.opts.LogPanel != nil {
		hide := !g.opts.LogPanel.HideDebug()
		g.opts.LogPanel.SetHideDebug(hide)
		if g.panel != nil {
			g.panel.SetHideDebug(hide)
		}
	}
}

func (g *Game) toggleRunning() {
	if g.sim.Running() {
		g.sim.Stop()
	} else {
		g.sim.Start()
	}
}

// Draw renders the tank and the control panel.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	if g.renderer != nil {
		g.renderer.Draw(0, 0)
	}

	var a ui.Actions
	if g.panel != nil {
		a = g.panel.Draw(g.status())
	}
	rl.EndDrawing()

	g.apply(a)
}

func (g *Game) status() ui.Status {
	st := ui.Status{
		Running:  g.sim.Running(),
		Round:    g.sim.Round(),
		Step:     g.sim.StepCount(),
		Interval: g.sim.Interval(),
		Perf:     g.sim.Perf(),
		Summary:  g.sim.Summary(),
		VizAddr:  g.vizAddr,
	}
	if g.renderer != nil {
		st.Pending = g.renderer.Pending()
	}
	return st
}

// apply runs the panel actions after the frame is drawn.
func (g *Game) apply(a ui.Actions) {
	if g.panel == nil {
		return
	}
	if a.Toggle {
		g.toggleRunning()
	}
	if a.Step {
		g.sim.Step()
	}
	if a.Restart {
		g.sim.Restart()
	}
	if a.Snapshot {
		g.Snapshot()
	}
	if a.Interval > 0 {
		g.sim.SetInterval(a.Interval)
	}
	if a.ShowSensors != g.showSensors {
		g.setShowSensors(a.ShowSensors)
	}
}
