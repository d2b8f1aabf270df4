package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	rippleLife   = 0.8 // seconds
	rippleRadius = 40
)

// ripple is an expanding ring marking a shout.
type ripple struct {
	pos   rl.Vector2
	color rl.Color
	age   float32
}

// RippleRenderer draws shout ripples on top of the tank.
type RippleRenderer struct {
	ripples []ripple
}

// NewRippleRenderer creates a new ripple renderer.
func NewRippleRenderer() *RippleRenderer {
	return &RippleRenderer{}
}

// Spawn starts a ripple at pos.
func (r *RippleRenderer) Spawn(pos rl.Vector2, color rl.Color) {
	r.ripples = append(r.ripples, ripple{pos: pos, color: color})
}

// Update ages ripples by dt seconds and drops finished ones.
func (r *RippleRenderer) Update(dt float32) {
	live := r.ripples[:0]
	for _, rp := range r.ripples {
		rp.age += dt
		if rp.age < rippleLife {
			live = append(live, rp)
		}
	}
	r.ripples = live
}

// Draw renders all ripples offset by (x, y).
func (r *RippleRenderer) Draw(x, y float32) {
	for _, rp := range r.ripples {
		t := rp.age / rippleLife
		radius := 6 + t*rippleRadius
		c := rp.color
		c.A = uint8((1 - t) * 200)
		rl.DrawRing(rl.Vector2{X: rp.pos.X + x, Y: rp.pos.Y + y}, radius-1.5, radius, 0, 360, 36, c)
	}
}
