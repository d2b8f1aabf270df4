// Package behavior decides what each bobbel does in a step.
//
// A Strategy reads the entity and its perceptions, updates the entity's
// behaviour record and returns the pose change for the driver to apply.
package behavior

import (
	"math/rand"

	uuid "github.com/satori/go.uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/geom"
)

// Decision is the outcome of one strategy step.
type Decision struct {
	Turn    float64 // degrees, applied first
	Advance float64 // distance along the new heading

	Caught []uuid.UUID

	Shouted    bool // catcher started a shout
	Echoed     bool // runner answered a shout
	Retargeted bool // catcher picked a new node of interest
	Arrived    bool // node of interest reached
}

// Strategy is the per-role behaviour.
type Strategy interface {
	Step(e *bobbel.Entity, p bobbel.Perceptions, step int) Decision
}

// New returns the strategy for the configured game mode.
func New(cfg config.GameConfig, rng *rand.Rand) Strategy {
	if cfg.Mode == "wander" {
		return &Wanderer{mover: mover{cfg: cfg, rng: rng}}
	}
	return NewMarcoPolo(cfg, rng)
}

// mover holds the movement rules every role shares.
type mover struct {
	cfg config.GameConfig
	rng *rand.Rand
}

func (m *mover) sign() float64 {
	if m.rng.Float64() > 0.5 {
		return 1
	}
	return -1
}

// steer fills in Turn and Advance. Priority: wall, edge, node of
// interest, random walk.
func (m *mover) steer(e *bobbel.Entity, p bobbel.Perceptions, d *Decision) {
	b := &e.Behavior

	if b.HitWall {
		b.HitWall = false
		d.Turn = 180
		d.Advance = e.Speed
		return
	}

	if perceivesEdge(p) {
		d.Turn = m.sign() * m.cfg.AvoidTurn
		d.Advance = -e.Speed
		return
	}

	if node, ok := b.NodeOfInterest(); ok {
		pos := e.Position()
		if geom.Distance(pos, node) <= m.cfg.ArrivalThreshold {
			b.ClearNodeOfInterest()
			d.Arrived = true
		} else {
			turn := geom.NormalizeBearing(geom.AngleBetween(pos, node) - e.Heading())
			if limit := m.cfg.MaxTurn; limit > 0 {
				turn = max(-limit, min(limit, turn))
			}
			d.Turn = turn
			d.Advance = e.Speed
			return
		}
	}

	d.Turn = m.sign() * m.cfg.IdleTurn
	d.Advance = e.Speed
}

// estimate perturbs p by (1-precision)*uncertainty in a random direction and
// keeps the result inside the entity's movement bounds.
func (m *mover) estimate(e *bobbel.Entity, p r2.Vec) r2.Vec {
	precision := max(0, min(1, e.Precision))
	offset := (1 - precision) * m.cfg.Uncertainty
	if offset > 0 {
		p = geom.Rotate(r2.Add(p, r2.Vec{X: offset}), p, m.rng.Float64()*360)
	}
	if box, ok := e.MovementBounds(); ok {
		p.X, _ = geom.Clamp(p.X, box.Min.X, box.Max.X)
		p.Y, _ = geom.Clamp(p.Y, box.Min.Y, box.Max.Y)
	}
	return p
}

func perceivesEdge(p bobbel.Perceptions) bool {
	for _, list := range p {
		for _, pc := range list {
			if pc.Kind == bobbel.KindEdge {
				return true
			}
		}
	}
	return false
}

// Wanderer random-walks and ignores other entities.
type Wanderer struct {
	mover
}

func (w *Wanderer) Step(e *bobbel.Entity, p bobbel.Perceptions, _ int) Decision {
	var d Decision
	w.steer(e, p, &d)
	return d
}
