package behavior

import (
	"math/rand"

	"github.com/pthm-cable/bobbeltank/bobbel"
	"github.com/pthm-cable/bobbeltank/config"
	"github.com/pthm-cable/bobbeltank/geom"
)

// MarcoPolo plays the pursuit game. It owns the round-wide shout cooldown
// and hands each entity to the Catcher or Runner strategy.
type MarcoPolo struct {
	round   *round
	catcher *Catcher
	runner  *Runner
}

type round struct {
	mover
	lastShout int
}

// NewMarcoPolo returns a game with the cooldown starting at step 0.
func NewMarcoPolo(cfg config.GameConfig, rng *rand.Rand) *MarcoPolo {
	r := &round{mover: mover{cfg: cfg, rng: rng}}
	return &MarcoPolo{round: r, catcher: &Catcher{r}, runner: &Runner{r}}
}

func (m *MarcoPolo) Step(e *bobbel.Entity, p bobbel.Perceptions, step int) Decision {
	if e.IsCatcher {
		return m.catcher.Step(e, p, step)
	}
	return m.runner.Step(e, p, step)
}

// Reset restarts the shout cooldown for a new round.
func (m *MarcoPolo) Reset() {
	m.round.lastShout = 0
}

// LastShout returns the step of the most recent catcher shout.
func (m *MarcoPolo) LastShout() int {
	return m.round.lastShout
}

// Catcher shouts on cooldown, homes in on the closest answer and catches
// whatever its feel sensor touches.
type Catcher struct {
	*round
}

func (c *Catcher) Step(e *bobbel.Entity, p bobbel.Perceptions, step int) Decision {
	var d Decision
	b := &e.Behavior
	b.DecayShout()

	if c.lastShout+c.cfg.ShoutCooldown < step {
		b.Shout()
		b.ClearNodeOfInterest()
		c.lastShout = step
		d.Shouted = true
	}

	var closest *bobbel.Perception
	for i, pc := range p[c.cfg.HearSensor] {
		if pc.Kind != bobbel.KindEntity || !pc.Target.Shouts {
			continue
		}
		// strict comparison keeps the first of equidistant answers
		if closest == nil || pc.Distance < closest.Distance {
			closest = &p[c.cfg.HearSensor][i]
		}
	}
	if closest != nil {
		node, ok := b.NodeOfInterest()
		if !ok || geom.Distance(e.Position(), node) > closest.Distance {
			b.SetNodeOfInterest(closest.Target.Position)
			d.Retargeted = true
		}
	}

	for _, pc := range p[c.cfg.FeelSensor] {
		if pc.Kind == bobbel.KindEntity {
			d.Caught = append(d.Caught, pc.Target.ID)
		}
	}

	c.steer(e, p, &d)
	return d
}

// Runner answers the catcher's shout and heads for where it thinks the
// shout came from.
type Runner struct {
	*round
}

func (r *Runner) Step(e *bobbel.Entity, p bobbel.Perceptions, _ int) Decision {
	var d Decision
	b := &e.Behavior
	b.DecayShout()

	// Any shout is echoed; only the catcher's is followed.
	for _, pc := range p[r.cfg.HearSensor] {
		if pc.Kind != bobbel.KindEntity || !pc.Target.Shouts {
			continue
		}
		if !d.Echoed {
			b.Shout()
			d.Echoed = true
		}
		if pc.Target.IsCatcher {
			b.SetNodeOfInterest(r.estimate(e, pc.Target.Position))
			break
		}
	}

	r.steer(e, p, &d)
	return d
}
