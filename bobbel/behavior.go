package bobbel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// State is the pursuit-game state of an entity.
type State uint8

const (
	StateIdle State = iota
	StateSeeking
	StateShouting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeking:
		return "seeking"
	case StateShouting:
		return "shouting"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Behavior is the fixed scratch state the behaviour strategies work on.
//
// Shouting takes precedence over Seeking when reporting State: an entity
// answering a shout keeps moving toward its target while it shouts.
type Behavior struct {
	target  r2.Vec
	seeking bool

	// Shouts is visible to others this step. HasShouted marks a shout
	// raised during the current step so it survives one decay.
	Shouts     bool
	HasShouted bool

	Caught  bool
	HitWall bool
}

// State derives the current FSM state.
func (b *Behavior) State() State {
	switch {
	case b.Shouts:
		return StateShouting
	case b.seeking:
		return StateSeeking
	default:
		return StateIdle
	}
}

// NodeOfInterest returns the seek target, if any.
func (b *Behavior) NodeOfInterest() (r2.Vec, bool) {
	return b.target, b.seeking
}

// SetNodeOfInterest starts seeking p.
func (b *Behavior) SetNodeOfInterest(p r2.Vec) {
	b.target = p
	b.seeking = true
}

// ClearNodeOfInterest drops the seek target.
func (b *Behavior) ClearNodeOfInterest() {
	b.target = r2.Vec{}
	b.seeking = false
}

// Shout raises the shout flag for the current and the next step.
func (b *Behavior) Shout() {
	b.Shouts = true
	b.HasShouted = true
}

// DecayShout ages a shout: the first call after Shout keeps it audible,
// the second silences it.
func (b *Behavior) DecayShout() {
	if !b.Shouts {
		return
	}
	if b.HasShouted {
		b.HasShouted = false
		return
	}
	b.Shouts = false
}

// Reset returns the state to Idle.
func (b *Behavior) Reset() {
	*b = Behavior{}
}
