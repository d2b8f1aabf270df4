// Package telemetry provides round tracking, step timing and state snapshots.
package telemetry

import "fmt"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventShout EventType = iota
	EventEcho
	EventRetarget
	EventArrival
	EventWallHit
	EventCatch
	EventPerceptionError

	numEventTypes
)

var eventNames = [numEventTypes]string{
	EventShout:           "shout",
	EventEcho:            "echo",
	EventRetarget:        "retarget",
	EventArrival:         "arrival",
	EventWallHit:         "wall_hit",
	EventCatch:           "catch",
	EventPerceptionError: "perception_error",
}

func (t EventType) String() string {
	if t < numEventTypes {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// Event represents a single telemetry event.
type Event struct {
	Type   EventType
	Step   int
	Entity string // name of the acting entity

	// Optional, the other party of a catch
	Target string
}

// NewCatchEvent creates a catch event.
func NewCatchEvent(step int, catcher, caught string) Event {
	return Event{Type: EventCatch, Step: step, Entity: catcher, Target: caught}
}
