package telemetry

// Collector accumulates events within one round and produces a RoundRecord.
type Collector struct {
	counts    [numEventTypes]int
	lastCatch *Event
}

// NewCollector creates a new round collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record counts an event.
func (c *Collector) Record(ev Event) {
	if ev.Type >= numEventTypes {
		return
	}
	c.counts[ev.Type]++
	if ev.Type == EventCatch {
		c.lastCatch = &ev
	}
}

// Count returns how often t was recorded this round.
func (c *Collector) Count(t EventType) int {
	if t >= numEventTypes {
		return 0
	}
	return c.counts[t]
}

// Flush produces the record for the finished round and resets the counters.
func (c *Collector) Flush(round, steps int) RoundRecord {
	r := RoundRecord{
		Round:            round,
		Steps:            steps,
		Shouts:           c.counts[EventShout],
		Echoes:           c.counts[EventEcho],
		Retargets:        c.counts[EventRetarget],
		Arrivals:         c.counts[EventArrival],
		WallHits:         c.counts[EventWallHit],
		Catches:          c.counts[EventCatch],
		PerceptionErrors: c.counts[EventPerceptionError],
	}
	if c.lastCatch != nil {
		r.Catcher = c.lastCatch.Entity
		r.Caught = c.lastCatch.Target
	}

	c.counts = [numEventTypes]int{}
	c.lastCatch = nil
	return r
}
