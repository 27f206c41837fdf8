package effects

import (
	"sync"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/events"
	"github.com/cwbudde/algo-reactive/dsp/latency"
)

// Resolver receives the hit/miss outcome of interactions. The event
// generator satisfies this and folds outcomes into difficulty adaptation.
type Resolver interface {
	Resolve(hit bool)
}

// Telegraph runs the advance-warning lead-ins for spawned events. Each
// announced event schedules its interaction window through the latency
// compensator, and every resolved interaction reports its timing error back
// so the adaptive offset keeps improving.
type Telegraph struct {
	comp     *latency.Compensator
	resolver Resolver

	mu      sync.Mutex
	pending map[int]*pendingEvent
	nextID  int
}

type pendingEvent struct {
	event    events.SpawnEvent
	deadline time.Duration
	handle   *latency.Handle
}

// NewTelegraph wires the telegraph to the compensator and the resolver.
func NewTelegraph(comp *latency.Compensator, resolver Resolver) *Telegraph {
	return &Telegraph{
		comp:     comp,
		resolver: resolver,
		pending:  make(map[int]*pendingEvent),
	}
}

// Announce starts an event's telegraph and schedules onWindow to fire at the
// latency-compensated interaction moment (spawn plus the full telegraph
// lead). It returns the pending id used to resolve the interaction later.
func (t *Telegraph) Announce(ev events.SpawnEvent, now time.Duration, onWindow func()) int {
	deadline := ev.SpawnTime + ev.TelegraphDuration

	delay := deadline - now
	if delay < 0 {
		delay = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID

	p := &pendingEvent{event: ev, deadline: deadline}

	if onWindow != nil {
		p.handle = t.comp.ScheduleCompensated(onWindow, delay)
	}

	t.pending[id] = p

	return id
}

// Pending returns the number of announced, unresolved events.
func (t *Telegraph) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// Resolve reports the player's interaction with a pending event. The timing
// error between the scheduled window and the actual interaction feeds the
// latency adaptation loop; the hit/miss outcome feeds difficulty adaptation.
func (t *Telegraph) Resolve(id int, actual time.Duration, hit bool) bool {
	t.mu.Lock()
	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	t.comp.RecordTimingMeasurement(p.deadline, actual)

	if t.resolver != nil {
		t.resolver.Resolve(hit)
	}

	return true
}

// ExpireBefore sweeps out every pending event whose interaction deadline
// passed before cutoff, reporting each one to the resolver as a miss. No
// timing measurement is recorded because no interaction happened. It returns
// the number of expired events.
func (t *Telegraph) ExpireBefore(cutoff time.Duration) int {
	t.mu.Lock()

	var expired []*pendingEvent

	for id, p := range t.pending {
		if p.deadline < cutoff {
			expired = append(expired, p)
			delete(t.pending, id)
		}
	}
	t.mu.Unlock()

	for _, p := range expired {
		if p.handle != nil {
			p.handle.Cancel()
		}

		if t.resolver != nil {
			t.resolver.Resolve(false)
		}
	}

	return len(expired)
}

// Cancel drops a pending event without resolving it. Its scheduled window
// callback is stopped if it has not fired yet.
func (t *Telegraph) Cancel(id int) bool {
	t.mu.Lock()
	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	if p.handle != nil {
		p.handle.Cancel()
	}

	return true
}
