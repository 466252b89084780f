package monitor

import (
	"sync"

	"github.com/joeycumines/bteng/internal/bt"
)

// Recorder keeps the most recent events in memory. The zero value keeps
// every event.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []bt.TickEvent
}

// NewRecorder returns a recorder holding at most limit events, or every
// event if limit is not positive.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Observe records ev. Pass it to bt.WithObserver or Tree.Subscribe.
func (r *Recorder) Observe(ev bt.TickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append(r.events[:0], r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []bt.TickEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bt.TickEvent(nil), r.events...)
}

// Transitions returns the statuses recorded for the named node, in order.
func (r *Recorder) Transitions(name string) []bt.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bt.Status
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev.Status)
		}
	}
	return out
}

// Latest returns the last recorded status of every node, keyed by node id.
func (r *Recorder) Latest() map[string]bt.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bt.Status)
	for _, ev := range r.events {
		out[ev.NodeID] = ev.Status
	}
	return out
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
