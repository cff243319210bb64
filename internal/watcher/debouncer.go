package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects events and emits them as one batch once no new event
// has arrived for the delay. Repeated events for a path collapse into the
// latest one.
type Debouncer struct {
	delay  time.Duration
	emit   func([]Event)
	mu     sync.Mutex
	timer  *time.Timer
	byPath map[string]Event
}

// NewDebouncer creates a debouncer that calls emit with each batch.
func NewDebouncer(delay time.Duration, emit func([]Event)) *Debouncer {
	return &Debouncer{
		delay:  delay,
		emit:   emit,
		byPath: make(map[string]Event),
	}
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byPath[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	events := d.drain()
	d.timer = nil
	d.mu.Unlock()

	if len(events) > 0 && d.emit != nil {
		d.emit(events)
	}
}

// drain returns the pending events sorted by path. Callers hold mu.
func (d *Debouncer) drain() []Event {
	events := make([]Event, 0, len(d.byPath))
	for _, e := range d.byPath {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	d.byPath = make(map[string]Event)
	return events
}

// Flush emits pending events immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire()
}

// Cancel drops pending events without emitting them.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.byPath = make(map[string]Event)
}

// Pending returns the number of distinct paths waiting to be emitted.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byPath)
}
