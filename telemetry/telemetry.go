// Package telemetry gives the scraper a structured side-channel for
// run events, so tests can assert on event kinds instead of matching
// log strings.
package telemetry

import (
	"sync"

	"instagram-scraper/utils"
)

// Kind classifies a run event.
type Kind string

const (
	PhaseStart    Kind = "phase_start"
	PhaseSuccess  Kind = "phase_success"
	PhaseFailure  Kind = "phase_failure"
	DegradedField Kind = "degraded_field"
)

// Event is one structured run event.
type Event struct {
	Kind   Kind
	Phase  string
	Detail string
}

// Sink receives run events.
type Sink interface {
	Emit(ev Event)
}

// LogSink forwards events to the application logger.
type LogSink struct {
	Logger *utils.Logger
}

func (s *LogSink) Emit(ev Event) {
	switch ev.Kind {
	case PhaseFailure:
		s.Logger.Error("[%s] %s: %s", ev.Kind, ev.Phase, ev.Detail)
	case DegradedField:
		s.Logger.Warn("[%s] %s: %s", ev.Kind, ev.Phase, ev.Detail)
	default:
		s.Logger.Info("[%s] %s: %s", ev.Kind, ev.Phase, ev.Detail)
	}
}

// Recorder collects events in memory for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events match the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
