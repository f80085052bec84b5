package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that an analysis phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a phase boundary while analysing one unit.
type PhaseEvent struct {
	Unit    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during AnalyseBundle. It
// may be called from multiple goroutines when units run in parallel.
type PhaseObserver func(PhaseEvent)

func (o PhaseObserver) begin(unit, name string) time.Time {
	if o != nil {
		o(PhaseEvent{Unit: unit, Name: name, Status: PhaseStart})
	}
	return time.Now()
}

func (o PhaseObserver) end(unit, name string, started time.Time) {
	if o != nil {
		o(PhaseEvent{Unit: unit, Name: name, Status: PhaseEnd, Elapsed: time.Since(started)})
	}
}
