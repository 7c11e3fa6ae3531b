package recorder

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// Outcome is the immutable record of one step's verdict. Outcomes are
// created exactly once per step attempt and never mutated after recording.
type Outcome struct {
	Name      string
	Passed    bool
	Details   string
	Timestamp time.Time
}

// Summary aggregates recorded outcomes for reporting.
type Summary struct {
	Total       int
	Passed      int
	Failed      int
	SuccessRate float64 // percentage, 0 when no outcomes recorded
}

// Recorder accumulates step outcomes in execution order. Recording never
// fails and has no side effects beyond the recorder's own state.
type Recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	logger   arbor.ILogger
	now      func() time.Time
}

// New creates a Recorder. The logger may be nil for silent recording.
func New(logger arbor.ILogger) *Recorder {
	return &Recorder{
		outcomes: make([]Outcome, 0),
		logger:   logger,
		now:      time.Now,
	}
}

// Record appends an outcome with the current timestamp.
func (r *Recorder) Record(name string, passed bool, details string) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, Outcome{
		Name:      name,
		Passed:    passed,
		Details:   details,
		Timestamp: r.now(),
	})
	r.mu.Unlock()

	if r.logger == nil {
		return
	}
	if passed {
		r.logger.Info().Str("step", name).Str("details", details).Msg("PASSED")
	} else {
		r.logger.Warn().Str("step", name).Str("details", details).Msg("FAILED")
	}
}

// Outcomes returns a copy of the recorded outcomes in insertion order.
func (r *Recorder) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Outcome, len(r.outcomes))
	copy(result, r.outcomes)
	return result
}

// Summarize computes aggregate counts and the success rate. It is pure and
// idempotent; callable any number of times.
func (r *Recorder) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{Total: len(r.outcomes)}
	for _, o := range r.outcomes {
		if o.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	if s.Total > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.Total) * 100
	}
	return s
}
