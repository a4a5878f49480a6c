// Package progress tracks the caller-visible status of an ordered list of
// submission steps. It knows nothing about why a step succeeded or failed.
package progress

import "sync"

// Status is the state of one step.
type Status string

// Status values
const (
	StatusPending  Status = "pending"
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Step is one unit of the progress surface.
type Step struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Frozen reports whether any step has failed. A frozen sequence no longer
// advances.
func Frozen(steps []Step) bool {
	for _, s := range steps {
		if s.Status == StatusError {
			return true
		}
	}
	return false
}

// Advance marks steps[current] complete and the following step, if any,
// loading. It returns the new current index, which equals len(steps) once
// the last step is complete. A frozen sequence or an out-of-range index is
// returned unchanged.
func Advance(steps []Step, current int) int {
	if current < 0 || current >= len(steps) || Frozen(steps) {
		return current
	}
	steps[current].Status = StatusComplete
	next := current + 1
	if next < len(steps) {
		steps[next].Status = StatusLoading
	}
	return next
}

// Fail marks steps[current] as error with message and freezes the sequence.
// Earlier completed steps are left as they are.
func Fail(steps []Step, current int, message string) {
	if current < 0 || current >= len(steps) {
		return
	}
	steps[current].Status = StatusError
	steps[current].Detail = message
}

// Snapshot is an immutable copy of a tracker's state.
type Snapshot struct {
	Steps   []Step `json:"steps"`
	Current int    `json:"current"`
	Error   string `json:"error,omitempty"`
}

// Done reports whether every step is complete.
func (s Snapshot) Done() bool {
	return s.Current >= len(s.Steps) && s.Error == ""
}

// Tracker owns one step sequence and notifies an observer on every change.
// It is safe for concurrent polling while the owning flow mutates it.
type Tracker struct {
	mu       sync.Mutex
	steps    []Step
	current  int
	err      string
	onChange func(Snapshot)
}

// NewTracker copies steps, resets them to pending and marks the first one
// loading. onChange may be nil.
func NewTracker(steps []Step, onChange func(Snapshot)) *Tracker {
	owned := make([]Step, len(steps))
	copy(owned, steps)
	for i := range owned {
		owned[i].Status = StatusPending
		owned[i].Detail = ""
	}
	if len(owned) > 0 {
		owned[0].Status = StatusLoading
	}
	t := &Tracker{steps: owned, onChange: onChange}
	t.notify()
	return t
}

// Advance completes the current step. It is a no-op once frozen.
func (t *Tracker) Advance() {
	t.mu.Lock()
	t.current = Advance(t.steps, t.current)
	t.mu.Unlock()
	t.notify()
}

// AdvanceWithDetail completes the current step and attaches detail to it.
// Non-fatal problems are narrated this way so the sequence keeps moving.
func (t *Tracker) AdvanceWithDetail(detail string) {
	t.mu.Lock()
	if t.current < len(t.steps) && !Frozen(t.steps) {
		t.steps[t.current].Detail = detail
	}
	t.current = Advance(t.steps, t.current)
	t.mu.Unlock()
	t.notify()
}

// Fail marks the current step as error and freezes the sequence.
func (t *Tracker) Fail(message string) {
	t.mu.Lock()
	if t.current < len(t.steps) && !Frozen(t.steps) {
		Fail(t.steps, t.current, message)
		t.err = message
	}
	t.mu.Unlock()
	t.notify()
}

// CurrentID returns the id of the current step, or "" when finished.
func (t *Tracker) CurrentID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current >= len(t.steps) {
		return ""
	}
	return t.steps[t.current].ID
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	steps := make([]Step, len(t.steps))
	copy(steps, t.steps)
	return Snapshot{Steps: steps, Current: t.current, Error: t.err}
}

func (t *Tracker) notify() {
	if t.onChange != nil {
		t.onChange(t.Snapshot())
	}
}
