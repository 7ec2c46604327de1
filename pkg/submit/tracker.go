package submit

import "sync"

// State is the lifecycle state of a form.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Tracker records which forms have a submission in flight. Forms are never
// disabled while submitting, so more than one request per form may overlap.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]int
}

func (t *Tracker) begin(formID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == nil {
		t.inflight = make(map[string]int)
	}
	t.inflight[formID]++
}

func (t *Tracker) end(formID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[formID] <= 1 {
		delete(t.inflight, formID)
		return
	}
	t.inflight[formID]--
}

// State returns the current state of formID.
func (t *Tracker) State(formID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[formID] > 0 {
		return StateSubmitting
	}
	return StateIdle
}

// InFlight returns the number of pending submissions for formID.
func (t *Tracker) InFlight(formID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[formID]
}
