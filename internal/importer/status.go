package importer

import "sync"

// Phase is the import status vocabulary surfaced to the caller.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Status is the latest reportable state of an import run.
type Status struct {
	Phase   Phase  `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusReporter holds the current import status for display. It also
// enforces the single-import rule: TryStart only succeeds when no run
// is in flight.
type StatusReporter struct {
	mu  sync.Mutex
	cur Status
}

// NewStatusReporter starts in the idle phase.
func NewStatusReporter() *StatusReporter {
	return &StatusReporter{cur: Status{Phase: PhaseIdle}}
}

// TryStart transitions to loading unless a run is already loading.
// Terminal phases (success, error) are restartable.
func (r *StatusReporter) TryStart(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur.Phase == PhaseLoading {
		return false
	}
	r.cur = Status{Phase: PhaseLoading, Message: message}
	return true
}

// Loading updates the in-flight message ("creating category X...",
// "saving N transactions...") for progress visibility.
func (r *StatusReporter) Loading(message string) {
	r.set(Status{Phase: PhaseLoading, Message: message})
}

// Success ends the run successfully.
func (r *StatusReporter) Success(message string) {
	r.set(Status{Phase: PhaseSuccess, Message: message})
}

// Error ends the run with a failure message.
func (r *StatusReporter) Error(message string) {
	r.set(Status{Phase: PhaseError, Message: message})
}

// Reset returns to idle, e.g. when the user dismisses the result so the
// same file can be selected again. It refuses while a run is loading:
// resetting mid-run would let a second import start alongside it.
func (r *StatusReporter) Reset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur.Phase == PhaseLoading {
		return false
	}
	r.cur = Status{Phase: PhaseIdle}
	return true
}

// Get returns the current status.
func (r *StatusReporter) Get() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}

func (r *StatusReporter) set(s Status) {
	r.mu.Lock()
	r.cur = s
	r.mu.Unlock()
}
