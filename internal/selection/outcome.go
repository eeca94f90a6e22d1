package selection

import (
	"sync"

	"psikit/internal/logging"
)

// OutcomeSink mirrors outcome writes to durable storage.
type OutcomeSink interface {
	WriteOutcome(alias string) error
}

// Recorder holds the alias of the most recently selected rule. The rejoinder
// mechanism downstream reads it to stitch follow-ups onto the last thing that
// fired. The slot is overwritten on every aliased selection and never cleared
// by the selection engine; callers needing "no rule fired" semantics must
// inspect the pass result, not this slot.
type Recorder struct {
	mu    sync.RWMutex
	alias string
	set   bool
	sink  OutcomeSink
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// NewRecorderWithSink returns a recorder that mirrors writes to sink.
func NewRecorderWithSink(sink OutcomeSink) *Recorder {
	return &Recorder{sink: sink}
}

// Write overwrites the slot with alias.
func (r *Recorder) Write(alias string) {
	r.mu.Lock()
	r.alias = alias
	r.set = true
	sink := r.sink
	r.mu.Unlock()

	logging.Get(logging.CategoryOutcome).Info("last executed rule: %s", alias)

	if sink != nil {
		if err := sink.WriteOutcome(alias); err != nil {
			logging.Get(logging.CategoryOutcome).Error("persist outcome: %v", err)
		}
	}
}

// Read returns the last recorded alias, or ok=false if nothing aliased has
// been selected yet.
func (r *Recorder) Read() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alias, r.set
}
