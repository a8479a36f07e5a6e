package session

import (
	"errors"
	"sync"

	"github.com/GriffinCanCode/netkit/internal/shared/id"
)

// ErrDuplicateTask is returned when a task identifier is registered twice
var ErrDuplicateTask = errors.New("task identifier already registered")

// registry maps live task identifiers to their delegate records. It is the
// only shared mutable state of a Manager.
type registry struct {
	mu      sync.RWMutex
	records map[id.TaskID]*delegate
}

func newRegistry() *registry {
	return &registry{records: make(map[id.TaskID]*delegate)}
}

func (r *registry) register(d *delegate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	taskID := d.task.ID()
	if _, exists := r.records[taskID]; exists {
		return ErrDuplicateTask
	}
	r.records[taskID] = d
	return nil
}

func (r *registry) lookup(taskID id.TaskID) (*delegate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.records[taskID]
	return d, ok
}

func (r *registry) remove(taskID id.TaskID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, taskID)
}

// take removes and returns the record. Only one caller ever receives a
// given record.
func (r *registry) take(taskID id.TaskID) (*delegate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[taskID]
	if ok {
		delete(r.records, taskID)
	}
	return d, ok
}

func (r *registry) snapshot() []*delegate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*delegate, 0, len(r.records))
	for _, d := range r.records {
		out = append(out, d)
	}
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
