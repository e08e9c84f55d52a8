package tasks

import (
	"context"
	"sync"
	"time"
)

// Entry describes one task currently admitted by the registry.
type Entry struct {
	FileName  string    `json:"file_name"`
	StartTime time.Time `json:"start_time"`
}

// Registry bounds how many end-to-end requests run at once and tracks the
// active ones by task ID. It is owned by the serving process; entries live
// only as long as their task.
type Registry struct {
	mu     sync.Mutex
	slots  chan struct{}
	active map[string]Entry
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 1
	}
	return &Registry{
		slots:  make(chan struct{}, capacity),
		active: make(map[string]Entry),
	}
}

// Acquire blocks until a slot frees up or ctx is done, then records the task.
func (r *Registry) Acquire(ctx context.Context, id, fileName string) error {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	r.active[id] = Entry{FileName: fileName, StartTime: time.Now()}
	r.mu.Unlock()
	return nil
}

// Release clears the task's entry and frees its slot. Callers pair it with
// Acquire via defer so slots survive handler panics.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
	<-r.slots
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Registry) Capacity() int { return cap(r.slots) }

// Snapshot returns a copy of the active entries for read-only endpoints.
func (r *Registry) Snapshot() map[string]Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Entry, len(r.active))
	for k, v := range r.active {
		out[k] = v
	}
	return out
}
