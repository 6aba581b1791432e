package sessions

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unipublish/backend/internal/workflow"
)

// ErrSessionNotFound indicates an unknown or expired session identifier.
var ErrSessionNotFound = errors.New("session not found")

// Factory builds the controller for a new session.
type Factory func(id string) *workflow.Controller

type entry struct {
	controller *workflow.Controller
	lastSeen   time.Time
}

// Registry keeps one workflow controller per dashboard session in memory.
// Sessions idle for longer than the TTL are evicted lazily on access.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*entry
}

// NewRegistry returns a registry whose sessions expire after ttl of
// inactivity. A non-positive ttl keeps sessions forever.
func NewRegistry(factory Factory, ttl time.Duration) *Registry {
	return &Registry{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*entry),
	}
}

// Create starts a new session and returns its controller.
func (r *Registry) Create() *workflow.Controller {
	id := uuid.NewString()
	var ctrl *workflow.Controller
	if r.factory != nil {
		ctrl = r.factory(id)
	}
	if ctrl == nil {
		ctrl = workflow.New(workflow.Options{SessionID: id})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.gcLocked(now)
	r.items[ctrl.SessionID()] = &entry{controller: ctrl, lastSeen: now}
	return ctrl
}

// Get returns the controller for id and refreshes its idle timer.
func (r *Registry) Get(id string) (*workflow.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.gcLocked(now)
	e, ok := r.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = now
	return e.controller, nil
}

// Delete drops a session. A session with a workflow still running is kept and
// workflow.ErrWorkflowInProgress is returned.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return ErrSessionNotFound
	}
	if e.controller.Busy() {
		return workflow.ErrWorkflowInProgress
	}
	delete(r.items, id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gcLocked(r.now())
	return len(r.items)
}

func (r *Registry) gcLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, e := range r.items {
		// Never evict a session with a workflow still running.
		if now.Sub(e.lastSeen) > r.ttl && !e.controller.Busy() {
			delete(r.items, id)
		}
	}
}
