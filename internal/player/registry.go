package player

import (
	"sync"

	"github.com/google/uuid"
)

// Stoppable is a menu that can be bound to a [Controller].
type Stoppable interface {
	// Stop stops the menu. It must be idempotent.
	Stop()

	// OnStop registers fn to run when the menu stops, immediately if it
	// already has.
	OnStop(fn func())
}

// Handle identifies a menu in a [MenuRegistry].
type Handle string

// MenuRegistry is the set of open menus bound to one controller. It holds
// non-owning references: menus remove themselves when they stop.
type MenuRegistry struct {
	mu    sync.Mutex
	menus map[Handle]Stoppable
}

// NewMenuRegistry returns an empty registry.
func NewMenuRegistry() *MenuRegistry {
	return &MenuRegistry{menus: make(map[Handle]Stoppable)}
}

// Add registers m and returns its handle.
func (r *MenuRegistry) Add(m Stoppable) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	r.menus[h] = m
	r.mu.Unlock()
	return h
}

// Remove drops h. Unknown handles are ignored.
func (r *MenuRegistry) Remove(h Handle) {
	r.mu.Lock()
	delete(r.menus, h)
	r.mu.Unlock()
}

// Len returns the number of registered menus.
func (r *MenuRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.menus)
}

// StopAll stops every registered menu and leaves the registry empty.
func (r *MenuRegistry) StopAll() {
	r.mu.Lock()
	menus := make([]Stoppable, 0, len(r.menus))
	for _, m := range r.menus {
		menus = append(menus, m)
	}
	r.mu.Unlock()

	for _, m := range menus {
		m.Stop()
	}

	r.mu.Lock()
	clear(r.menus)
	r.mu.Unlock()
}
