package binding

import (
	"fmt"
	"sync"
)

// ObjectID identifies a host object bound into a runtime.
type ObjectID uint64

// Objects maps object IDs to the host values they were bound from.
// IDs start at 1 and are never reused within a table. Safe for concurrent
// use, so HTTP handlers can inspect a table owned by a running host.
type Objects struct {
	mu      sync.RWMutex
	nextID  ObjectID
	objects map[ObjectID]any
}

// NewObjects creates an empty object table.
func NewObjects() *Objects {
	return &Objects{
		nextID:  1,
		objects: make(map[ObjectID]any),
	}
}

// Add stores value and returns its new ID.
func (o *Objects) Add(value any) ObjectID {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.objects[id] = value
	return id
}

// Lookup returns the host value bound under id.
func (o *Objects) Lookup(id ObjectID) (any, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	obj, ok := o.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownObjectID, id)
	}
	return obj, nil
}

// Len returns the number of bound objects.
func (o *Objects) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.objects)
}
