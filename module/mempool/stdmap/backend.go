package stdmap

import (
	"sync"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool"
)

// backend implements a generic memory pool backed by a Go map.
type backend struct {
	sync.RWMutex
	entities map[qf.Identifier]qf.Entity
	limit    uint
}

// newBackend creates a new memory pool backend with the given size limit.
func newBackend(limit uint) *backend {
	b := &backend{
		entities: make(map[qf.Identifier]qf.Entity),
		limit:    limit,
	}
	return b
}

// Has checks if we already contain the item with the given ID.
func (b *backend) Has(id qf.Identifier) bool {
	b.RLock()
	defer b.RUnlock()
	_, ok := b.entities[id]
	return ok
}

// Add adds the given item to the pool.
func (b *backend) Add(entity qf.Entity) error {
	b.Lock()
	defer b.Unlock()
	id := entity.ID()
	_, ok := b.entities[id]
	if ok {
		return mempool.ErrAlreadyExists
	}
	if b.limit > 0 && uint(len(b.entities)) >= b.limit {
		return mempool.ErrFull
	}
	b.entities[id] = entity
	return nil
}

// Rem will remove the item with the given ID.
func (b *backend) Rem(id qf.Identifier) bool {
	b.Lock()
	defer b.Unlock()
	_, ok := b.entities[id]
	if !ok {
		return false
	}
	delete(b.entities, id)
	return true
}

// ByID returns the given item from the pool.
func (b *backend) ByID(id qf.Identifier) (qf.Entity, error) {
	b.RLock()
	defer b.RUnlock()
	entity, ok := b.entities[id]
	if !ok {
		return nil, mempool.ErrNotFound
	}
	return entity, nil
}

// Size will return the size of the backend.
func (b *backend) Size() uint {
	b.RLock()
	defer b.RUnlock()
	return uint(len(b.entities))
}

// All returns all entities from the pool.
func (b *backend) All() []qf.Entity {
	b.RLock()
	defer b.RUnlock()
	entities := make([]qf.Entity, 0, len(b.entities))
	for _, entity := range b.entities {
		entities = append(entities, entity)
	}
	return entities
}
