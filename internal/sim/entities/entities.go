package entities

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Entity struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"type"`
	World string    `json:"world"`
	Pos   [3]int    `json:"pos"`
}

// Registry tracks the live entities of every loaded world.
type Registry struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Entity
	byWorld map[string]map[uuid.UUID]*Entity
}

func NewRegistry() *Registry {
	return &Registry{
		byID:    map[uuid.UUID]*Entity{},
		byWorld: map[string]map[uuid.UUID]*Entity{},
	}
}

// Spawn adds an entity and returns its id. A nil id gets a fresh random one.
func (r *Registry) Spawn(e Entity) (uuid.UUID, error) {
	e.Type = strings.ToUpper(strings.TrimSpace(e.Type))
	if e.Type == "" {
		return uuid.Nil, fmt.Errorf("spawn: empty entity type")
	}
	if strings.TrimSpace(e.World) == "" {
		return uuid.Nil, fmt.Errorf("spawn %s: empty world", e.Type)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[e.ID]; dup {
		return uuid.Nil, fmt.Errorf("spawn %s: duplicate id %s", e.Type, e.ID)
	}
	ent := e
	r.byID[e.ID] = &ent
	w := r.byWorld[e.World]
	if w == nil {
		w = map[uuid.UUID]*Entity{}
		r.byWorld[e.World] = w
	}
	w[e.ID] = &ent
	return e.ID, nil
}

func (r *Registry) Despawn(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	if w := r.byWorld[e.World]; w != nil {
		delete(w, id)
		if len(w) == 0 {
			delete(r.byWorld, e.World)
		}
	}
	return true
}

func (r *Registry) Move(id uuid.UUID, pos [3]int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return false
	}
	e.Pos = pos
	return true
}

func (r *Registry) Get(id uuid.UUID) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// CountEntities implements limits.EntityScanner. It walks every entity of the
// world on each call.
func (r *Registry) CountEntities(world, entityType string, inside func(pos [3]int) bool) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byWorld[world] {
		if e.Type != entityType {
			continue
		}
		if inside != nil && !inside(e.Pos) {
			continue
		}
		n++
	}
	return n
}

// Snapshot returns a copy of all entities ordered by world then id.
func (r *Registry) Snapshot() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].World != out[j].World {
			return out[i].World < out[j].World
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
