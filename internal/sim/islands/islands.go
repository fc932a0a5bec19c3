package islands

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"islandlimits.dev/internal/sim/limits"
)

// Island is a square region of a world owned by one player, optionally shared
// with team members. Range is the half-width around Center on the X/Z plane.
type Island struct {
	id      string
	world   string
	owner   uuid.UUID
	members []uuid.UUID
	center  [3]int
	rng     int
}

type Spec struct {
	ID      string
	World   string
	Owner   uuid.UUID
	Members []uuid.UUID
	Center  [3]int
	Range   int
}

func New(s Spec) (*Island, error) {
	if strings.TrimSpace(s.ID) == "" {
		return nil, fmt.Errorf("island: empty id")
	}
	if strings.TrimSpace(s.World) == "" {
		return nil, fmt.Errorf("island %s: empty world", s.ID)
	}
	if s.Owner == uuid.Nil {
		return nil, fmt.Errorf("island %s: missing owner", s.ID)
	}
	if s.Range < 0 {
		return nil, fmt.Errorf("island %s: negative range", s.ID)
	}
	members := make([]uuid.UUID, 0, len(s.Members))
	for _, m := range s.Members {
		if m != uuid.Nil && m != s.Owner {
			members = append(members, m)
		}
	}
	return &Island{
		id:      s.ID,
		world:   s.World,
		owner:   s.Owner,
		members: members,
		center:  s.Center,
		rng:     s.Range,
	}, nil
}

func (i *Island) ID() string           { return i.id }
func (i *Island) World() string        { return i.world }
func (i *Island) Owner() uuid.UUID     { return i.owner }
func (i *Island) Center() [3]int       { return i.center }
func (i *Island) Range() int           { return i.rng }
func (i *Island) Members() []uuid.UUID { return append([]uuid.UUID(nil), i.members...) }

// Contains reports whether pos lies inside the island's X/Z square. Height is ignored.
func (i *Island) Contains(pos [3]int) bool {
	dx := pos[0] - i.center[0]
	if dx < 0 {
		dx = -dx
	}
	dz := pos[2] - i.center[2]
	if dz < 0 {
		dz = -dz
	}
	return dx <= i.rng && dz <= i.rng
}

func (i *Island) overlaps(o *Island) bool {
	if i.world != o.world {
		return false
	}
	dx := i.center[0] - o.center[0]
	if dx < 0 {
		dx = -dx
	}
	dz := i.center[2] - o.center[2]
	if dz < 0 {
		dz = -dz
	}
	return dx <= i.rng+o.rng && dz <= i.rng+o.rng
}

// Registry indexes islands by id and by (world, player).
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*Island
	byPlayer map[playerKey]string
}

type playerKey struct {
	world  string
	player uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:     map[string]*Island{},
		byPlayer: map[playerKey]string{},
	}
}

// Add registers an island. A player may belong to one island per world and
// islands of the same world must not overlap.
func (r *Registry) Add(is *Island) error {
	if is == nil {
		return fmt.Errorf("nil island")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[is.id]; dup {
		return fmt.Errorf("island %s: already registered", is.id)
	}
	players := append([]uuid.UUID{is.owner}, is.members...)
	for _, p := range players {
		if other, ok := r.byPlayer[playerKey{is.world, p}]; ok {
			return fmt.Errorf("island %s: player %s already on island %s", is.id, p, other)
		}
	}
	for _, o := range r.byID {
		if is.overlaps(o) {
			return fmt.Errorf("island %s: overlaps island %s", is.id, o.id)
		}
	}
	r.byID[is.id] = is
	for _, p := range players {
		r.byPlayer[playerKey{is.world, p}] = is.id
	}
	return nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for k, v := range r.byPlayer {
		if v == id {
			delete(r.byPlayer, k)
		}
	}
	return true
}

func (r *Registry) Get(id string) (*Island, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	is, ok := r.byID[id]
	return is, ok
}

// Find implements limits.TerritoryLookup.
func (r *Registry) Find(world string, player uuid.UUID) (limits.Territory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerKey{world, player}]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// All returns the registered islands ordered by id.
func (r *Registry) All() []*Island {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Island, 0, len(r.byID))
	for _, is := range r.byID {
		out = append(out, is)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
