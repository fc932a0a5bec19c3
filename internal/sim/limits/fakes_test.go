package limits

import (
	"strings"

	"github.com/google/uuid"
)

type fakeIsland struct {
	id, world  string
	minX, maxX int
	minZ, maxZ int
}

func (f *fakeIsland) ID() string    { return f.id }
func (f *fakeIsland) World() string { return f.world }
func (f *fakeIsland) Contains(p [3]int) bool {
	return p[0] >= f.minX && p[0] <= f.maxX && p[2] >= f.minZ && p[2] <= f.maxZ
}

type fakeLookup map[uuid.UUID]*fakeIsland

func (f fakeLookup) Find(world string, player uuid.UUID) (Territory, bool) {
	is, ok := f[player]
	if !ok || is.world != world {
		return nil, false
	}
	return is, true
}

type fakeBlocks struct {
	limits map[string]int
	counts map[string]map[string]int
}

func (f *fakeBlocks) TerritoryLimits(world, islandID string) map[string]int { return f.limits }

func (f *fakeBlocks) ObservedCounts(islandID string) (map[string]int, bool) {
	c, ok := f.counts[islandID]
	return c, ok
}

type fakeConfig []Entry

func (f fakeConfig) Limits() []Entry { return f }

type fakeEntity struct {
	world, kind string
	pos         [3]int
}

type fakeScanner struct {
	ents  []fakeEntity
	calls int
}

func (f *fakeScanner) CountEntities(world, entityType string, inside func([3]int) bool) int {
	f.calls++
	n := 0
	for _, e := range f.ents {
		if e.world == world && e.kind == entityType && inside(e.pos) {
			n++
		}
	}
	return n
}

type upperFirst struct{}

func (upperFirst) Prettify(id string) string {
	s := strings.ToLower(strings.ReplaceAll(id, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type fakeCatalog struct {
	icons  map[string]bool
	living map[string]bool
}

func newFakeCatalog(icons []string, living ...string) *fakeCatalog {
	c := &fakeCatalog{icons: map[string]bool{}, living: map[string]bool{}}
	for _, id := range icons {
		c.icons[id] = true
	}
	for _, id := range living {
		c.living[id] = true
	}
	return c
}

func (c *fakeCatalog) HasIcon(id string) bool          { return c.icons[id] }
func (c *fakeCatalog) IsLiving(entityType string) bool { return c.living[entityType] }
func (c *fakeCatalog) HasBlock(id string) bool         { return c.icons[id] }
func (c *fakeCatalog) HasEntity(id string) bool        { return c.living[id] }
