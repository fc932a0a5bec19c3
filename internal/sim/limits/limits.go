// Package limits derives the limit status panel of an island: for every
// capped block or entity kind it reports the current usage against the cap.
package limits

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrNoTerritory is returned when the player owns or belongs to no island in the world.
var ErrNoTerritory = errors.New("no island")

type Territory interface {
	ID() string
	World() string
	Contains(pos [3]int) bool
}

type TerritoryLookup interface {
	// Find returns the island the player belongs to in world.
	Find(world string, player uuid.UUID) (Territory, bool)
}

// BlockCounter serves the block counts tracked incrementally while players
// place and break blocks.
type BlockCounter interface {
	// TerritoryLimits returns the effective block caps of an island in world.
	TerritoryLimits(world, islandID string) map[string]int
	// ObservedCounts returns the placed block counts of an island, if any were recorded.
	ObservedCounts(islandID string) (map[string]int, bool)
}

// LimitConfig is the static, ordered limit table from configuration.
type LimitConfig interface {
	Limits() []Entry
}

type EntityScanner interface {
	// CountEntities counts entities of entityType in world whose position satisfies inside.
	CountEntities(world, entityType string, inside func(pos [3]int) bool) int
}

type TextFormatter interface {
	Prettify(id string) string
}

type Entry struct {
	Kind  Kind
	Limit int
}

type Row struct {
	Kind          Kind
	Label         string
	Icon          string
	Count         int
	Limit         int
	AtOrOverLimit bool
}

type Status uint8

const (
	StatusOK Status = iota
	// StatusNoLimits means neither the island nor the config caps anything.
	StatusNoLimits
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoLimits:
		return "no_limits"
	default:
		return "unknown"
	}
}

type Report struct {
	Status Status
	World  string
	Island string
	Rows   []Row
}

type Sources struct {
	Territories TerritoryLookup
	Blocks      BlockCounter
	Config      LimitConfig
	Entities    EntityScanner
	Text        TextFormatter
}

type Builder struct {
	src   Sources
	icons *IconResolver
}

func NewBuilder(src Sources, icons *IconResolver) *Builder {
	return &Builder{src: src, icons: icons}
}

// Build computes the limit rows of the island owner belongs to in world.
// Block limits tracked for the island come first, ordered by block id, then the
// configured limits in config order, skipping kinds already listed.
func (b *Builder) Build(world string, owner uuid.UUID) (Report, error) {
	isl, ok := b.src.Territories.Find(world, owner)
	if !ok || isl == nil {
		return Report{}, fmt.Errorf("world %s player %s: %w", world, owner, ErrNoTerritory)
	}

	blockLimits := b.src.Blocks.TerritoryLimits(world, isl.ID())
	var configured []Entry
	if b.src.Config != nil {
		configured = b.src.Config.Limits()
	}
	rep := Report{World: world, Island: isl.ID()}
	if len(blockLimits) == 0 && len(configured) == 0 {
		rep.Status = StatusNoLimits
		return rep, nil
	}

	observed, _ := b.src.Blocks.ObservedCounts(isl.ID())
	rep.Rows = make([]Row, 0, len(blockLimits)+len(configured))
	seen := make(map[Kind]struct{}, len(blockLimits))

	ids := make([]string, 0, len(blockLimits))
	for id := range blockLimits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		k := Block(id)
		seen[k] = struct{}{}
		rep.Rows = append(rep.Rows, b.row(k, observed[id], blockLimits[id]))
	}

	for _, e := range configured {
		if _, dup := seen[e.Kind]; dup {
			continue
		}
		seen[e.Kind] = struct{}{}
		var count int
		if e.Kind.IsBlock() {
			count = observed[e.Kind.ID]
		} else {
			count = b.liveCount(isl, e.Kind)
		}
		rep.Rows = append(rep.Rows, b.row(e.Kind, count, e.Limit))
	}
	return rep, nil
}

func (b *Builder) liveCount(isl Territory, k Kind) int {
	if b.src.Entities == nil {
		return 0
	}
	return b.src.Entities.CountEntities(isl.World(), k.ID, isl.Contains)
}

func (b *Builder) row(k Kind, count, limit int) Row {
	if count < 0 {
		count = 0
	}
	label := k.ID
	if b.src.Text != nil {
		label = b.src.Text.Prettify(k.ID)
	}
	icon := Placeholder
	if b.icons != nil {
		icon = b.icons.Resolve(k)
	}
	return Row{
		Kind:          k,
		Label:         label,
		Icon:          icon,
		Count:         count,
		Limit:         limit,
		AtOrOverLimit: count >= limit,
	}
}
