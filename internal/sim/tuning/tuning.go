package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"islandlimits.dev/internal/sim/limits"
)

const DefaultIslandRange = 100

// Config is the content of limits.yaml.
type Config struct {
	IslandRange   int                  `yaml:"island_range"`
	BlockLimits   map[string]int       `yaml:"block_limits"`
	Worlds        map[string]WorldSpec `yaml:"worlds"`
	EntityLimits  OrderedLimits        `yaml:"entity_limits"`
	IconOverrides map[string]string    `yaml:"icon_overrides"`
}

type WorldSpec struct {
	BlockLimits map[string]int `yaml:"block_limits"`
}

// RawLimit is one entity_limits entry before its key is classified.
type RawLimit struct {
	Key   string
	Limit int
}

// OrderedLimits keeps yaml mapping order, which is the display order.
type OrderedLimits []RawLimit

func (o *OrderedLimits) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: entity_limits must be a mapping", n.Line)
	}
	out := make(OrderedLimits, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		var limit int
		if err := v.Decode(&limit); err != nil {
			return fmt.Errorf("line %d: %s: %w", v.Line, k.Value, err)
		}
		out = append(out, RawLimit{Key: k.Value, Limit: limit})
	}
	*o = out
	return nil
}

func Defaults() Config {
	return Config{IslandRange: DefaultIslandRange}
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("limits.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("limits.yaml: %w", err)
	}
	return cfg, nil
}

// Normalize upper-cases ids so config keys match catalog ids.
func (c *Config) Normalize() {
	if c.IslandRange <= 0 {
		c.IslandRange = DefaultIslandRange
	}
	c.BlockLimits = upperKeys(c.BlockLimits)
	for id, w := range c.Worlds {
		w.BlockLimits = upperKeys(w.BlockLimits)
		c.Worlds[id] = w
	}
	if len(c.IconOverrides) > 0 {
		m := make(map[string]string, len(c.IconOverrides))
		for k, v := range c.IconOverrides {
			m[strings.ToUpper(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
		}
		c.IconOverrides = m
	}
}

func (c Config) Validate() error {
	check := func(where string, m map[string]int) error {
		for id, n := range m {
			if id == "" {
				return fmt.Errorf("%s: empty block id", where)
			}
			if n < 0 {
				return fmt.Errorf("%s: %s: negative limit %d", where, id, n)
			}
		}
		return nil
	}
	if err := check("block_limits", c.BlockLimits); err != nil {
		return err
	}
	for id, w := range c.Worlds {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("worlds: empty world id")
		}
		if err := check("worlds."+id+".block_limits", w.BlockLimits); err != nil {
			return err
		}
	}
	for _, e := range c.EntityLimits {
		if strings.TrimSpace(e.Key) == "" {
			return fmt.Errorf("entity_limits: empty key")
		}
		if e.Limit < 0 {
			return fmt.Errorf("entity_limits: %s: negative limit %d", e.Key, e.Limit)
		}
	}
	for k, v := range c.IconOverrides {
		if k == "" || v == "" {
			return fmt.Errorf("icon_overrides: empty id")
		}
	}
	return nil
}

// WorldBlockLimits merges the default block limits with the world's own.
func (c Config) WorldBlockLimits(world string) map[string]int {
	out := make(map[string]int, len(c.BlockLimits))
	for id, n := range c.BlockLimits {
		out[id] = n
	}
	for id, n := range c.Worlds[world].BlockLimits {
		out[id] = n
	}
	return out
}

// StaticLimits implements limits.LimitConfig.
type StaticLimits []limits.Entry

func (s StaticLimits) Limits() []limits.Entry { return s }

// StaticLimits classifies entity_limits keys against the catalogs. Duplicate
// kinds (e.g. "COW" and "entity:COW") are rejected.
func (c Config) StaticLimits(cls limits.KindClassifier) (StaticLimits, error) {
	out := make(StaticLimits, 0, len(c.EntityLimits))
	seen := make(map[limits.Kind]string, len(c.EntityLimits))
	for _, e := range c.EntityLimits {
		k, err := limits.ParseKind(e.Key, cls)
		if err != nil {
			return nil, fmt.Errorf("entity_limits: %w", err)
		}
		if prev, dup := seen[k]; dup {
			return nil, fmt.Errorf("entity_limits: %q and %q name the same %s", prev, e.Key, k)
		}
		seen[k] = e.Key
		out = append(out, limits.Entry{Kind: k, Limit: e.Limit})
	}
	return out, nil
}

func upperKeys(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}
