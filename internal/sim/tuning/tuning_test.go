package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"islandlimits.dev/internal/sim/catalogs"
	"islandlimits.dev/internal/sim/limits"
)

func TestLoad_ConfigsLimitsYAML(t *testing.T) {
	cfg, err := Load("../../../configs/limits.yaml")
	if err != nil {
		t.Fatalf("load limits.yaml: %v", err)
	}
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	static, err := cfg.StaticLimits(cats)
	if err != nil {
		t.Fatalf("StaticLimits: %v", err)
	}
	if len(static) == 0 || static[0].Kind != limits.Entity("COW") {
		t.Fatalf("expected COW first, got %+v", static)
	}
	last := static[len(static)-1]
	if last.Kind != limits.Block("BEACON") || last.Limit != 1 {
		t.Fatalf("expected block:BEACON last, got %+v", last)
	}
	for _, e := range static {
		if e.Kind.IsEntity() && !cats.HasEntity(e.Kind.ID) {
			t.Fatalf("entity %s missing from entities.json", e.Kind.ID)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_KeepsEntityOrder(t *testing.T) {
	p := writeConfig(t, `
entity_limits:
  ZOMBIE: 3
  cow: 10
  entity:ARMOR_STAND: 1
  block:hopper: 2
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	keys := make([]string, 0, len(cfg.EntityLimits))
	for _, e := range cfg.EntityLimits {
		keys = append(keys, e.Key)
	}
	if got := strings.Join(keys, ","); got != "ZOMBIE,cow,entity:ARMOR_STAND,block:hopper" {
		t.Fatalf("order not preserved: %s", got)
	}
	static, err := cfg.StaticLimits(nil)
	if err != nil {
		t.Fatalf("StaticLimits: %v", err)
	}
	want := []limits.Entry{
		{Kind: limits.Entity("ZOMBIE"), Limit: 3},
		{Kind: limits.Entity("COW"), Limit: 10},
		{Kind: limits.Entity("ARMOR_STAND"), Limit: 1},
		{Kind: limits.Block("HOPPER"), Limit: 2},
	}
	for i := range want {
		if static[i] != want[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, static[i], want[i])
		}
	}
	if cfg.IslandRange != DefaultIslandRange {
		t.Fatalf("expected default island range, got %d", cfg.IslandRange)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"negative block":  "block_limits:\n  HOPPER: -1\n",
		"negative entity": "entity_limits:\n  COW: -2\n",
		"not a mapping":   "entity_limits:\n  - COW\n",
		"bad number":      "entity_limits:\n  COW: many\n",
		"negative world":  "worlds:\n  sky:\n    block_limits:\n      CHEST: -5\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestStaticLimits_Duplicates(t *testing.T) {
	p := writeConfig(t, "entity_limits:\n  COW: 1\n  entity:cow: 2\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.StaticLimits(nil); err == nil {
		t.Fatalf("expected duplicate kind error")
	}
}

func TestWorldBlockLimits(t *testing.T) {
	p := writeConfig(t, `
block_limits:
  hopper: 10
  SPAWNER: 4
worlds:
  sky:
    block_limits:
      HOPPER: 20
      chest: 50
icon_overrides:
  wheat_crop: wheat
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sky := cfg.WorldBlockLimits("sky")
	if sky["HOPPER"] != 20 || sky["CHEST"] != 50 || sky["SPAWNER"] != 4 {
		t.Fatalf("unexpected sky limits: %v", sky)
	}
	other := cfg.WorldBlockLimits("other")
	if other["HOPPER"] != 10 || len(other) != 2 {
		t.Fatalf("unexpected default limits: %v", other)
	}
	// The merged map is a copy.
	other["HOPPER"] = 1
	if cfg.BlockLimits["HOPPER"] != 10 {
		t.Fatalf("defaults mutated")
	}
	if cfg.IconOverrides["WHEAT_CROP"] != "WHEAT" {
		t.Fatalf("icon overrides not normalized: %v", cfg.IconOverrides)
	}
}
