package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs holds the content identifiers known to the running game version.
// Items double as the icon catalog: an icon is valid iff an item with that id exists.
type Catalogs struct {
	Blocks   BlockCatalog
	Items    ItemCatalog
	Entities EntityCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	DropsItem string `json:"drops_item,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "BLOCK","TOOL","MATERIAL","FOOD","SPAWN_EGG","VEHICLE","DECOR"
	PlaceAs string `json:"place_as,omitempty"`
}

type EntityCatalog struct {
	Defs       map[string]EntityDef
	DefsDigest string
}

type EntityDef struct {
	ID       string `json:"id"`
	Living   bool   `json:"living"`
	Category string `json:"category,omitempty"` // "HOSTILE","PASSIVE","CONSTRUCT","VEHICLE","DECOR"
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadEntities(filepath.Join(configDir, "entities.json"), &c.Entities); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasIcon reports whether id names an item that can be shown as an icon.
func (c *Catalogs) HasIcon(id string) bool {
	if c == nil || id == "" {
		return false
	}
	_, ok := c.Items.Defs[id]
	return ok
}

func (c *Catalogs) HasBlock(id string) bool {
	if c == nil || id == "" {
		return false
	}
	_, ok := c.Blocks.Defs[id]
	return ok
}

func (c *Catalogs) HasEntity(id string) bool {
	if c == nil || id == "" {
		return false
	}
	_, ok := c.Entities.Defs[id]
	return ok
}

// IsLiving reports whether the entity type is a creature (as opposed to a
// vehicle, projectile or decoration).
func (c *Catalogs) IsLiving(id string) bool {
	if c == nil {
		return false
	}
	return c.Entities.Defs[id].Living
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	// AIR is palette id 0 so clients can treat a zero id as empty.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids := append([]string{"AIR"}, filterOut(sortedKeys(out.Defs), "AIR")...)
	out.Palette, out.Index, out.PaletteDigest = palette(ids)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	out.Palette, out.Index, out.PaletteDigest = palette(sortedKeys(out.Defs))
	return nil
}

func loadEntities(path string, out *EntityCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Block-only servers ship without an entity catalog.
		if os.IsNotExist(err) {
			out.Defs = map[string]EntityDef{}
			out.DefsDigest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []EntityDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("entities.json: %w", err)
	}
	out.Defs = map[string]EntityDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("entities.json: empty id")
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func palette(ids []string) ([]string, map[string]uint16, string) {
	index := make(map[string]uint16, len(ids))
	for i, id := range ids {
		index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	return ids, index, sha256Hex(palJSON)
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
