package limits

// Placeholder is shown when no better icon exists for a kind.
const Placeholder = "BARRIER"

const spawnEggSuffix = "_SPAWN_EGG"

// Entity types whose obvious icon is missing or misleading.
var entityIcons = map[string]string{
	"PIG_ZOMBIE":   "ZOMBIE_PIGMAN_SPAWN_EGG",
	"MUSHROOM_COW": "MOOSHROOM_SPAWN_EGG",
	"SNOWMAN":      "SNOW_BLOCK",
	"IRON_GOLEM":   "IRON_BLOCK",
	"ILLUSIONER":   "VILLAGER_SPAWN_EGG",
	"WITHER":       "WITHER_SKELETON_SKULL",
	"BOAT":         "OAK_BOAT",
	"ARMOR_STAND":  "ARMOR_STAND",
	"ITEM_FRAME":   "ITEM_FRAME",
	"PAINTING":     "PAINTING",

	"MINECART_TNT":         "TNT_MINECART",
	"MINECART_CHEST":       "CHEST_MINECART",
	"MINECART_COMMAND":     "COMMAND_BLOCK_MINECART",
	"MINECART_FURNACE":     "FURNACE_MINECART",
	"MINECART_HOPPER":      "HOPPER_MINECART",
	"MINECART_MOB_SPAWNER": "MINECART",
}

// In-world block states shown as the item a player would recognize.
var blockIcons = map[string]string{
	"POTATOES":      "POTATO",
	"CARROTS":       "CARROT",
	"BEETROOTS":     "BEETROOT",
	"REDSTONE_WIRE": "REDSTONE",
}

// Registered only when the target item exists in the running content version.
var optionalBlockIcons = [][2]string{
	{"SWEET_BERRY_BUSH", "SWEET_BERRIES"},
	{"BAMBOO_SAPLING", "BAMBOO"},
}

// IconCatalog is the set of item ids that can be drawn as icons.
type IconCatalog interface {
	HasIcon(id string) bool
	IsLiving(entityType string) bool
}

type iconRule func(k Kind) (string, bool)

// IconResolver maps a kind to a representative item id. It is built once and
// only read afterwards, so it may be shared between goroutines.
type IconResolver struct {
	catalog IconCatalog
	entity  map[string]string
	block   map[string]string
	rules   []iconRule
}

// NewIconResolver copies the built-in tables, registers the optional block
// overrides the catalog supports and merges extra block overrides on top.
func NewIconResolver(catalog IconCatalog, overrides map[string]string) *IconResolver {
	r := &IconResolver{
		catalog: catalog,
		entity:  make(map[string]string, len(entityIcons)),
		block:   make(map[string]string, len(blockIcons)+len(optionalBlockIcons)+len(overrides)),
	}
	for k, v := range entityIcons {
		r.entity[k] = v
	}
	for k, v := range blockIcons {
		r.block[k] = v
	}
	for _, p := range optionalBlockIcons {
		if r.known(p[1]) {
			r.block[p[0]] = p[1]
		}
	}
	for k, v := range overrides {
		if k == "" || v == "" {
			continue
		}
		r.block[k] = v
	}
	r.rules = []iconRule{r.fromEntityTable, r.fromBlockTable, r.spawnEgg, r.identity}
	return r
}

// Resolve never fails: the first rule yielding a known icon wins, else Placeholder.
func (r *IconResolver) Resolve(k Kind) string {
	for _, rule := range r.rules {
		if icon, ok := rule(k); ok && r.known(icon) {
			return icon
		}
	}
	return Placeholder
}

func (r *IconResolver) known(id string) bool {
	return id != "" && r.catalog != nil && r.catalog.HasIcon(id)
}

func (r *IconResolver) fromEntityTable(k Kind) (string, bool) {
	if !k.IsEntity() {
		return "", false
	}
	icon, ok := r.entity[k.ID]
	return icon, ok
}

func (r *IconResolver) fromBlockTable(k Kind) (string, bool) {
	if !k.IsBlock() {
		return "", false
	}
	icon, ok := r.block[k.ID]
	return icon, ok
}

func (r *IconResolver) spawnEgg(k Kind) (string, bool) {
	if !k.IsEntity() || r.catalog == nil || !r.catalog.IsLiving(k.ID) {
		return "", false
	}
	if _, curated := r.entity[k.ID]; curated {
		return "", false
	}
	return k.ID + spawnEggSuffix, true
}

func (r *IconResolver) identity(k Kind) (string, bool) {
	return k.ID, k.ID != ""
}
