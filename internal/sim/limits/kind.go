package limits

import (
	"fmt"
	"strings"
)

type KindType uint8

const (
	KindBlock KindType = iota + 1
	KindEntity
)

func (t KindType) String() string {
	switch t {
	case KindBlock:
		return "block"
	case KindEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// Kind identifies a limited resource: a placeable block type or an entity type.
// It is a comparable value and can be used as a map key.
type Kind struct {
	Type KindType
	ID   string
}

func Block(id string) Kind  { return Kind{Type: KindBlock, ID: id} }
func Entity(id string) Kind { return Kind{Type: KindEntity, ID: id} }

func (k Kind) IsBlock() bool  { return k.Type == KindBlock }
func (k Kind) IsEntity() bool { return k.Type == KindEntity }

func (k Kind) String() string { return k.Type.String() + ":" + k.ID }

// KindClassifier tells block ids from entity ids for unprefixed config keys.
type KindClassifier interface {
	HasBlock(id string) bool
	HasEntity(id string) bool
}

// ParseKind accepts "block:ID", "entity:ID" or a bare ID. A bare ID is a block
// when the block catalog knows it, else an entity when the entity catalog does.
func ParseKind(s string, cls KindClassifier) (Kind, error) {
	s = strings.TrimSpace(s)
	prefix, id, found := strings.Cut(s, ":")
	if found {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			return Kind{}, fmt.Errorf("kind %q: empty id", s)
		}
		switch strings.ToLower(strings.TrimSpace(prefix)) {
		case "block":
			return Block(id), nil
		case "entity":
			return Entity(id), nil
		default:
			return Kind{}, fmt.Errorf("kind %q: unknown prefix %q", s, prefix)
		}
	}
	id = strings.ToUpper(s)
	if id == "" {
		return Kind{}, fmt.Errorf("empty kind")
	}
	if cls == nil {
		return Entity(id), nil
	}
	switch {
	case cls.HasBlock(id):
		return Block(id), nil
	case cls.HasEntity(id):
		return Entity(id), nil
	}
	return Kind{}, fmt.Errorf("kind %q: not a known block or entity", s)
}
