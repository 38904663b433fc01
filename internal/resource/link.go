package resource

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nilclass/huebridge/internal/idgen"
)

// Link is a {type, id} pair identifying a resource — the glossary's
// "resource link", used both as a resource's own identity and as a
// cross-reference to another resource.
type Link struct {
	Type RType
	ID   uuid.UUID
}

func (l Link) String() string {
	return fmt.Sprintf("%s/%s", l.Type, l.ID)
}

// IsZero reports whether l is the zero value (no link).
func (l Link) IsZero() bool {
	return l.Type == "" && l.ID == uuid.Nil
}

// DerivedLink builds a Link by deterministically hashing seed bytes under
// t's id tag (spec.md §4.2).
func DerivedLink(t RType, seed ...[]byte) Link {
	return Link{Type: t, ID: idgen.Deterministic(idTag(t), seed...)}
}

// DerivedLinkFrom builds a Link derived from another link's id — used to
// derive a Light id from its owning Device's id, etc.
func DerivedLinkFrom(t RType, from Link) Link {
	return Link{Type: t, ID: idgen.DeterministicFrom(idTag(t), from.ID)}
}

// DerivedLinkIndexed builds a Link derived from a string seed plus a
// numeric index — used for WLED segments.
func DerivedLinkIndexed(t RType, seed string, index uint64) Link {
	return Link{Type: t, ID: idgen.DeterministicIndexed(idTag(t), seed, index)}
}
