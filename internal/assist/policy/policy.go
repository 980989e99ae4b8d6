// Package policy decides which suggestion keys should exist at all. It is a
// pure decision function over configuration loaded once at startup.
package policy

import (
	"github.com/openannotate/labelassist/internal/assist"
)

// Policy combines a global "compute everything" flag with a sparse override
// keyed by item and field. When an override exists for an exact item/field
// pair it replaces the global decision entirely: an empty assistant list is
// an explicit opt-out, distinguishable from no override at all.
type Policy struct {
	all     bool
	special map[int]map[int][]string
}

// New builds a read-only policy. The special map is item index → field
// index → assistant names; a nil map means no overrides.
func New(all bool, special map[int]map[int][]string) *Policy {
	return &Policy{all: all, special: special}
}

// lookup returns the override list for an item/field pair and whether one
// exists. Presence matters: an empty slice is a real override.
func (p *Policy) lookup(item, field int) ([]string, bool) {
	fields, ok := p.special[item]
	if !ok {
		return nil, false
	}
	assistants, ok := fields[field]
	return assistants, ok
}

// ShouldInclude reports whether any suggestion may exist for the item/field
// pair. Used by the prefetch planner to skip items wholesale.
func (p *Policy) ShouldInclude(item, field int) bool {
	if assistants, ok := p.lookup(item, field); ok {
		return len(assistants) > 0
	}
	return p.all
}

// KeysFor enumerates the suggestion keys that should exist for one
// item/field pair. known is the assistant catalog for the field's widget
// type. An override lists assistants exactly; otherwise the global flag
// selects the whole catalog or nothing.
func (p *Policy) KeysFor(item, field int, known []string) []assist.Key {
	names, overridden := p.lookup(item, field)
	if !overridden {
		if !p.all {
			return nil
		}
		names = known
	}

	keys := make([]assist.Key, 0, len(names))
	for _, name := range names {
		keys = append(keys, assist.Key{Item: item, Field: field, Assistant: name})
	}
	return keys
}
