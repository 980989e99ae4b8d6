package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openannotate/labelassist/internal/assist"
)

var catalog = []string{"hint", "keywords", "prelabel"}

func TestGlobalFlag(t *testing.T) {
	p := New(true, nil)

	assert.True(t, p.ShouldInclude(0, 0))
	assert.True(t, p.ShouldInclude(100, 3))

	keys := p.KeysFor(4, 1, catalog)
	assert.Equal(t, []assist.Key{
		{Item: 4, Field: 1, Assistant: "hint"},
		{Item: 4, Field: 1, Assistant: "keywords"},
		{Item: 4, Field: 1, Assistant: "prelabel"},
	}, keys)
}

func TestGlobalOff(t *testing.T) {
	p := New(false, nil)

	assert.False(t, p.ShouldInclude(0, 0))
	assert.Empty(t, p.KeysFor(0, 0, catalog))
}

func TestSparseOverride(t *testing.T) {
	p := New(false, map[int]map[int][]string{
		2: {0: {"hint"}},
	})

	assert.True(t, p.ShouldInclude(2, 0))
	assert.False(t, p.ShouldInclude(2, 1))
	assert.False(t, p.ShouldInclude(3, 0))

	assert.Equal(t, []assist.Key{{Item: 2, Field: 0, Assistant: "hint"}}, p.KeysFor(2, 0, catalog))
	assert.Empty(t, p.KeysFor(2, 1, catalog))
}

func TestOverrideWinsOverGlobal(t *testing.T) {
	// An empty assistant list is an explicit opt-out even when the global
	// flag would compute everything.
	p := New(true, map[int]map[int][]string{
		3: {0: {}},
	})

	assert.False(t, p.ShouldInclude(3, 0))
	assert.Empty(t, p.KeysFor(3, 0, catalog))

	// Neighbouring fields still fall back to the global flag.
	assert.True(t, p.ShouldInclude(3, 1))
	assert.Len(t, p.KeysFor(3, 1, catalog), len(catalog))
}

func TestOverrideListIsExact(t *testing.T) {
	// With the global flag set, an override narrows the catalog rather than
	// adding to it.
	p := New(true, map[int]map[int][]string{
		5: {2: {"prelabel"}},
	})

	assert.Equal(t, []assist.Key{{Item: 5, Field: 2, Assistant: "prelabel"}}, p.KeysFor(5, 2, catalog))
}
