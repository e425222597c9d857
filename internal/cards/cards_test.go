// internal/cards/cards_test.go
package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("golden-defense")
	require.True(t, ok)
	assert.Equal(t, "Golden Defense", c.Name)

	_, ok = Lookup("nonexistent")
	assert.False(t, ok)
}

func TestDeal(t *testing.T) {
	assert.Nil(t, Deal(false), "non-frenzy hands are empty")

	hand := Deal(true)
	require.Len(t, hand, HandSize)
	for _, c := range hand {
		_, ok := Lookup(c.ID)
		assert.True(t, ok, "dealt cards come from the catalog")
	}
}

func TestRandomDrawsFromCatalog(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := Random()
		_, ok := Lookup(c.ID)
		require.True(t, ok)
	}
}
