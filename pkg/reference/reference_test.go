package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharacterDisplayName(t *testing.T) {
	c := &Character{ID: "old_matthias"}
	assert.Equal(t, "Old Matthias", c.DisplayName())

	c.Name = "Matthias the Elder"
	assert.Equal(t, "Matthias the Elder", c.DisplayName())
}

func TestCharacterUnlockedAt(t *testing.T) {
	c := &Character{
		ID: "bastian",
		Unlocks: map[string]string{
			"25":  "Shares rumors about the guards",
			"50":  "Lends you the workshop pass",
			"75":  "Reveals the tunnel entrance",
			"bad": "ignored",
		},
	}

	assert.Empty(t, c.UnlockedAt(10))
	assert.Equal(t, []string{"Shares rumors about the guards"}, c.UnlockedAt(30))
	assert.Equal(t, []string{
		"Shares rumors about the guards",
		"Lends you the workshop pass",
		"Reveals the tunnel entrance",
	}, c.UnlockedAt(100))
}

func TestItemDisplayName(t *testing.T) {
	it := &Item{ID: "cell_key", Category: CategoryTool}
	assert.Equal(t, "Cell Key", it.DisplayName())
}
