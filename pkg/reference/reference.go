// Package reference holds the read-only character and item records that
// accompany the story content. The engine consumes these; it never
// writes them.
package reference

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Character is one reference record, keyed by id in the content data.
type Character struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name,omitempty"`
	Category               string            `json:"category,omitempty"` // e.g. "inmate", "staff", "visitor"
	InitialRelationship    int               `json:"initialRelationship"`
	RelationshipThresholds map[string]int    `json:"relationshipThresholds,omitempty"` // named thresholds, e.g. "trusted": 50
	Unlocks                map[string]string `json:"unlocks,omitempty"`                // threshold -> description
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the authored name, or a title-cased rendering of
// the snake_case id when none was authored.
func (c *Character) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return titleCaser.String(strings.ReplaceAll(c.ID, "_", " "))
}

// UnlockedAt returns the unlock descriptions reached at the given
// relationship score, lowest threshold first. Unlock keys that aren't
// numeric are skipped.
func (c *Character) UnlockedAt(score int) []string {
	type unlock struct {
		threshold   int
		description string
	}
	reached := make([]unlock, 0, len(c.Unlocks))
	for key, description := range c.Unlocks {
		threshold, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if score >= threshold {
			reached = append(reached, unlock{threshold, description})
		}
	}
	sort.Slice(reached, func(i, j int) bool { return reached[i].threshold < reached[j].threshold })

	out := make([]string, len(reached))
	for i, u := range reached {
		out[i] = u.description
	}
	return out
}

// ItemCategory classifies an item record.
type ItemCategory string

const (
	CategoryTool     ItemCategory = "tool"
	CategoryDisguise ItemCategory = "disguise"
	CategoryMedical  ItemCategory = "medical"
	CategoryWeapon   ItemCategory = "weapon"
	CategoryEvidence ItemCategory = "evidence"
	CategoryMisc     ItemCategory = "misc"
)

// Item is one reference record, keyed by id in the content data.
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Category    ItemCategory `json:"category"`
	Description string       `json:"description,omitempty"`
}

// DisplayName returns the authored name, or a title-cased rendering of
// the snake_case id when none was authored.
func (it *Item) DisplayName() string {
	if it.Name != "" {
		return it.Name
	}
	return titleCaser.String(strings.ReplaceAll(it.ID, "_", " "))
}
