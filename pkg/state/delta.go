package state

import (
	"slices"

	"github.com/jmallory/narrative-engine/pkg/scene"
)

// The four delta resolvers are pure: they take the current collection
// and an optional delta block and return a new collection, leaving the
// input untouched. A nil delta returns the input unchanged, so scenes
// and choices that don't touch a dimension cost nothing.

// ApplyFlagChanges removes every id in Unset, then adds every id in Set
// that isn't already present. Unset runs first, so an id listed in both
// ends up set.
func ApplyFlagChanges(flags []string, changes *scene.FlagChanges) []string {
	if changes == nil {
		return flags
	}
	out := make([]string, 0, len(flags)+len(changes.Set))
	for _, f := range flags {
		if !slices.Contains(changes.Unset, f) {
			out = append(out, f)
		}
	}
	for _, f := range changes.Set {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// ApplyItemChanges removes every id in Remove, then adds every id in
// Add that isn't already present.
func ApplyItemChanges(inventory []string, changes *scene.ItemChanges) []string {
	if changes == nil {
		return inventory
	}
	return removeThenAdd(inventory, changes.Remove, changes.Add)
}

// ApplyEvidenceChanges follows the same remove-then-add pattern as
// ApplyItemChanges.
func ApplyEvidenceChanges(evidence []string, changes *scene.EvidenceChanges) []string {
	if changes == nil {
		return evidence
	}
	return removeThenAdd(evidence, changes.Remove, changes.Add)
}

// ApplyRelationshipChanges adds each character's delta to their current
// score (0 when unknown) and clamps the result to
// [MinRelationship, MaxRelationship]. Deltas are additive; the absolute
// setter lives on the Store.
func ApplyRelationshipChanges(relationships map[string]int, changes scene.RelationshipChanges) map[string]int {
	if len(changes) == 0 {
		return relationships
	}
	out := make(map[string]int, len(relationships)+len(changes))
	for k, v := range relationships {
		out[k] = v
	}
	for id, delta := range changes {
		out[id] = clampRelationship(out[id] + delta)
	}
	return out
}

func removeThenAdd(current, remove, add []string) []string {
	out := make([]string, 0, len(current)+len(add))
	for _, id := range current {
		if !slices.Contains(remove, id) {
			out = append(out, id)
		}
	}
	for _, id := range add {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func clampRelationship(score int) int {
	if score > MaxRelationship {
		return MaxRelationship
	}
	if score < MinRelationship {
		return MinRelationship
	}
	return score
}
