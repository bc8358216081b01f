package scene

import (
	"fmt"
	"sort"
)

// Requirements is a precondition set gating a choice or scene. All
// listed sub-conditions are AND-ed together. A nil Requirements (or one
// with every field empty) is always satisfiable.
type Requirements struct {
	Items            []string       `json:"items,omitempty"`
	NotItems         []string       `json:"notItems,omitempty"`
	Flags            []string       `json:"flags,omitempty"`
	NotFlags         []string       `json:"notFlags,omitempty"`
	Relationships    map[string]int `json:"relationships,omitempty"`    // minimum score per character
	MaxRelationships map[string]int `json:"maxRelationships,omitempty"` // maximum score per character
	Evidence         []string       `json:"evidence,omitempty"`
	NotEvidence      []string       `json:"notEvidence,omitempty"`
}

// StateView is the minimal read-only view of game state needed to
// evaluate requirements. This avoids an import cycle with the state
// package.
type StateView interface {
	HasItem(id string) bool
	HasFlag(id string) bool
	HasEvidence(id string) bool
	Relationship(characterID string) int
}

// CheckResult reports whether a choice can be selected. Reason is set
// only on denial and is shown directly to the player as a lock
// explanation, so it names the unmet condition and the current value.
type CheckResult struct {
	CanSelect bool   `json:"canSelect"`
	Reason    string `json:"reason,omitempty"`
}

// CheckRequirements evaluates a precondition set against current state.
// Evaluation short-circuits on the first failing condition: required
// items, forbidden items, required flags, forbidden flags, relationship
// minimums, relationship maximums, required evidence, forbidden
// evidence. A denial is a normal gameplay outcome, not an error.
func CheckRequirements(req *Requirements, view StateView) CheckResult {
	if req == nil {
		return CheckResult{CanSelect: true}
	}

	for _, item := range req.Items {
		if !view.HasItem(item) {
			return deny(fmt.Sprintf("Requires item: %s", item))
		}
	}
	for _, item := range req.NotItems {
		if view.HasItem(item) {
			return deny(fmt.Sprintf("Cannot have item: %s", item))
		}
	}

	for _, flag := range req.Flags {
		if !view.HasFlag(flag) {
			return deny(fmt.Sprintf("Requires: %s", flag))
		}
	}
	for _, flag := range req.NotFlags {
		if view.HasFlag(flag) {
			return deny(fmt.Sprintf("Blocked by: %s", flag))
		}
	}

	// Map iteration order is random in Go, but only the first failing
	// character is reported. Sort keys so the reported failure is stable.
	for _, id := range sortedKeys(req.Relationships) {
		minScore := req.Relationships[id]
		current := view.Relationship(id)
		if current < minScore {
			return deny(fmt.Sprintf("Requires %s relationship ≥ %d (current: %d)", id, minScore, current))
		}
	}
	for _, id := range sortedKeys(req.MaxRelationships) {
		maxScore := req.MaxRelationships[id]
		current := view.Relationship(id)
		if current > maxScore {
			return deny(fmt.Sprintf("Requires %s relationship ≤ %d (current: %d)", id, maxScore, current))
		}
	}

	for _, ev := range req.Evidence {
		if !view.HasEvidence(ev) {
			return deny(fmt.Sprintf("Requires evidence: %s", ev))
		}
	}
	for _, ev := range req.NotEvidence {
		if view.HasEvidence(ev) {
			return deny(fmt.Sprintf("Blocked by evidence: %s", ev))
		}
	}

	return CheckResult{CanSelect: true}
}

// CheckChoice evaluates a choice's requirements against current state.
func CheckChoice(c *Choice, view StateView) CheckResult {
	if c == nil {
		return CheckResult{CanSelect: true}
	}
	return CheckRequirements(c.Requirements, view)
}

func deny(reason string) CheckResult {
	return CheckResult{CanSelect: false, Reason: reason}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
