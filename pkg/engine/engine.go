// Package engine orchestrates scene transitions: it resolves the next
// scene id for a player choice or auto-continue, merges scene-level and
// choice-level state deltas, and commits the result to the game state
// store.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/jmallory/narrative-engine/pkg/scene"
	"github.com/jmallory/narrative-engine/pkg/state"
)

// SceneSource is the read side of the content store.
type SceneSource interface {
	Scene(id string) (*scene.Scene, error)
}

// StateChanges is the merged delta set collected from a scene and an
// optional choice, applied in one transition.
type StateChanges struct {
	Flags         *scene.FlagChanges        `json:"flagChanges,omitempty"`
	Items         *scene.ItemChanges        `json:"itemChanges,omitempty"`
	Relationships scene.RelationshipChanges `json:"relationshipChanges,omitempty"`
	Evidence      *scene.EvidenceChanges    `json:"evidenceChanges,omitempty"`
}

// IsEmpty reports whether the transition touches no state dimension.
func (c *StateChanges) IsEmpty() bool {
	return c == nil || (c.Flags == nil && c.Items == nil && len(c.Relationships) == 0 && c.Evidence == nil)
}

// CollectStateChanges gathers scene-level deltas first, then merges
// choice-level deltas on top. Flag, item, and evidence arrays
// concatenate (the resolvers dedupe); relationship maps shallow-merge
// with the choice value overwriting the scene value per character.
func CollectStateChanges(sc *scene.Scene, choice *scene.Choice) *StateChanges {
	changes := &StateChanges{}
	if sc != nil {
		changes.Flags = mergeFlagChanges(changes.Flags, sc.FlagChanges)
		changes.Items = mergeItemChanges(changes.Items, sc.ItemChanges)
		changes.Evidence = mergeEvidenceChanges(changes.Evidence, sc.EvidenceChanges)
		changes.Relationships = mergeRelationships(changes.Relationships, sc.RelationshipChanges)
	}
	if choice != nil {
		changes.Flags = mergeFlagChanges(changes.Flags, choice.FlagChanges)
		changes.Items = mergeItemChanges(changes.Items, choice.ItemChanges)
		changes.Evidence = mergeEvidenceChanges(changes.Evidence, choice.EvidenceChanges)
		changes.Relationships = mergeRelationships(changes.Relationships, choice.RelationshipChanges)
	}
	return changes
}

// NextSceneID resolves the transition target: the choice's target when
// a choice was made, otherwise the scene's auto-continue target. The
// second return is false when neither exists; callers surface that as a
// terminal state, not a crash.
func NextSceneID(sc *scene.Scene, choice *scene.Choice) (string, bool) {
	if choice != nil && choice.NextScene != "" {
		return choice.NextScene, true
	}
	if sc != nil && sc.NextScene != "" {
		return sc.NextScene, true
	}
	return "", false
}

// ChoiceAvailability pairs a choice with its requirement check, for UIs
// that show locked choices disabled with a reason.
type ChoiceAvailability struct {
	Index  int               `json:"index"`
	Choice scene.Choice      `json:"choice"`
	Check  scene.CheckResult `json:"check"`
}

// Result describes a completed transition. Changes carries the merged
// deltas that were applied, for toast-style UI notifications.
type Result struct {
	Scene   *scene.Scene  `json:"scene"`
	Changes *StateChanges `json:"changes,omitempty"`
}

// ChoiceUnavailableError reports an attempt to select a choice whose
// requirements are not met. The requirement check itself is a value;
// this error only occurs when a caller skips the check.
type ChoiceUnavailableError struct {
	Reason string
}

func (e *ChoiceUnavailableError) Error() string {
	return "choice unavailable: " + e.Reason
}

// NoNextSceneError reports a scene with no way forward: no choice made
// and no auto-continue target. Expected on endings, an authoring
// anomaly anywhere else.
type NoNextSceneError struct {
	SceneID string
}

func (e *NoNextSceneError) Error() string {
	return "scene " + e.SceneID + " has no next scene"
}

// Engine wires the scene source and the state store together.
type Engine struct {
	scenes SceneSource
	store  *state.Store
	logger *slog.Logger
}

func New(scenes SceneSource, store *state.Store, logger *slog.Logger) *Engine {
	return &Engine{
		scenes: scenes,
		store:  store,
		logger: logger,
	}
}

// Store exposes the underlying state store.
func (e *Engine) Store() *state.Store {
	return e.store
}

// CurrentScene loads the scene the player is on.
func (e *Engine) CurrentScene() (*scene.Scene, error) {
	return e.scenes.Scene(e.store.CurrentScene())
}

// AvailableChoices filters the scene's choices down to those whose
// requirements pass, for the hide-locked UI mode.
func (e *Engine) AvailableChoices(sc *scene.Scene) []scene.Choice {
	available := make([]scene.Choice, 0, len(sc.Choices))
	for i := range sc.Choices {
		if scene.CheckChoice(&sc.Choices[i], e.store).CanSelect {
			available = append(available, sc.Choices[i])
		}
	}
	return available
}

// ChoicesWithAvailability returns every choice with its requirement
// check, for the disable-locked UI mode.
func (e *Engine) ChoicesWithAvailability(sc *scene.Scene) []ChoiceAvailability {
	out := make([]ChoiceAvailability, 0, len(sc.Choices))
	for i := range sc.Choices {
		out = append(out, ChoiceAvailability{
			Index:  i,
			Choice: sc.Choices[i],
			Check:  scene.CheckChoice(&sc.Choices[i], e.store),
		})
	}
	return out
}

// IsChoiceAvailable checks a single choice by position.
func (e *Engine) IsChoiceAvailable(sc *scene.Scene, index int) bool {
	if index < 0 || index >= len(sc.Choices) {
		return false
	}
	return scene.CheckChoice(&sc.Choices[index], e.store).CanSelect
}

// Choose selects a choice on the current scene by position, validates
// its requirements, and performs the transition.
func (e *Engine) Choose(index int) (*Result, error) {
	current, err := e.CurrentScene()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(current.Choices) {
		return nil, fmt.Errorf("scene %s has no choice at index %d", current.ID, index)
	}
	choice := &current.Choices[index]

	if check := scene.CheckChoice(choice, e.store); !check.CanSelect {
		return nil, &ChoiceUnavailableError{Reason: check.Reason}
	}

	return e.TransitionTo(choice.NextScene, current, choice)
}

// Continue follows the current scene's auto-continue target, applying
// the scene's own delta blocks exactly once.
func (e *Engine) Continue() (*Result, error) {
	current, err := e.CurrentScene()
	if err != nil {
		return nil, err
	}
	nextID, ok := NextSceneID(current, nil)
	if !ok {
		return nil, &NoNextSceneError{SceneID: current.ID}
	}
	return e.TransitionTo(nextID, current, nil)
}

// TransitionTo is the top-level transition operation. When from is
// given, the merged scene and choice deltas are applied to the live
// state; a bare jump (from == nil) moves only the scene pointer and
// history. The prior scene is always pushed onto history.
func (e *Engine) TransitionTo(nextID string, from *scene.Scene, choice *scene.Choice) (*Result, error) {
	next, err := e.scenes.Scene(nextID)
	if err != nil {
		return nil, err
	}

	var changes *StateChanges
	if from != nil {
		changes = CollectStateChanges(from, choice)
		e.store.ApplyDeltas(changes.Flags, changes.Items, changes.Relationships, changes.Evidence)
	}

	e.store.GoToScene(nextID, true)
	if choice != nil {
		e.store.RecordChoice()
	}
	if from != nil {
		e.applyEntryEffects(next)
	}

	if e.logger != nil {
		e.logger.Debug("Scene transition",
			"to", nextID,
			"choice_made", choice != nil,
			"changes", !changes.IsEmpty())
	}

	return &Result{Scene: next, Changes: changes}, nil
}

// Jump moves to a scene without applying any deltas. Used for
// programmatic navigation (debug menus, load-time repositioning).
func (e *Engine) Jump(id string) (*Result, error) {
	return e.TransitionTo(id, nil, nil)
}

// applyEntryEffects records the state implied by arriving on a scene:
// the act letter of the scene id commits the story path the first time
// a path scene is entered (entering path C also starts its time track),
// and a speaking character counts as discovered.
func (e *Engine) applyEntryEffects(next *scene.Scene) {
	if p, ok := scenePath(next.ID); ok && e.store.Path() == "" {
		e.store.SetPath(p)
		if p == state.PathC {
			e.store.InitializeTime()
		}
	}
	if next.Content.Speaker != "" {
		e.store.DiscoverCharacter(next.Content.Speaker)
	}
}

// scenePath maps a scene id's act letter to a story path. Prologue and
// ending acts (X, E) belong to no path.
func scenePath(sceneID string) (state.Path, bool) {
	if len(sceneID) == 0 {
		return "", false
	}
	switch sceneID[0] {
	case 'A':
		return state.PathA, true
	case 'B':
		return state.PathB, true
	case 'C':
		return state.PathC, true
	}
	return "", false
}

// merge helpers: left side is the accumulating block, right side comes
// from the scene or choice being merged in.

func mergeFlagChanges(acc, in *scene.FlagChanges) *scene.FlagChanges {
	if in == nil {
		return acc
	}
	if acc == nil {
		acc = &scene.FlagChanges{}
	}
	acc.Set = append(acc.Set, in.Set...)
	acc.Unset = append(acc.Unset, in.Unset...)
	return acc
}

func mergeItemChanges(acc, in *scene.ItemChanges) *scene.ItemChanges {
	if in == nil {
		return acc
	}
	if acc == nil {
		acc = &scene.ItemChanges{}
	}
	acc.Add = append(acc.Add, in.Add...)
	acc.Remove = append(acc.Remove, in.Remove...)
	return acc
}

func mergeEvidenceChanges(acc, in *scene.EvidenceChanges) *scene.EvidenceChanges {
	if in == nil {
		return acc
	}
	if acc == nil {
		acc = &scene.EvidenceChanges{}
	}
	acc.Add = append(acc.Add, in.Add...)
	acc.Remove = append(acc.Remove, in.Remove...)
	return acc
}

func mergeRelationships(acc, in scene.RelationshipChanges) scene.RelationshipChanges {
	if len(in) == 0 {
		return acc
	}
	if acc == nil {
		acc = make(scene.RelationshipChanges, len(in))
	}
	// Choice values overwrite scene values for the same character;
	// unlike the array deltas, these do not accumulate.
	for id, delta := range in {
		acc[id] = delta
	}
	return acc
}
