package state

import (
	"slices"
	"sync"
	"time"

	"github.com/jmallory/narrative-engine/pkg/scene"
)

// Store is the single source of truth for a playthrough. All writes go
// through its action methods; reads elsewhere work on snapshots. The
// original design assumed a single UI event loop, so the mutex here is
// only guarding against the HTTP mux serving requests concurrently.
type Store struct {
	mu sync.Mutex
	gs *GameState
}

// NewStore returns a store holding a fresh playthrough.
func NewStore() *Store {
	return &Store{gs: NewGameState()}
}

// Store satisfies scene.StateView so requirement checks can read it
// directly.
var _ scene.StateView = (*Store)(nil)

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.Clone()
}

// Restore replaces the whole state, as on load. The incoming state is
// copied and normalized; the caller's reference stays independent.
func (s *Store) Restore(gs *GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := gs.Clone()
	restored.Normalize()
	s.gs = restored
}

// Reset discards the playthrough and restores fixed initial defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs = NewGameState()
}

// Navigation

// CurrentScene returns the id of the scene the player is on.
func (s *Store) CurrentScene() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.CurrentScene
}

// GoToScene moves the scene pointer. When recordHistory is true the
// prior scene is pushed onto the history stack first, keeping the
// invariant that history holds prior scenes only.
func (s *Store) GoToScene(id string, recordHistory bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recordHistory && s.gs.CurrentScene != "" {
		s.gs.SceneHistory = append(s.gs.SceneHistory, s.gs.CurrentScene)
	}
	s.gs.CurrentScene = id
	s.markVisited(id)
	s.touch()
}

// GoBack pops the most recent history entry and makes it current. The
// abandoned scene is not re-pushed; going back is not itself a visit.
func (s *Store) GoBack() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.gs.SceneHistory)
	if n == 0 {
		return "", false
	}
	prev := s.gs.SceneHistory[n-1]
	s.gs.SceneHistory = s.gs.SceneHistory[:n-1]
	s.gs.CurrentScene = prev
	s.touch()
	return prev, true
}

// CanGoBack reports whether any history remains to pop.
func (s *Store) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gs.SceneHistory) > 0
}

// ClearHistory empties the back-navigation stack.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.SceneHistory = make([]string, 0)
}

// ApplyDeltas applies all four delta dimensions in one action and keeps
// the derived stats in step: first-ever item adds bump ItemsFound, and
// the maxed/minned relationship counts are recomputed live.
func (s *Store) ApplyDeltas(flags *scene.FlagChanges, items *scene.ItemChanges, relationships scene.RelationshipChanges, evidence *scene.EvidenceChanges) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gs.Flags = ApplyFlagChanges(s.gs.Flags, flags)
	if items != nil {
		for _, id := range items.Add {
			s.markItemFound(id)
		}
		s.gs.Inventory = ApplyItemChanges(s.gs.Inventory, items)
	}
	s.gs.Evidence = ApplyEvidenceChanges(s.gs.Evidence, evidence)
	if len(relationships) > 0 {
		s.gs.Relationships = ApplyRelationshipChanges(s.gs.Relationships, relationships)
		s.recountRelationshipBounds()
	}
	s.touch()
}

// RecordChoice counts one choice-driven transition.
func (s *Store) RecordChoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.Stats.ChoicesMade++
}

// Inventory actions

func (s *Store) AddItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.gs.Inventory, id) {
		return
	}
	s.markItemFound(id)
	s.gs.Inventory = append(s.gs.Inventory, id)
	s.touch()
}

func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.gs.Inventory, id); i >= 0 {
		s.gs.Inventory = slices.Delete(s.gs.Inventory, i, i+1)
		s.touch()
	}
}

func (s *Store) HasItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.HasItem(id)
}

// Flag actions

func (s *Store) SetFlag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.gs.Flags, id) {
		s.gs.Flags = append(s.gs.Flags, id)
		s.touch()
	}
}

func (s *Store) ClearFlag(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.gs.Flags, id); i >= 0 {
		s.gs.Flags = slices.Delete(s.gs.Flags, i, i+1)
		s.touch()
	}
}

func (s *Store) HasFlag(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.HasFlag(id)
}

// Evidence actions

func (s *Store) AddEvidence(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.gs.Evidence, id) {
		s.gs.Evidence = append(s.gs.Evidence, id)
		s.touch()
	}
}

func (s *Store) RemoveEvidence(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.gs.Evidence, id); i >= 0 {
		s.gs.Evidence = slices.Delete(s.gs.Evidence, i, i+1)
		s.touch()
	}
}

func (s *Store) HasEvidence(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.HasEvidence(id)
}

// Relationship actions

// SetRelationship sets an absolute score, clamped. Distinct from the
// additive deltas applied during transitions.
func (s *Store) SetRelationship(characterID string, score int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.Relationships[characterID] = clampRelationship(score)
	s.recountRelationshipBounds()
	s.touch()
}

// AdjustRelationship adds a delta to the current score, clamped.
func (s *Store) AdjustRelationship(characterID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.Relationships[characterID] = clampRelationship(s.gs.Relationships[characterID] + delta)
	s.recountRelationshipBounds()
	s.touch()
}

func (s *Store) Relationship(characterID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.Relationship(characterID)
}

func (s *Store) DiscoverCharacter(characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.gs.DiscoveredCharacters, characterID) {
		s.gs.DiscoveredCharacters = append(s.gs.DiscoveredCharacters, characterID)
		s.touch()
	}
}

func (s *Store) HasDiscovered(characterID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.HasDiscovered(characterID)
}

// Path and work assignment

// SetPath records the story branch. The path is chosen once per
// playthrough; later calls are ignored.
func (s *Store) SetPath(p Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs.CurrentPath != "" {
		return
	}
	s.gs.CurrentPath = p
	s.gs.Stats.PathTaken = p
	s.touch()
}

func (s *Store) Path() Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.CurrentPath
}

func (s *Store) SetWorkAssignment(w WorkAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.WorkAssignment = w
	s.touch()
}

func (s *Store) WorkAssignment() WorkAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.WorkAssignment
}

// Time track

// InitializeTime starts path C's time track at day 1 morning.
func (s *Store) InitializeTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.DayTime = &DayTime{Day: 1, TimeOfDay: Morning}
	s.raiseStage(1)
	s.touch()
}

// AdvanceToNextPeriod steps morning→day→evening→night, then rolls to
// the next day's morning. Advancing past day 6 night ends the track:
// DayTime becomes nil and stays nil.
func (s *Store) AdvanceToNextPeriod() {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt := s.gs.DayTime
	if dt == nil {
		return
	}
	switch dt.TimeOfDay {
	case Morning:
		dt.TimeOfDay = Midday
	case Midday:
		dt.TimeOfDay = Evening
	case Evening:
		dt.TimeOfDay = Night
	case Night:
		if dt.Day >= LastDay {
			s.gs.DayTime = nil
			s.touch()
			return
		}
		dt.Day++
		dt.TimeOfDay = Morning
		s.raiseStage(dt.Day)
	}
	s.touch()
}

// SetDayTime positions the time track directly. StageReached only ever
// rises, so moving the day backward never lowers it.
func (s *Store) SetDayTime(dt DayTime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := dt
	s.gs.DayTime = &copied
	s.raiseStage(dt.Day)
	s.touch()
}

// DayTime returns a copy of the current time-track position, or nil
// when the track is inactive.
func (s *Store) DayTime() *DayTime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gs.DayTime == nil {
		return nil
	}
	dt := *s.gs.DayTime
	return &dt
}

// AddPlayTime accumulates elapsed play time in seconds.
func (s *Store) AddPlayTime(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gs.Stats.PlayTimeSeconds += seconds
}

// Stats returns a copy of the derived counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs.Stats
}

// internal helpers; callers hold the lock

func (s *Store) markVisited(id string) {
	if !slices.Contains(s.gs.VisitedScenes, id) {
		s.gs.VisitedScenes = append(s.gs.VisitedScenes, id)
		s.gs.Stats.ScenesVisited++
	}
}

func (s *Store) markItemFound(id string) {
	if !slices.Contains(s.gs.FoundItems, id) {
		s.gs.FoundItems = append(s.gs.FoundItems, id)
		s.gs.Stats.ItemsFound++
	}
}

func (s *Store) recountRelationshipBounds() {
	maxed, minned := 0, 0
	for _, score := range s.gs.Relationships {
		switch score {
		case MaxRelationship:
			maxed++
		case MinRelationship:
			minned++
		}
	}
	s.gs.Stats.RelationshipsMaxed = maxed
	s.gs.Stats.RelationshipsMinned = minned
}

func (s *Store) raiseStage(day int) {
	if day > s.gs.Stats.StageReached {
		s.gs.Stats.StageReached = day
	}
}

func (s *Store) touch() {
	s.gs.UpdatedAt = time.Now()
}
