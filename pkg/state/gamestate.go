package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// StartScene is the scene every new playthrough begins on.
const StartScene = "X-0-001"

// Relationship scores are clamped to this range after every mutation.
const (
	MinRelationship = -100
	MaxRelationship = 100
)

// Path is one of three mutually exclusive major story branches, chosen
// once per playthrough.
type Path string

const (
	PathA Path = "A"
	PathB Path = "B"
	PathC Path = "C"
)

// TimeOfDay is one period of path C's day cycle.
type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Midday  TimeOfDay = "day"
	Evening TimeOfDay = "evening"
	Night   TimeOfDay = "night"
)

// DayTime is the position on path C's six-day time track. A nil DayTime
// means the time track is inactive (paths A/B, or past day 6 night).
type DayTime struct {
	Day       int       `json:"day"` // 1-6
	TimeOfDay TimeOfDay `json:"timeOfDay"`
}

// LastDay is the final day of path C's time track. Advancing past its
// night period ends the track.
const LastDay = 6

// WorkAssignment is the prison job held on path C.
type WorkAssignment string

const (
	WorkLaundry   WorkAssignment = "laundry"
	WorkKitchen   WorkAssignment = "kitchen"
	WorkInfirmary WorkAssignment = "infirmary"
	WorkWorkshop  WorkAssignment = "workshop"
)

// Stats are counters tracked across a playthrough. Most are monotonic;
// RelationshipsMaxed and RelationshipsMinned are live counts and can
// decrease when a pinned score moves back toward the middle.
type Stats struct {
	ScenesVisited       int  `json:"scenesVisited"` // distinct scene ids ever entered
	ChoicesMade         int  `json:"choicesMade"`
	ItemsFound          int  `json:"itemsFound"` // distinct items ever added, never decremented
	RelationshipsMaxed  int  `json:"relationshipsMaxed"`
	RelationshipsMinned int  `json:"relationshipsMinned"`
	StageReached        int  `json:"stageReached"` // high-water mark of DayTime.Day
	PathTaken           Path `json:"pathTaken,omitempty"`
	PlayTimeSeconds     int  `json:"playTimeSeconds"`
}

// GameState is the single mutable aggregate for one playthrough. All
// mutation goes through the Store's action methods; everything else
// reads snapshots.
type GameState struct {
	ID                   uuid.UUID      `json:"id"`
	CurrentScene         string         `json:"currentScene"`
	SceneHistory         []string       `json:"sceneHistory"` // prior scenes only, never the current one
	CurrentPath          Path           `json:"currentPath,omitempty"`
	DayTime              *DayTime       `json:"dayTime,omitempty"`
	WorkAssignment       WorkAssignment `json:"workAssignment,omitempty"`
	Inventory            []string       `json:"inventory"`
	Relationships        map[string]int `json:"relationships"`
	DiscoveredCharacters []string       `json:"discoveredCharacters"`
	Flags                []string       `json:"flags"`
	Evidence             []string       `json:"evidence"`
	Stats                Stats          `json:"stats"`

	// Distinct-id sets backing ScenesVisited and ItemsFound. Persisted
	// so the counters stay correct across save/load.
	VisitedScenes []string `json:"visitedScenes"`
	FoundItems    []string `json:"foundItems"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// NewGameState returns a fresh playthrough positioned on the start
// scene, with empty collections and zeroed stats.
func NewGameState() *GameState {
	return &GameState{
		ID:                   uuid.New(),
		CurrentScene:         StartScene,
		SceneHistory:         make([]string, 0),
		Inventory:            make([]string, 0),
		Relationships:        make(map[string]int),
		DiscoveredCharacters: make([]string, 0),
		Flags:                make([]string, 0),
		Evidence:             make([]string, 0),
		VisitedScenes:        make([]string, 0),
		FoundItems:           make([]string, 0),
	}
}

// HasItem reports whether the item is in the inventory.
func (gs *GameState) HasItem(id string) bool {
	return slices.Contains(gs.Inventory, id)
}

// HasFlag reports whether the story flag is set.
func (gs *GameState) HasFlag(id string) bool {
	return slices.Contains(gs.Flags, id)
}

// HasEvidence reports whether the evidence has been collected.
func (gs *GameState) HasEvidence(id string) bool {
	return slices.Contains(gs.Evidence, id)
}

// Relationship returns the score for a character, or 0 when the
// character has no recorded relationship yet.
func (gs *GameState) Relationship(characterID string) int {
	return gs.Relationships[characterID]
}

// HasDiscovered reports whether the character has been met.
func (gs *GameState) HasDiscovered(characterID string) bool {
	return slices.Contains(gs.DiscoveredCharacters, characterID)
}

// Clone returns a deep copy. Used for persistence snapshots so the live
// state and the serialized state never share slices or maps.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.SceneHistory = slices.Clone(gs.SceneHistory)
	out.Inventory = slices.Clone(gs.Inventory)
	out.DiscoveredCharacters = slices.Clone(gs.DiscoveredCharacters)
	out.Flags = slices.Clone(gs.Flags)
	out.Evidence = slices.Clone(gs.Evidence)
	out.VisitedScenes = slices.Clone(gs.VisitedScenes)
	out.FoundItems = slices.Clone(gs.FoundItems)
	out.Relationships = make(map[string]int, len(gs.Relationships))
	for k, v := range gs.Relationships {
		out.Relationships[k] = v
	}
	if gs.DayTime != nil {
		dt := *gs.DayTime
		out.DayTime = &dt
	}
	return &out
}

// Normalize replaces nil collections with empty ones. Saves written by
// older versions may omit empty fields entirely.
func (gs *GameState) Normalize() {
	if gs.SceneHistory == nil {
		gs.SceneHistory = make([]string, 0)
	}
	if gs.Inventory == nil {
		gs.Inventory = make([]string, 0)
	}
	if gs.Relationships == nil {
		gs.Relationships = make(map[string]int)
	}
	if gs.DiscoveredCharacters == nil {
		gs.DiscoveredCharacters = make([]string, 0)
	}
	if gs.Flags == nil {
		gs.Flags = make([]string, 0)
	}
	if gs.Evidence == nil {
		gs.Evidence = make([]string, 0)
	}
	if gs.VisitedScenes == nil {
		gs.VisitedScenes = make([]string, 0)
	}
	if gs.FoundItems == nil {
		gs.FoundItems = make([]string, 0)
	}
}
