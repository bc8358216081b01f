package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/narrative-engine/pkg/scene"
)

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore()
	gs := s.Snapshot()

	assert.Equal(t, StartScene, gs.CurrentScene)
	assert.Empty(t, gs.SceneHistory)
	assert.Empty(t, gs.Inventory)
	assert.Empty(t, gs.Flags)
	assert.Empty(t, gs.Evidence)
	assert.Equal(t, Path(""), gs.CurrentPath)
	assert.Nil(t, gs.DayTime)
	assert.Equal(t, WorkAssignment(""), gs.WorkAssignment)
	assert.Equal(t, Stats{}, gs.Stats)
	assert.NotEqual(t, gs.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestStore_Navigation(t *testing.T) {
	s := NewStore()

	s.GoToScene("A-1-001", true)
	s.GoToScene("A-1-002", true)

	assert.Equal(t, "A-1-002", s.CurrentScene())
	assert.True(t, s.CanGoBack())

	gs := s.Snapshot()
	assert.Equal(t, []string{StartScene, "A-1-001"}, gs.SceneHistory,
		"history holds prior scenes only, never the current one")

	prev, ok := s.GoBack()
	require.True(t, ok)
	assert.Equal(t, "A-1-001", prev)
	assert.Equal(t, "A-1-001", s.CurrentScene())

	s.GoBack()
	assert.False(t, s.CanGoBack())

	_, ok = s.GoBack()
	assert.False(t, ok, "GoBack on empty history reports failure")
}

func TestStore_GoToSceneWithoutHistory(t *testing.T) {
	s := NewStore()
	s.GoToScene("B-2-010", false)
	assert.Equal(t, "B-2-010", s.CurrentScene())
	assert.False(t, s.CanGoBack())
}

func TestStore_ClearHistory(t *testing.T) {
	s := NewStore()
	s.GoToScene("A-1-001", true)
	s.GoToScene("A-1-002", true)
	s.ClearHistory()
	assert.False(t, s.CanGoBack())
	assert.Equal(t, "A-1-002", s.CurrentScene())
}

func TestStore_ScenesVisitedCountsDistinct(t *testing.T) {
	s := NewStore()
	s.GoToScene("A-1-001", true)
	s.GoToScene("A-1-002", true)
	s.GoToScene("A-1-001", true) // revisit
	assert.Equal(t, 2, s.Stats().ScenesVisited,
		"revisiting a scene does not increment ScenesVisited")
}

func TestStore_ItemsFoundNeverDecrements(t *testing.T) {
	s := NewStore()
	s.AddItem("cell_key")
	s.AddItem("cell_key") // duplicate add
	s.RemoveItem("cell_key")
	s.AddItem("cell_key") // re-found, already counted

	gs := s.Snapshot()
	assert.Equal(t, 1, gs.Stats.ItemsFound)
	assert.Equal(t, []string{"cell_key"}, gs.Inventory, "inventory stays deduplicated")
}

func TestStore_RelationshipBoundsAreLiveCounts(t *testing.T) {
	s := NewStore()

	s.SetRelationship("bastian", 100)
	s.SetRelationship("warden", -100)
	assert.Equal(t, 1, s.Stats().RelationshipsMaxed)
	assert.Equal(t, 1, s.Stats().RelationshipsMinned)

	// A maxed relationship dropping below 100 lowers the live count.
	s.AdjustRelationship("bastian", -5)
	assert.Equal(t, 0, s.Stats().RelationshipsMaxed)
	assert.Equal(t, 95, s.Relationship("bastian"))

	s.SetRelationship("warden", 0)
	assert.Equal(t, 0, s.Stats().RelationshipsMinned)
}

func TestStore_SetRelationshipClamps(t *testing.T) {
	s := NewStore()
	s.SetRelationship("mira", 300)
	assert.Equal(t, 100, s.Relationship("mira"))
	s.SetRelationship("mira", -300)
	assert.Equal(t, -100, s.Relationship("mira"))
}

func TestStore_ApplyDeltas(t *testing.T) {
	s := NewStore()
	s.AddItem("rope")

	s.ApplyDeltas(
		&scene.FlagChanges{Set: []string{"escape_planned"}},
		&scene.ItemChanges{Add: []string{"cell_key"}, Remove: []string{"rope"}},
		scene.RelationshipChanges{"bastian": 20},
		&scene.EvidenceChanges{Add: []string{"bloody_ledger"}},
	)

	gs := s.Snapshot()
	assert.Equal(t, []string{"cell_key"}, gs.Inventory)
	assert.Equal(t, []string{"escape_planned"}, gs.Flags)
	assert.Equal(t, []string{"bloody_ledger"}, gs.Evidence)
	assert.Equal(t, 20, gs.Relationships["bastian"])
	assert.Equal(t, 2, gs.Stats.ItemsFound, "rope and cell_key both counted")
}

func TestStore_ApplyDeltas_AllNil(t *testing.T) {
	s := NewStore()
	s.AddItem("rope")
	before := s.Snapshot()

	s.ApplyDeltas(nil, nil, nil, nil)

	after := s.Snapshot()
	assert.Equal(t, before.Inventory, after.Inventory)
	assert.Equal(t, before.Flags, after.Flags)
	assert.Equal(t, before.Evidence, after.Evidence)
	assert.Equal(t, before.Relationships, after.Relationships)
}

func TestStore_PathSetOnce(t *testing.T) {
	s := NewStore()
	s.SetPath(PathB)
	s.SetPath(PathC) // ignored, path is chosen once
	assert.Equal(t, PathB, s.Path())
	assert.Equal(t, PathB, s.Stats().PathTaken)
}

func TestStore_TimeProgression(t *testing.T) {
	s := NewStore()
	s.InitializeTime()

	dt := s.DayTime()
	require.NotNil(t, dt)
	assert.Equal(t, DayTime{Day: 1, TimeOfDay: Morning}, *dt)
	assert.Equal(t, 1, s.Stats().StageReached)

	s.AdvanceToNextPeriod()
	assert.Equal(t, DayTime{Day: 1, TimeOfDay: Midday}, *s.DayTime())
	s.AdvanceToNextPeriod()
	assert.Equal(t, DayTime{Day: 1, TimeOfDay: Evening}, *s.DayTime())
	s.AdvanceToNextPeriod()
	assert.Equal(t, DayTime{Day: 1, TimeOfDay: Night}, *s.DayTime())
	s.AdvanceToNextPeriod()
	assert.Equal(t, DayTime{Day: 2, TimeOfDay: Morning}, *s.DayTime())
	assert.Equal(t, 2, s.Stats().StageReached)
}

func TestStore_TimeTrackEndsAfterLastNight(t *testing.T) {
	s := NewStore()
	s.InitializeTime()

	// Walk the whole track. Six days of four periods is 24 positions
	// counting the initial day-1 morning; the last one is day-6 night.
	seen := 1
	for s.DayTime() != nil {
		last := *s.DayTime()
		s.AdvanceToNextPeriod()
		if s.DayTime() == nil {
			assert.Equal(t, DayTime{Day: LastDay, TimeOfDay: Night}, last,
				"track must end exactly after day 6 night")
		} else {
			seen++
		}
	}
	assert.Equal(t, 24, seen)
	assert.Equal(t, LastDay, s.Stats().StageReached)

	// Terminal: further advances stay nil.
	s.AdvanceToNextPeriod()
	assert.Nil(t, s.DayTime())
}

func TestStore_StageReachedNeverDecreases(t *testing.T) {
	s := NewStore()
	s.SetDayTime(DayTime{Day: 4, TimeOfDay: Evening})
	assert.Equal(t, 4, s.Stats().StageReached)

	s.SetDayTime(DayTime{Day: 2, TimeOfDay: Morning})
	assert.Equal(t, 4, s.Stats().StageReached,
		"moving the day backward never lowers StageReached")
	assert.Equal(t, 2, s.DayTime().Day)
}

func TestStore_WorkAssignment(t *testing.T) {
	s := NewStore()
	s.SetWorkAssignment(WorkKitchen)
	assert.Equal(t, WorkKitchen, s.WorkAssignment())
}

func TestStore_DiscoverCharacter(t *testing.T) {
	s := NewStore()
	s.DiscoverCharacter("bastian")
	s.DiscoverCharacter("bastian")
	assert.True(t, s.HasDiscovered("bastian"))
	assert.Len(t, s.Snapshot().DiscoveredCharacters, 1)
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.GoToScene("A-1-001", true)
	s.AddItem("cell_key")
	s.SetPath(PathA)
	s.InitializeTime()
	oldID := s.Snapshot().ID

	s.Reset()

	gs := s.Snapshot()
	assert.Equal(t, StartScene, gs.CurrentScene)
	assert.Empty(t, gs.Inventory)
	assert.Equal(t, Path(""), gs.CurrentPath)
	assert.Nil(t, gs.DayTime)
	assert.Equal(t, Stats{}, gs.Stats)
	assert.NotEqual(t, oldID, gs.ID, "reset starts a new playthrough identity")
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	s.AddItem("rope")
	snap := s.Snapshot()

	s.AddItem("shiv")
	s.SetRelationship("mira", 10)

	assert.Equal(t, []string{"rope"}, snap.Inventory)
	assert.Empty(t, snap.Relationships)
}

func TestStore_Restore(t *testing.T) {
	s := NewStore()
	gs := NewGameState()
	gs.CurrentScene = "C-3-044"
	gs.Inventory = []string{"shiv"}
	gs.Flags = nil // simulate an older save omitting the field

	s.Restore(gs)

	got := s.Snapshot()
	assert.Equal(t, "C-3-044", got.CurrentScene)
	assert.Equal(t, []string{"shiv"}, got.Inventory)
	assert.NotNil(t, got.Flags, "restore normalizes nil collections")

	// The caller's copy stays independent of the store.
	gs.Inventory[0] = "changed"
	assert.Equal(t, []string{"shiv"}, s.Snapshot().Inventory)
}

func TestStore_PlayTime(t *testing.T) {
	s := NewStore()
	s.AddPlayTime(30)
	s.AddPlayTime(15)
	assert.Equal(t, 45, s.Stats().PlayTimeSeconds)
}
