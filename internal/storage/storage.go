// Package storage persists complete game states to three numbered
// manual save slots plus one dedicated auto-save slot, with lightweight
// metadata reads for the slot-list UI.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmallory/narrative-engine/pkg/state"
)

// ErrEmptySlot is returned by operations that need an existing save,
// such as export. Plain loads report an empty slot as nil, not an
// error.
var ErrEmptySlot = errors.New("save slot is empty")

// SaveVersion stamps every persisted envelope. Bump on breaking format
// changes so loads can detect saves from a different era.
const SaveVersion = "1.0.0"

// Manual slots are numbered 1-3. The auto-save slot is separate and
// reports slot 0 in its metadata so it can never collide with a manual
// save.
const (
	MinSlot      = 1
	MaxSlot      = 3
	AutoSaveSlot = 0
)

// savedAtFormat is the human-readable date shown in the slot list.
const savedAtFormat = "Jan 2, 2006 3:04 PM"

// SaveSlotMetadata is a lightweight projection of a save, enough to
// render a slot list without deserializing the whole game state.
type SaveSlotMetadata struct {
	Slot            int            `json:"slot"`
	Timestamp       int64          `json:"timestamp"` // unix milliseconds
	SavedAt         string         `json:"savedAt"`
	CurrentScene    string         `json:"currentScene"`
	CurrentPath     state.Path     `json:"currentPath,omitempty"`
	DayTime         *state.DayTime `json:"dayTime,omitempty"`
	PlayTimeSeconds int            `json:"playTimeSeconds"`
}

// SavedGame is the persisted envelope for one slot.
type SavedGame struct {
	Metadata  *SaveSlotMetadata `json:"metadata"`
	GameState *state.GameState  `json:"gameState"`
	Version   string            `json:"version"`
}

// NewSavedGame wraps a game state snapshot in a stamped envelope.
func NewSavedGame(slot int, gs *state.GameState) *SavedGame {
	now := time.Now()
	return &SavedGame{
		Metadata: &SaveSlotMetadata{
			Slot:            slot,
			Timestamp:       now.UnixMilli(),
			SavedAt:         now.Format(savedAtFormat),
			CurrentScene:    gs.CurrentScene,
			CurrentPath:     gs.CurrentPath,
			DayTime:         gs.DayTime,
			PlayTimeSeconds: gs.Stats.PlayTimeSeconds,
		},
		GameState: gs,
		Version:   SaveVersion,
	}
}

// Validate checks the structural integrity of a loaded envelope. Both
// top-level keys must be present; anything less is a corrupt save.
func (sg *SavedGame) Validate() error {
	if sg.GameState == nil {
		return fmt.Errorf("missing gameState")
	}
	if sg.Metadata == nil {
		return fmt.Errorf("missing metadata")
	}
	return nil
}

// Settings are the player preferences persisted alongside the saves.
type Settings struct {
	AutosaveEnabled   bool `json:"autosaveEnabled"`
	HideLockedChoices bool `json:"hideLockedChoices"`
}

// DefaultSettings returns the out-of-the-box preferences.
func DefaultSettings() *Settings {
	return &Settings{
		AutosaveEnabled:   true,
		HideLockedChoices: false,
	}
}

// InvalidSlotError reports a slot number outside [MinSlot, MaxSlot].
// Raised synchronously before any I/O.
type InvalidSlotError struct {
	Slot int
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("invalid save slot %d: must be between %d and %d", e.Slot, MinSlot, MaxSlot)
}

// CorruptSaveError reports unparsable or structurally invalid save
// data. It affects only its own slot; metadata listing swallows it.
type CorruptSaveError struct {
	Slot int
	Err  error
}

func (e *CorruptSaveError) Error() string {
	return fmt.Sprintf("corrupt save in slot %d: %v", e.Slot, e.Err)
}

func (e *CorruptSaveError) Unwrap() error {
	return e.Err
}

// SaveStore is the persistence interface consumed by the handlers and
// the auto-save scheduler.
type SaveStore interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Manual slots (1-3)
	SaveGame(ctx context.Context, slot int, gs *state.GameState) (*SavedGame, error)
	LoadGame(ctx context.Context, slot int) (*SavedGame, error) // nil on empty slot
	DeleteSave(ctx context.Context, slot int) error

	// Metadata-only reads: per-slot errors are logged and reported as
	// nil so one corrupt slot never breaks the whole list.
	SlotMetadata(ctx context.Context, slot int) (*SaveSlotMetadata, error)
	AllSlots(ctx context.Context) ([]*SaveSlotMetadata, error)
	MostRecentSlot(ctx context.Context) (int, error) // 0 when no saves exist
	HasSavedGames(ctx context.Context) (bool, error)

	// Backup round trip
	ExportSave(ctx context.Context, slot int) ([]byte, error)
	ImportSave(ctx context.Context, slot int, data []byte) (*SavedGame, error)

	// Auto-save slot, mirroring the manual API
	AutoSave(ctx context.Context, gs *state.GameState) (*SavedGame, error)
	LoadAutoSave(ctx context.Context) (*SavedGame, error)
	HasAutoSave(ctx context.Context) (bool, error)
	DeleteAutoSave(ctx context.Context) error

	// Player preferences
	Settings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error
}

// validSlot guards every manual-slot operation.
func validSlot(slot int) error {
	if slot < MinSlot || slot > MaxSlot {
		return &InvalidSlotError{Slot: slot}
	}
	return nil
}
