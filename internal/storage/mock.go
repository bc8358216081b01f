package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmallory/narrative-engine/pkg/state"
)

// MockStore is an in-memory SaveStore for handler tests. Envelopes are
// stored as marshaled JSON so loads go through the same decode path as
// the real store, and corrupt-slot behavior can be simulated by
// injecting raw bytes.
type MockStore struct {
	mu       sync.Mutex
	slots    map[int][]byte
	auto     []byte
	settings *Settings

	// FailOps forces named operations to error, for testing the
	// handlers' error paths. Keys: "save", "load", "delete".
	FailOps map[string]error
}

var _ SaveStore = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		slots: make(map[int][]byte),
	}
}

// InjectRaw writes arbitrary bytes into a slot, bypassing validation.
func (m *MockStore) InjectRaw(slot int, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = data
}

func (m *MockStore) failure(op string) error {
	if m.FailOps == nil {
		return nil
	}
	return m.FailOps[op]
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }
func (m *MockStore) Close() error                   { return nil }

func (m *MockStore) SaveGame(ctx context.Context, slot int, gs *state.GameState) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	if err := m.failure("save"); err != nil {
		return nil, err
	}
	sg := NewSavedGame(slot, gs)
	data, err := json.Marshal(sg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.slots[slot] = data
	m.mu.Unlock()
	return sg, nil
}

func (m *MockStore) LoadGame(ctx context.Context, slot int) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	if err := m.failure("load"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.slots[slot]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeEnvelope(data, slot)
}

func (m *MockStore) DeleteSave(ctx context.Context, slot int) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := m.failure("delete"); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.slots, slot)
	m.mu.Unlock()
	return nil
}

func (m *MockStore) SlotMetadata(ctx context.Context, slot int) (*SaveSlotMetadata, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.slots[slot]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeMetadata(data), nil
}

func (m *MockStore) AllSlots(ctx context.Context) ([]*SaveSlotMetadata, error) {
	slots := make([]*SaveSlotMetadata, 0, MaxSlot)
	for slot := MinSlot; slot <= MaxSlot; slot++ {
		meta, err := m.SlotMetadata(ctx, slot)
		if err != nil {
			return nil, err
		}
		slots = append(slots, meta)
	}
	return slots, nil
}

func (m *MockStore) MostRecentSlot(ctx context.Context) (int, error) {
	slots, err := m.AllSlots(ctx)
	if err != nil {
		return 0, err
	}
	best := 0
	var bestTime int64
	for _, meta := range slots {
		if meta != nil && meta.Timestamp > bestTime {
			best = meta.Slot
			bestTime = meta.Timestamp
		}
	}
	return best, nil
}

func (m *MockStore) HasSavedGames(ctx context.Context) (bool, error) {
	slot, err := m.MostRecentSlot(ctx)
	return slot != 0, err
}

func (m *MockStore) ExportSave(ctx context.Context, slot int) ([]byte, error) {
	sg, err := m.LoadGame(ctx, slot)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrEmptySlot)
	}
	return json.MarshalIndent(sg, "", "  ")
}

func (m *MockStore) ImportSave(ctx context.Context, slot int, data []byte) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	sg, err := decodeEnvelope(data, slot)
	if err != nil {
		return nil, err
	}
	return m.SaveGame(ctx, slot, sg.GameState)
}

func (m *MockStore) AutoSave(ctx context.Context, gs *state.GameState) (*SavedGame, error) {
	if err := m.failure("save"); err != nil {
		return nil, err
	}
	sg := NewSavedGame(AutoSaveSlot, gs)
	data, err := json.Marshal(sg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.auto = data
	m.mu.Unlock()
	return sg, nil
}

func (m *MockStore) LoadAutoSave(ctx context.Context) (*SavedGame, error) {
	m.mu.Lock()
	data := m.auto
	m.mu.Unlock()
	if data == nil {
		return nil, nil
	}
	return decodeEnvelope(data, AutoSaveSlot)
}

func (m *MockStore) HasAutoSave(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auto != nil, nil
}

func (m *MockStore) DeleteAutoSave(ctx context.Context) error {
	m.mu.Lock()
	m.auto = nil
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Settings(ctx context.Context) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return DefaultSettings(), nil
	}
	copied := *m.settings
	return &copied, nil
}

func (m *MockStore) SaveSettings(ctx context.Context, settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *settings
	m.settings = &copied
	return nil
}

func decodeEnvelope(data []byte, slot int) (*SavedGame, error) {
	var sg SavedGame
	if err := json.Unmarshal(data, &sg); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	if err := sg.Validate(); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	sg.GameState.Normalize()
	return &sg, nil
}

func decodeMetadata(data []byte) *SaveSlotMetadata {
	var probe struct {
		Metadata *SaveSlotMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}
	return probe.Metadata
}
