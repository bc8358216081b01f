package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmallory/narrative-engine/pkg/state"
)

// ErrStorageUnavailable is returned when the store is constructed
// without a reachable backend, so callers fail fast instead of
// silently dropping saves.
var ErrStorageUnavailable = errors.New("save storage unavailable")

// RedisStore implements SaveStore on Redis. Saves are JSON envelopes
// under string keys: one per manual slot, one for the auto-save, one
// for settings. No TTL; saves are durable until deleted.
type RedisStore struct {
	client    *redis.Client
	logger    *slog.Logger
	keyPrefix string
}

var _ SaveStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed save store. keyPrefix namespaces
// the slot keys ("<prefix>:1".."<prefix>:3", "<prefix>:auto",
// "<prefix>:settings").
func NewRedisStore(redisURL string, keyPrefix string, logger *slog.Logger) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("%w: no redis URL configured", ErrStorageUnavailable)
	}
	if keyPrefix == "" {
		keyPrefix = "save"
	}
	return &RedisStore{
		client:    redis.NewClient(&redis.Options{Addr: redisURL}),
		logger:    logger,
		keyPrefix: keyPrefix,
	}, nil
}

func (r *RedisStore) slotKey(slot int) string {
	return fmt.Sprintf("%s:%d", r.keyPrefix, slot)
}

func (r *RedisStore) autoKey() string {
	return r.keyPrefix + ":auto"
}

func (r *RedisStore) settingsKey() string {
	return r.keyPrefix + ":settings"
}

// Lifecycle

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available during startup.
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Manual slots

func (r *RedisStore) SaveGame(ctx context.Context, slot int, gs *state.GameState) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	return r.writeEnvelope(ctx, r.slotKey(slot), NewSavedGame(slot, gs))
}

func (r *RedisStore) LoadGame(ctx context.Context, slot int) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	return r.readEnvelope(ctx, r.slotKey(slot), slot)
}

func (r *RedisStore) DeleteSave(ctx context.Context, slot int) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.slotKey(slot)).Err(); err != nil {
		r.logger.Error("Failed to delete save", "slot", slot, "error", err)
		return fmt.Errorf("failed to delete save in slot %d: %w", slot, err)
	}
	return nil
}

// Metadata

func (r *RedisStore) SlotMetadata(ctx context.Context, slot int) (*SaveSlotMetadata, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	return r.readMetadata(ctx, r.slotKey(slot), slot), nil
}

func (r *RedisStore) AllSlots(ctx context.Context) ([]*SaveSlotMetadata, error) {
	slots := make([]*SaveSlotMetadata, 0, MaxSlot)
	for slot := MinSlot; slot <= MaxSlot; slot++ {
		slots = append(slots, r.readMetadata(ctx, r.slotKey(slot), slot))
	}
	return slots, nil
}

func (r *RedisStore) MostRecentSlot(ctx context.Context) (int, error) {
	slots, err := r.AllSlots(ctx)
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

func (r *RedisStore) HasSavedGames(ctx context.Context) (bool, error) {
	slot, err := r.MostRecentSlot(ctx)
	if err != nil {
		return false, err
	}
	return slot != 0, nil
}

// Backup round trip

func (r *RedisStore) ExportSave(ctx context.Context, slot int) ([]byte, error) {
	sg, err := r.LoadGame(ctx, slot)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrEmptySlot)
	}
	data, err := json.MarshalIndent(sg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save export: %w", err)
	}
	return data, nil
}

func (r *RedisStore) ImportSave(ctx context.Context, slot int, data []byte) (*SavedGame, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	var sg SavedGame
	if err := json.Unmarshal(data, &sg); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	if err := sg.Validate(); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	sg.GameState.Normalize()
	// Re-stamp: the imported file may come from any slot at any time.
	return r.writeEnvelope(ctx, r.slotKey(slot), NewSavedGame(slot, sg.GameState))
}

// Auto-save slot

func (r *RedisStore) AutoSave(ctx context.Context, gs *state.GameState) (*SavedGame, error) {
	return r.writeEnvelope(ctx, r.autoKey(), NewSavedGame(AutoSaveSlot, gs))
}

func (r *RedisStore) LoadAutoSave(ctx context.Context) (*SavedGame, error) {
	return r.readEnvelope(ctx, r.autoKey(), AutoSaveSlot)
}

func (r *RedisStore) HasAutoSave(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.autoKey()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check auto-save: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) DeleteAutoSave(ctx context.Context) error {
	if err := r.client.Del(ctx, r.autoKey()).Err(); err != nil {
		r.logger.Error("Failed to delete auto-save", "error", err)
		return fmt.Errorf("failed to delete auto-save: %w", err)
	}
	return nil
}

// Settings

func (r *RedisStore) Settings(ctx context.Context) (*Settings, error) {
	data, err := r.client.Get(ctx, r.settingsKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		r.logger.Warn("Unparsable settings, using defaults", "error", err)
		return DefaultSettings(), nil
	}
	return &settings, nil
}

func (r *RedisStore) SaveSettings(ctx context.Context, settings *Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := r.client.Set(ctx, r.settingsKey(), string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save settings", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// envelope helpers

func (r *RedisStore) writeEnvelope(ctx context.Context, key string, sg *SavedGame) (*SavedGame, error) {
	data, err := json.Marshal(sg)
	if err != nil {
		r.logger.Error("Failed to marshal save", "key", key, "error", err)
		return nil, fmt.Errorf("failed to marshal save: %w", err)
	}
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to write save", "key", key, "error", err)
		return nil, fmt.Errorf("failed to write save: %w", err)
	}
	r.logger.Debug("Save written", "key", key, "scene", sg.Metadata.CurrentScene)
	return sg, nil
}

// readEnvelope returns nil for an empty slot and a *CorruptSaveError
// for data that exists but cannot be used.
func (r *RedisStore) readEnvelope(ctx context.Context, key string, slot int) (*SavedGame, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to read save", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read save: %w", err)
	}

	var sg SavedGame
	if err := json.Unmarshal([]byte(data), &sg); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	if err := sg.Validate(); err != nil {
		return nil, &CorruptSaveError{Slot: slot, Err: err}
	}
	sg.GameState.Normalize()
	return &sg, nil
}

// readMetadata decodes only the metadata key of the envelope. Errors
// are logged and swallowed so one corrupt slot never blocks the list.
func (r *RedisStore) readMetadata(ctx context.Context, key string, slot int) *SaveSlotMetadata {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Failed to read slot metadata", "slot", slot, "error", err)
		}
		return nil
	}

	var probe struct {
		Metadata *SaveSlotMetadata `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		r.logger.Warn("Corrupt slot metadata skipped", "slot", slot, "error", err)
		return nil
	}
	return probe.Metadata
}
