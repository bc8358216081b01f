// Package content loads and indexes the static story graph plus the
// character and item reference data that accompany it.
package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmallory/narrative-engine/pkg/reference"
	"github.com/jmallory/narrative-engine/pkg/scene"
)

// SceneNotFoundError reports a scene id absent from the index. Lookups
// never silently default to another scene: a wrong scene would corrupt
// the story graph, so callers must handle this explicitly.
type SceneNotFoundError struct {
	ID string
}

func (e *SceneNotFoundError) Error() string {
	return "scene not found: " + e.ID
}

// DefaultSources is the canonical load order of the content files under
// <dataDir>/scenes. Order matters: when two sources carry the same
// scene id, the earlier source wins.
var DefaultSources = []string{
	"prologue.json",
	"path_a.json",
	"path_b.json",
	"path_c.json",
	"endings.json",
}

// Store merges ordered JSON content sources into one id->Scene index.
// The index is built lazily on first access and cached; Reload forces a
// rebuild for content hot-reload during development.
type Store struct {
	dataDir string
	sources []string
	logger  *slog.Logger

	mu         sync.Mutex
	loaded     bool
	index      map[string]*scene.Scene
	characters map[string]*reference.Character
	items      map[string]*reference.Item
}

// NewStore creates a content store over dataDir. sources is the ordered
// list of scene files under <dataDir>/scenes; nil means DefaultSources.
func NewStore(dataDir string, sources []string, logger *slog.Logger) *Store {
	if sources == nil {
		sources = DefaultSources
	}
	return &Store{
		dataDir: dataDir,
		sources: sources,
		logger:  logger,
	}
}

// Scene returns the scene for id, or a *SceneNotFoundError.
func (s *Store) Scene(id string) (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	sc, ok := s.index[id]
	if !ok {
		return nil, &SceneNotFoundError{ID: id}
	}
	return sc, nil
}

// Exists is the non-throwing existence check.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// SceneIDs returns every indexed scene id, in no particular order.
func (s *Store) SceneIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil
	}
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	return ids
}

// Character returns a character reference record, or nil when unknown.
func (s *Store) Character(id string) *reference.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil
	}
	return s.characters[id]
}

// Item returns an item reference record, or nil when unknown.
func (s *Store) Item(id string) *reference.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil
	}
	return s.items[id]
}

// Reload discards the cached index and rebuilds it from disk.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.index = nil
	s.characters = nil
	s.items = nil
	return s.ensureLoaded()
}

// ensureLoaded builds the index once. Caller holds the lock.
func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	index := make(map[string]*scene.Scene)
	for _, source := range s.sources {
		path := filepath.Join(s.dataDir, "scenes", source)
		doc, err := readSceneDocument(path)
		if err != nil {
			return fmt.Errorf("failed to load content source %s: %w", source, err)
		}
		for i := range doc.Scenes {
			sc := &doc.Scenes[i]
			if existing, ok := index[sc.ID]; ok {
				// First writer wins: earlier sources are canonical for
				// overlapping ids. Warn so shadowed duplicates don't
				// silently mask content bugs.
				if s.logger != nil {
					s.logger.Warn("Duplicate scene id ignored",
						"id", sc.ID,
						"source", source,
						"kept_type", existing.Type)
				}
				continue
			}
			index[sc.ID] = sc
		}
	}

	characters, err := readCharacters(filepath.Join(s.dataDir, "characters.json"))
	if err != nil {
		return err
	}
	items, err := readItems(filepath.Join(s.dataDir, "items.json"))
	if err != nil {
		return err
	}

	s.index = index
	s.characters = characters
	s.items = items
	s.loaded = true

	if s.logger != nil {
		s.logger.Info("Content loaded",
			"scenes", len(index),
			"characters", len(characters),
			"items", len(items),
			"sources", len(s.sources))
	}
	return nil
}

func readSceneDocument(path string) (*scene.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	var doc scene.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene file: %w", err)
	}
	return &doc, nil
}

// readCharacters loads the character reference records, keyed by id.
// A missing file is not an error: content packs without reference data
// just get empty lookups.
func readCharacters(path string) (map[string]*reference.Character, error) {
	characters := make(map[string]*reference.Character)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return characters, nil
		}
		return nil, fmt.Errorf("failed to read characters file: %w", err)
	}
	if err := json.Unmarshal(data, &characters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal characters file: %w", err)
	}
	for id, c := range characters {
		c.ID = id // the map key is canonical
	}
	return characters, nil
}

func readItems(path string) (map[string]*reference.Item, error) {
	items := make(map[string]*reference.Item)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items file: %w", err)
	}
	for id, it := range items {
		it.ID = id
	}
	return items, nil
}
