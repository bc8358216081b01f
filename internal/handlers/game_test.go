package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/narrative-engine/internal/content"
	"github.com/jmallory/narrative-engine/pkg/engine"
	"github.com/jmallory/narrative-engine/pkg/scene"
	"github.com/jmallory/narrative-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeScenes serves scenes from a map, reporting missing ids the same
// way the content store does.
type fakeScenes map[string]*scene.Scene

func (f fakeScenes) Scene(id string) (*scene.Scene, error) {
	sc, ok := f[id]
	if !ok {
		return nil, &content.SceneNotFoundError{ID: id}
	}
	return sc, nil
}

func testScenes() fakeScenes {
	return fakeScenes{
		"X-0-001": {
			ID:        "X-0-001",
			Type:      scene.TypeNarrative,
			Content:   scene.Content{Text: "You wake on a stone floor."},
			NextScene: "X-0-002",
			ItemChanges: &scene.ItemChanges{
				Add: []string{"rations"},
			},
		},
		"X-0-002": {
			ID:      "X-0-002",
			Type:    scene.TypeChoice,
			Content: scene.Content{Text: "The corridor splits."},
			Choices: []scene.Choice{
				{
					Text:      "Take the left passage",
					NextScene: "A-1-001",
				},
				{
					Text:         "Unlock the iron door",
					NextScene:    "B-1-001",
					Requirements: &scene.Requirements{Items: []string{"cell_key"}},
				},
			},
		},
		"A-1-001": {
			ID:      "A-1-001",
			Type:    scene.TypeEnding,
			Content: scene.Content{Text: "You slip into the dark."},
		},
		"B-1-001": {
			ID:      "B-1-001",
			Type:    scene.TypeNarrative,
			Content: scene.Content{Text: "The door swings open."},
		},
	}
}

func newGameHandler(t *testing.T) (*GameHandler, *state.Store) {
	t.Helper()
	store := state.NewStore()
	eng := engine.New(testScenes(), store, testLogger())
	return NewGameHandler(eng, nil, testLogger()), store
}

func TestGameHandler_View(t *testing.T) {
	h, _ := newGameHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/game", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "X-0-001", resp.Scene.ID)
	assert.True(t, resp.CanContinue)
	assert.False(t, resp.CanGoBack)
	require.NotNil(t, resp.GameState)
	assert.Equal(t, "X-0-001", resp.GameState.CurrentScene)
}

func TestGameHandler_Continue(t *testing.T) {
	h, store := newGameHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/continue", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp TransitionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "X-0-002", resp.Scene.ID)
	assert.Len(t, resp.Choices, 2)
	assert.True(t, resp.CanGoBack)

	// Leaving X-0-001 applied its item delta.
	assert.True(t, store.HasItem("rations"))
}

func TestGameHandler_ContinueOnTerminalScene(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("A-1-001", false)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/continue", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGameHandler_Choice(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("X-0-002", false)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/choice", strings.NewReader(`{"choice":0}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp TransitionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "A-1-001", resp.Scene.ID)
	assert.Equal(t, 1, store.Stats().ChoicesMade)
}

func TestGameHandler_LockedChoice(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("X-0-002", false)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/choice", strings.NewReader(`{"choice":1}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "cell_key")

	// The failed attempt left the game where it was.
	assert.Equal(t, "X-0-002", store.CurrentScene())
	assert.Equal(t, 0, store.Stats().ChoicesMade)
}

func TestGameHandler_ChoiceBadIndex(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("X-0-002", false)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/choice", strings.NewReader(`{"choice":7}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGameHandler_ChoiceBadJSON(t *testing.T) {
	h, _ := newGameHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/choice", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameHandler_Back(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("X-0-002", true)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/back", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GameResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "X-0-001", resp.Scene.ID)
	assert.False(t, resp.CanGoBack)
}

func TestGameHandler_BackWithoutHistory(t *testing.T) {
	h, _ := newGameHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/game/back", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGameHandler_Reset(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("X-0-002", true)
	store.AddItem("cell_key")
	oldID := store.Snapshot().ID

	req := httptest.NewRequest(http.MethodPost, "/v1/game/reset", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "X-0-001", store.CurrentScene())
	assert.False(t, store.HasItem("cell_key"))
	assert.NotEqual(t, oldID, store.Snapshot().ID, "reset starts a new playthrough")
}

func TestGameHandler_MissingScene(t *testing.T) {
	h, store := newGameHandler(t)
	store.GoToScene("Z-9-999", false)

	req := httptest.NewRequest(http.MethodGet, "/v1/game", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGameHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newGameHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/game", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
