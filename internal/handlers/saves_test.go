package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/narrative-engine/internal/storage"
	"github.com/jmallory/narrative-engine/pkg/state"
)

func newSavesHandler(t *testing.T) (*SavesHandler, *storage.MockStore, *state.Store) {
	t.Helper()
	saves := storage.NewMockStore()
	store := state.NewStore()
	return NewSavesHandler(saves, store, testLogger()), saves, store
}

func TestSavesHandler_SaveAndList(t *testing.T) {
	h, _, store := newSavesHandler(t)
	store.GoToScene("A-2-014", true)

	req := httptest.NewRequest(http.MethodPut, "/v1/saves/2", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var sg storage.SavedGame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sg))
	assert.Equal(t, 2, sg.Metadata.Slot)
	assert.Equal(t, "A-2-014", sg.Metadata.CurrentScene)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list SaveListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list.Slots, 3)
	assert.Nil(t, list.Slots[0])
	require.NotNil(t, list.Slots[1])
	assert.Equal(t, "A-2-014", list.Slots[1].CurrentScene)
	assert.Nil(t, list.Slots[2])
	assert.Equal(t, 2, list.MostRecentSlot)
	assert.False(t, list.HasAutoSave)
}

func TestSavesHandler_LoadRestoresLiveGame(t *testing.T) {
	h, _, store := newSavesHandler(t)
	store.GoToScene("A-2-014", true)
	store.AddItem("cell_key")

	req := httptest.NewRequest(http.MethodPut, "/v1/saves/1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Play on, then load the earlier save back.
	store.GoToScene("A-3-001", true)
	store.RemoveItem("cell_key")

	req = httptest.NewRequest(http.MethodPost, "/v1/saves/1/load", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp LoadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Slot)
	assert.Equal(t, "A-2-014", resp.GameState.CurrentScene)

	assert.Equal(t, "A-2-014", store.CurrentScene())
	assert.True(t, store.HasItem("cell_key"))
}

func TestSavesHandler_ReadAndDelete(t *testing.T) {
	h, _, _ := newSavesHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/saves/1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, "empty slot")

	req = httptest.NewRequest(http.MethodPut, "/v1/saves/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/saves/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSavesHandler_InvalidSlot(t *testing.T) {
	h, _, _ := newSavesHandler(t)

	for _, path := range []string{"/v1/saves/0", "/v1/saves/4", "/v1/saves/99"} {
		req := httptest.NewRequest(http.MethodPut, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodPut, "/v1/saves/first", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavesHandler_CorruptSlot(t *testing.T) {
	h, saves, _ := newSavesHandler(t)
	saves.InjectRaw(3, []byte("not a save"))

	req := httptest.NewRequest(http.MethodPost, "/v1/saves/3/load", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// The corrupt slot must not break the listing.
	req = httptest.NewRequest(http.MethodGet, "/v1/saves", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list SaveListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Nil(t, list.Slots[2])
}

func TestSavesHandler_ExportImport(t *testing.T) {
	h, _, store := newSavesHandler(t)
	store.GoToScene("B-2-007", true)

	req := httptest.NewRequest(http.MethodPut, "/v1/saves/1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves/1/export", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "save-slot-1.json")
	exported := w.Body.Bytes()

	req = httptest.NewRequest(http.MethodPost, "/v1/saves/3/import", bytes.NewReader(exported))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var sg storage.SavedGame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sg))
	assert.Equal(t, 3, sg.Metadata.Slot)
	assert.Equal(t, "B-2-007", sg.GameState.CurrentScene)
}

func TestSavesHandler_ExportEmptySlot(t *testing.T) {
	h, _, _ := newSavesHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/saves/2/export", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSavesHandler_ImportGarbage(t *testing.T) {
	h, _, _ := newSavesHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/saves/1/import", bytes.NewReader([]byte("junk")))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSavesHandler_AutoSaveRoutes(t *testing.T) {
	h, saves, store := newSavesHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/saves/auto", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	gs := state.NewGameState()
	gs.CurrentScene = "C-1-003"
	_, err := saves.AutoSave(context.Background(), gs)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves/auto", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/saves/auto/load", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C-1-003", store.CurrentScene())

	req = httptest.NewRequest(http.MethodDelete, "/v1/saves/auto", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/saves/auto", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSavesHandler_MethodNotAllowed(t *testing.T) {
	h, _, _ := newSavesHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/saves", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest(http.MethodPatch, "/v1/saves/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
