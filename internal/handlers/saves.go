package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmallory/narrative-engine/internal/storage"
	"github.com/jmallory/narrative-engine/pkg/state"
)

// maxImportSize bounds the import body. A legitimate save is a few KB;
// anything near this limit is not a save.
const maxImportSize = 1 << 20

// SaveListResponse is the slot-picker payload. Empty slots appear as
// null entries so the client renders all three positions.
type SaveListResponse struct {
	Slots          []*storage.SaveSlotMetadata `json:"slots"`
	MostRecentSlot int                         `json:"mostRecentSlot"`
	HasAutoSave    bool                        `json:"hasAutoSave"`
}

// LoadResponse confirms a save was restored into the live game.
type LoadResponse struct {
	Slot      int              `json:"slot"`
	GameState *state.GameState `json:"gameState"`
}

type SavesHandler struct {
	saves  storage.SaveStore
	store  *state.Store
	logger *slog.Logger
}

func NewSavesHandler(saves storage.SaveStore, store *state.Store, logger *slog.Logger) *SavesHandler {
	return &SavesHandler{
		saves:  saves,
		store:  store,
		logger: logger,
	}
}

// ServeHTTP handles the save-slot routes.
// Routes:
// GET /v1/saves                    - Metadata for all manual slots
// PUT /v1/saves/{slot}             - Write the live game into a slot
// GET /v1/saves/{slot}             - Read a slot's full envelope
// DELETE /v1/saves/{slot}          - Clear a slot
// POST /v1/saves/{slot}/load       - Restore a slot into the live game
// GET /v1/saves/{slot}/export      - Download a slot as a JSON file
// POST /v1/saves/{slot}/import     - Upload a JSON file into a slot
// GET /v1/saves/auto               - Read the auto-save envelope
// POST /v1/saves/auto/load         - Restore the auto-save
// DELETE /v1/saves/auto            - Clear the auto-save
func (h *SavesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/saves"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		h.handleList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	if parts[0] == "auto" {
		h.serveAuto(w, r, action)
		return
	}

	slot, err := strconv.Atoi(parts[0])
	if err != nil {
		h.logger.Warn("Invalid save slot", "slot", parts[0])
		writeError(w, h.logger, http.StatusBadRequest, "Invalid save slot")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodPut:
		h.handleSave(w, r, slot)
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, slot)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, slot)
	case action == "load" && r.Method == http.MethodPost:
		h.handleLoad(w, r, slot)
	case action == "export" && r.Method == http.MethodGet:
		h.handleExport(w, r, slot)
	case action == "import" && r.Method == http.MethodPost:
		h.handleImport(w, r, slot)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SavesHandler) serveAuto(w http.ResponseWriter, r *http.Request, action string) {
	switch {
	case action == "" && r.Method == http.MethodGet:
		sg, err := h.saves.LoadAutoSave(r.Context())
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		if sg == nil {
			writeError(w, h.logger, http.StatusNotFound, "No auto-save")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, sg)

	case action == "load" && r.Method == http.MethodPost:
		sg, err := h.saves.LoadAutoSave(r.Context())
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		if sg == nil {
			writeError(w, h.logger, http.StatusNotFound, "No auto-save")
			return
		}
		h.store.Restore(sg.GameState)
		h.logger.Info("Auto-save restored", "scene", sg.GameState.CurrentScene)
		writeJSON(w, h.logger, http.StatusOK, LoadResponse{Slot: storage.AutoSaveSlot, GameState: h.store.Snapshot()})

	case action == "" && r.Method == http.MethodDelete:
		if err := h.saves.DeleteAutoSave(r.Context()); err != nil {
			h.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SavesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	slots, err := h.saves.AllSlots(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	recent, err := h.saves.MostRecentSlot(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	hasAuto, err := h.saves.HasAutoSave(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SaveListResponse{
		Slots:          slots,
		MostRecentSlot: recent,
		HasAutoSave:    hasAuto,
	})
}

func (h *SavesHandler) handleSave(w http.ResponseWriter, r *http.Request, slot int) {
	sg, err := h.saves.SaveGame(r.Context(), slot, h.store.Snapshot())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("Game saved", "slot", slot, "scene", sg.Metadata.CurrentScene)
	writeJSON(w, h.logger, http.StatusOK, sg)
}

func (h *SavesHandler) handleRead(w http.ResponseWriter, r *http.Request, slot int) {
	sg, err := h.saves.LoadGame(r.Context(), slot)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if sg == nil {
		writeError(w, h.logger, http.StatusNotFound, "Save slot is empty")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sg)
}

func (h *SavesHandler) handleDelete(w http.ResponseWriter, r *http.Request, slot int) {
	if err := h.saves.DeleteSave(r.Context(), slot); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("Save deleted", "slot", slot)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SavesHandler) handleLoad(w http.ResponseWriter, r *http.Request, slot int) {
	sg, err := h.saves.LoadGame(r.Context(), slot)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if sg == nil {
		writeError(w, h.logger, http.StatusNotFound, "Save slot is empty")
		return
	}

	h.store.Restore(sg.GameState)
	h.logger.Info("Game loaded", "slot", slot, "scene", sg.GameState.CurrentScene)
	writeJSON(w, h.logger, http.StatusOK, LoadResponse{Slot: slot, GameState: h.store.Snapshot()})
}

func (h *SavesHandler) handleExport(w http.ResponseWriter, r *http.Request, slot int) {
	data, err := h.saves.ExportSave(r.Context(), slot)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\"save-slot-"+strconv.Itoa(slot)+".json\"")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", "error", err)
	}
}

func (h *SavesHandler) handleImport(w http.ResponseWriter, r *http.Request, slot int) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		h.logger.Warn("Failed to read import body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read request body")
		return
	}

	sg, err := h.saves.ImportSave(r.Context(), slot, data)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("Save imported", "slot", slot, "scene", sg.Metadata.CurrentScene)
	writeJSON(w, h.logger, http.StatusCreated, sg)
}

// writeStoreError maps persistence failures to HTTP statuses: bad slot
// numbers and corrupt data are client errors, everything else is a 500.
func (h *SavesHandler) writeStoreError(w http.ResponseWriter, err error) {
	var invalidSlot *storage.InvalidSlotError
	if errors.As(err, &invalidSlot) {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, storage.ErrEmptySlot) {
		writeError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	var corrupt *storage.CorruptSaveError
	if errors.As(err, &corrupt) {
		h.logger.Warn("Corrupt save data", "slot", corrupt.Slot, "error", corrupt.Err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.logger.Error("Save storage failure", "error", err)
	writeError(w, h.logger, http.StatusInternalServerError, "Save storage failure")
}
