package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmallory/narrative-engine/internal/autosave"
	"github.com/jmallory/narrative-engine/internal/content"
	"github.com/jmallory/narrative-engine/pkg/engine"
	"github.com/jmallory/narrative-engine/pkg/scene"
	"github.com/jmallory/narrative-engine/pkg/state"
)

// GameResponse is the full picture a client needs to render the
// current moment: the scene, each choice with its availability, and a
// state snapshot.
type GameResponse struct {
	Scene       *scene.Scene                `json:"scene"`
	Choices     []engine.ChoiceAvailability `json:"choices"`
	CanGoBack   bool                        `json:"canGoBack"`
	CanContinue bool                        `json:"canContinue"`
	GameState   *state.GameState            `json:"gameState"`
}

// ChoiceRequest selects a choice by its position in the scene's list.
type ChoiceRequest struct {
	Choice int `json:"choice"`
}

// TransitionResponse reports a completed transition plus the refreshed
// view of the new scene.
type TransitionResponse struct {
	Scene       *scene.Scene                `json:"scene"`
	Changes     *engine.StateChanges        `json:"changes,omitempty"`
	Choices     []engine.ChoiceAvailability `json:"choices"`
	CanGoBack   bool                        `json:"canGoBack"`
	CanContinue bool                        `json:"canContinue"`
	GameState   *state.GameState            `json:"gameState"`
}

type GameHandler struct {
	engine *engine.Engine
	saver  *autosave.Saver
	logger *slog.Logger
}

func NewGameHandler(eng *engine.Engine, saver *autosave.Saver, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		engine: eng,
		saver:  saver,
		logger: logger,
	}
}

// ServeHTTP handles the live-game routes.
// Routes:
// GET /v1/game            - Current scene, choices, and state
// POST /v1/game/choice    - Select a choice by index
// POST /v1/game/continue  - Follow the scene's auto-continue target
// POST /v1/game/back      - Pop one scene off the history stack
// POST /v1/game/reset     - Discard the playthrough
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/game"), "/")

	switch {
	case r.Method == http.MethodGet && action == "":
		h.handleView(w)
	case r.Method == http.MethodPost && action == "choice":
		h.handleChoice(w, r)
	case r.Method == http.MethodPost && action == "continue":
		h.handleContinue(w)
	case r.Method == http.MethodPost && action == "back":
		h.handleBack(w)
	case r.Method == http.MethodPost && action == "reset":
		h.handleReset(w)
	default:
		h.logger.Warn("Unknown game route", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *GameHandler) handleView(w http.ResponseWriter) {
	sc, err := h.engine.CurrentScene()
	if err != nil {
		h.writeSceneError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.view(sc))
}

func (h *GameHandler) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in choice request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	result, err := h.engine.Choose(req.Choice)
	if err != nil {
		var unavailable *engine.ChoiceUnavailableError
		if errors.As(err, &unavailable) {
			writeError(w, h.logger, http.StatusUnprocessableEntity, unavailable.Reason)
			return
		}
		h.writeSceneError(w, err)
		return
	}

	h.notifyAutoSave()
	writeJSON(w, h.logger, http.StatusOK, h.transition(result))
}

func (h *GameHandler) handleContinue(w http.ResponseWriter) {
	result, err := h.engine.Continue()
	if err != nil {
		var terminal *engine.NoNextSceneError
		if errors.As(err, &terminal) {
			writeError(w, h.logger, http.StatusConflict, terminal.Error())
			return
		}
		h.writeSceneError(w, err)
		return
	}

	h.notifyAutoSave()
	writeJSON(w, h.logger, http.StatusOK, h.transition(result))
}

func (h *GameHandler) handleBack(w http.ResponseWriter) {
	store := h.engine.Store()
	if _, ok := store.GoBack(); !ok {
		writeError(w, h.logger, http.StatusConflict, "No scene history to go back to")
		return
	}

	sc, err := h.engine.CurrentScene()
	if err != nil {
		h.writeSceneError(w, err)
		return
	}

	h.notifyAutoSave()
	writeJSON(w, h.logger, http.StatusOK, h.view(sc))
}

func (h *GameHandler) handleReset(w http.ResponseWriter) {
	h.engine.Store().Reset()
	h.logger.Info("Playthrough reset")

	sc, err := h.engine.CurrentScene()
	if err != nil {
		h.writeSceneError(w, err)
		return
	}

	h.notifyAutoSave()
	writeJSON(w, h.logger, http.StatusOK, h.view(sc))
}

// view assembles the standard GET response for a scene.
func (h *GameHandler) view(sc *scene.Scene) GameResponse {
	store := h.engine.Store()
	return GameResponse{
		Scene:       sc,
		Choices:     h.engine.ChoicesWithAvailability(sc),
		CanGoBack:   store.CanGoBack(),
		CanContinue: sc.NextScene != "",
		GameState:   store.Snapshot(),
	}
}

func (h *GameHandler) transition(result *engine.Result) TransitionResponse {
	v := h.view(result.Scene)
	return TransitionResponse{
		Scene:       result.Scene,
		Changes:     result.Changes,
		Choices:     v.Choices,
		CanGoBack:   v.CanGoBack,
		CanContinue: v.CanContinue,
		GameState:   v.GameState,
	}
}

// writeSceneError maps content-store failures: a missing scene is 404,
// anything else is a 500.
func (h *GameHandler) writeSceneError(w http.ResponseWriter, err error) {
	var notFound *content.SceneNotFoundError
	if errors.As(err, &notFound) {
		h.logger.Warn("Scene not found", "scene", notFound.ID)
		writeError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("Scene lookup failed", "error", err)
	writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scene")
}

func (h *GameHandler) notifyAutoSave() {
	if h.saver != nil {
		h.saver.Notify(h.engine.Store().Snapshot())
	}
}
