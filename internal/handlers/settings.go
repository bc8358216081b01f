package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jmallory/narrative-engine/internal/autosave"
	"github.com/jmallory/narrative-engine/internal/storage"
)

type SettingsHandler struct {
	saves  storage.SaveStore
	saver  *autosave.Saver
	logger *slog.Logger
}

func NewSettingsHandler(saves storage.SaveStore, saver *autosave.Saver, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		saves:  saves,
		saver:  saver,
		logger: logger,
	}
}

// ServeHTTP handles player preferences.
// Routes:
// GET /v1/settings - Read settings (defaults when none stored)
// PUT /v1/settings - Replace settings
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		settings, err := h.saves.Settings(r.Context())
		if err != nil {
			h.logger.Error("Failed to load settings", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, settings)

	case http.MethodPut:
		var settings storage.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			h.logger.Warn("Invalid JSON in settings request", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}

		if err := h.saves.SaveSettings(r.Context(), &settings); err != nil {
			h.logger.Error("Failed to save settings", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save settings")
			return
		}

		// The debounce scheduler tracks the autosave toggle directly.
		if h.saver != nil {
			h.saver.SetEnabled(settings.AutosaveEnabled)
		}

		h.logger.Info("Settings updated", "autosave", settings.AutosaveEnabled, "hide_locked", settings.HideLockedChoices)
		writeJSON(w, h.logger, http.StatusOK, &settings)

	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PUT")
	}
}
