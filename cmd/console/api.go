package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jmallory/narrative-engine/internal/storage"
	"github.com/jmallory/narrative-engine/pkg/engine"
	"github.com/jmallory/narrative-engine/pkg/scene"
	"github.com/jmallory/narrative-engine/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// GameView mirrors the API's game response.
type GameView struct {
	Scene       *scene.Scene                `json:"scene"`
	Choices     []engine.ChoiceAvailability `json:"choices"`
	CanGoBack   bool                        `json:"canGoBack"`
	CanContinue bool                        `json:"canContinue"`
	GameState   *state.GameState            `json:"gameState"`
}

// SaveList mirrors the API's slot-list response.
type SaveList struct {
	Slots          []*storage.SaveSlotMetadata `json:"slots"`
	MostRecentSlot int                         `json:"mostRecentSlot"`
	HasAutoSave    bool                        `json:"hasAutoSave"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// doJSON runs a request and decodes the response into out, translating
// API error bodies into errors.
func doJSON(client *http.Client, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func getGame(client *http.Client, baseURL string) (*GameView, error) {
	var view GameView
	if err := doJSON(client, http.MethodGet, baseURL+"/v1/game", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func postChoice(client *http.Client, baseURL string, index int) (*GameView, error) {
	body, err := json.Marshal(map[string]int{"choice": index})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var view GameView
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/game/choice", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func postContinue(client *http.Client, baseURL string) (*GameView, error) {
	var view GameView
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/game/continue", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func postBack(client *http.Client, baseURL string) (*GameView, error) {
	var view GameView
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/game/back", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func postReset(client *http.Client, baseURL string) (*GameView, error) {
	var view GameView
	if err := doJSON(client, http.MethodPost, baseURL+"/v1/game/reset", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func listSaves(client *http.Client, baseURL string) (*SaveList, error) {
	var list SaveList
	if err := doJSON(client, http.MethodGet, baseURL+"/v1/saves", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func saveToSlot(client *http.Client, baseURL string, slot int) (*storage.SavedGame, error) {
	var sg storage.SavedGame
	url := baseURL + "/v1/saves/" + strconv.Itoa(slot)
	if err := doJSON(client, http.MethodPut, url, nil, &sg); err != nil {
		return nil, err
	}
	return &sg, nil
}

func loadFromSlot(client *http.Client, baseURL string, slot int) error {
	url := baseURL + "/v1/saves/" + strconv.Itoa(slot) + "/load"
	return doJSON(client, http.MethodPost, url, nil, nil)
}

func deleteSlot(client *http.Client, baseURL string, slot int) error {
	url := baseURL + "/v1/saves/" + strconv.Itoa(slot)
	return doJSON(client, http.MethodDelete, url, nil, nil)
}

// exportSlot fetches the raw save file for a slot.
func exportSlot(client *http.Client, baseURL string, slot int) ([]byte, error) {
	url := baseURL + "/v1/saves/" + strconv.Itoa(slot) + "/export"
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}
	return data, nil
}
