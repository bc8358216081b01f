package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmallory/narrative-engine/pkg/engine"
	"github.com/jmallory/narrative-engine/pkg/scene"
	"github.com/jmallory/narrative-engine/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running narrative-engine
// API.
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// gameView mirrors the API's game response shape.
type gameView struct {
	Scene       *scene.Scene                `json:"scene"`
	Choices     []engine.ChoiceAvailability `json:"choices"`
	CanGoBack   bool                        `json:"canGoBack"`
	CanContinue bool                        `json:"canContinue"`
	GameState   *state.GameState            `json:"gameState"`
}

// RunSuite executes a complete test suite against a freshly reset game.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	// Every suite starts from a fresh playthrough.
	if _, err := r.do(ctx, http.MethodPost, "/v1/game/reset", nil); err != nil {
		result.Error = fmt.Errorf("failed to reset game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		stepName := step.Name
		if stepName == "" {
			stepName = fmt.Sprintf("step %d (%s)", i+1, step.Action)
		}

		stepResult := r.runStep(ctx, suite.Name, stepName, step)
		result.Results = append(result.Results, stepResult)

		if !stepResult.Success {
			r.logf("  FAIL %s: %v", stepName, stepResult.Error)
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		} else {
			r.logf("  ok   %s", stepName)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, suiteName, stepName string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{
		SuiteName: suiteName,
		StepName:  stepName,
	}

	view, err := r.execute(ctx, step)
	if step.ExpectError {
		if err == nil {
			result.Error = fmt.Errorf("expected the API to reject this step, but it succeeded")
			result.Duration = time.Since(start)
			return result
		}
		// Rejection confirmed; check expectations against the
		// untouched game.
		view, err = r.fetchView(ctx)
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expectations, view); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) execute(ctx context.Context, step TestStep) (*gameView, error) {
	switch step.Action {
	case ActionView, "":
		return r.fetchView(ctx)
	case ActionChoice:
		if step.Choice == nil {
			return nil, fmt.Errorf("choice step is missing the 'choice' field")
		}
		body, _ := json.Marshal(map[string]int{"choice": *step.Choice})
		return r.doView(ctx, http.MethodPost, "/v1/game/choice", body)
	case ActionContinue:
		return r.doView(ctx, http.MethodPost, "/v1/game/continue", nil)
	case ActionBack:
		return r.doView(ctx, http.MethodPost, "/v1/game/back", nil)
	case ActionReset:
		return r.doView(ctx, http.MethodPost, "/v1/game/reset", nil)
	case ActionSave:
		if _, err := r.do(ctx, http.MethodPut, "/v1/saves/"+slotPath(step), nil); err != nil {
			return nil, err
		}
		return r.fetchView(ctx)
	case ActionLoad:
		if _, err := r.do(ctx, http.MethodPost, "/v1/saves/"+slotPath(step)+"/load", nil); err != nil {
			return nil, err
		}
		return r.fetchView(ctx)
	case ActionDelete:
		if _, err := r.do(ctx, http.MethodDelete, "/v1/saves/"+slotPath(step), nil); err != nil {
			return nil, err
		}
		return r.fetchView(ctx)
	default:
		return nil, fmt.Errorf("unknown action %q", step.Action)
	}
}

func slotPath(step TestStep) string {
	if step.Slot == nil {
		return "0"
	}
	return strconv.Itoa(*step.Slot)
}

func (r *Runner) fetchView(ctx context.Context) (*gameView, error) {
	return r.doView(ctx, http.MethodGet, "/v1/game", nil)
}

func (r *Runner) doView(ctx context.Context, method, path string, body []byte) (*gameView, error) {
	data, err := r.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	var view gameView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to parse game response: %w", err)
	}
	return &view, nil
}

func (r *Runner) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, r.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func checkExpectations(exp Expectations, view *gameView) error {
	gs := view.GameState
	if gs == nil {
		return fmt.Errorf("response has no gameState")
	}

	if exp.Scene != nil && gs.CurrentScene != *exp.Scene {
		return fmt.Errorf("expected scene %q, got %q", *exp.Scene, gs.CurrentScene)
	}
	if exp.CanContinue != nil && view.CanContinue != *exp.CanContinue {
		return fmt.Errorf("expected canContinue=%v, got %v", *exp.CanContinue, view.CanContinue)
	}
	if exp.CanGoBack != nil && view.CanGoBack != *exp.CanGoBack {
		return fmt.Errorf("expected canGoBack=%v, got %v", *exp.CanGoBack, view.CanGoBack)
	}
	if exp.Path != nil && string(gs.CurrentPath) != *exp.Path {
		return fmt.Errorf("expected path %q, got %q", *exp.Path, gs.CurrentPath)
	}

	if exp.Inventory != nil {
		want := slices.Clone(exp.Inventory)
		got := slices.Clone(gs.Inventory)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return fmt.Errorf("expected inventory %v, got %v", exp.Inventory, gs.Inventory)
		}
	}
	for _, item := range exp.HasItems {
		if !slices.Contains(gs.Inventory, item) {
			return fmt.Errorf("expected item %q in inventory %v", item, gs.Inventory)
		}
	}
	for _, flag := range exp.HasFlags {
		if !slices.Contains(gs.Flags, flag) {
			return fmt.Errorf("expected flag %q in %v", flag, gs.Flags)
		}
	}
	for _, ev := range exp.HasEvidence {
		if !slices.Contains(gs.Evidence, ev) {
			return fmt.Errorf("expected evidence %q in %v", ev, gs.Evidence)
		}
	}

	for id, want := range exp.Relationships {
		if got := gs.Relationships[id]; got != want {
			return fmt.Errorf("expected relationship %s=%d, got %d", id, want, got)
		}
	}

	if exp.ChoicesMade != nil && gs.Stats.ChoicesMade != *exp.ChoicesMade {
		return fmt.Errorf("expected choicesMade=%d, got %d", *exp.ChoicesMade, gs.Stats.ChoicesMade)
	}
	if exp.ScenesVisited != nil && gs.Stats.ScenesVisited != *exp.ScenesVisited {
		return fmt.Errorf("expected scenesVisited=%d, got %d", *exp.ScenesVisited, gs.Stats.ScenesVisited)
	}

	if view.Scene != nil {
		for _, substr := range exp.SceneTextContains {
			if !strings.Contains(view.Scene.Content.Text, substr) {
				return fmt.Errorf("expected scene text to contain %q", substr)
			}
		}
	} else if len(exp.SceneTextContains) > 0 {
		return fmt.Errorf("response has no scene to check text against")
	}

	return nil
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}
