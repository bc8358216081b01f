package runner

import (
	"time"
)

// Step actions understood by the runner.
const (
	ActionView     = "view"
	ActionChoice   = "choice"
	ActionContinue = "continue"
	ActionBack     = "back"
	ActionReset    = "reset"
	ActionSave     = "save"
	ActionLoad     = "load"
	ActionDelete   = "delete"
)

// TestSuite defines a complete integration test scenario.
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps"`
}

// TestStep defines a single interaction against the API and its
// expected outcomes.
type TestStep struct {
	Name   string `json:"name,omitempty"`
	Action string `json:"action"`
	Choice *int   `json:"choice,omitempty"` // for action "choice"
	Slot   *int   `json:"slot,omitempty"`   // for save/load/delete

	// ExpectError marks steps that should be rejected by the API,
	// e.g. picking a locked choice.
	ExpectError bool `json:"expect_error,omitempty"`

	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes. All fields
// are optional; empty means "don't check".
type Expectations struct {
	Scene       *string  `json:"scene,omitempty"`
	CanContinue *bool    `json:"can_continue,omitempty"`
	CanGoBack   *bool    `json:"can_go_back,omitempty"`
	Path        *string  `json:"path,omitempty"`
	Inventory   []string `json:"inventory,omitempty"` // order independent, exact contents
	HasItems    []string `json:"has_items,omitempty"`
	HasFlags    []string `json:"has_flags,omitempty"`
	HasEvidence []string `json:"has_evidence,omitempty"`

	Relationships map[string]int `json:"relationships,omitempty"`

	ChoicesMade   *int `json:"choices_made,omitempty"`
	ScenesVisited *int `json:"scenes_visited,omitempty"`

	SceneTextContains []string `json:"scene_text_contains,omitempty"`
}

// TestResult contains the outcome of running a test step.
type TestResult struct {
	SuiteName string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
}

// TestJob represents a test suite to be executed.
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite.
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
}
