package scene

// SceneType categorizes a scene for presentation purposes.
// The engine treats all types identically except endings, which are
// allowed to have neither choices nor a next scene.
type SceneType string

const (
	TypeNarrative     SceneType = "narrative"
	TypeChoice        SceneType = "choice"
	TypeInvestigation SceneType = "investigation"
	TypeDialogue      SceneType = "dialogue"
	TypeEnding        SceneType = "ending"
)

// Content is the authored text of a scene, with optional speaker
// attribution and a visual tag for the presentation layer.
type Content struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
	Visual  string `json:"visual,omitempty"`
}

// Scene is one node of authored story content. Scene IDs follow the
// <Act>-<Chapter>-<Seq> pattern, e.g. "A-1-015". Scenes are immutable
// after load; the content store owns them.
type Scene struct {
	ID           string        `json:"id"`
	Type         SceneType     `json:"type"`
	Content      Content       `json:"content"`
	Choices      []Choice      `json:"choices,omitempty"`
	NextScene    string        `json:"nextScene,omitempty"` // auto-continue target when Choices is empty
	Requirements *Requirements `json:"requirements,omitempty"`

	FlagChanges         *FlagChanges        `json:"flagChanges,omitempty"`
	ItemChanges         *ItemChanges        `json:"itemChanges,omitempty"`
	RelationshipChanges RelationshipChanges `json:"relationshipChanges,omitempty"`
	EvidenceChanges     *EvidenceChanges    `json:"evidenceChanges,omitempty"`
}

// Choice is a selectable option within a scene. Unlike a scene's
// NextScene, a choice's NextScene is mandatory. Choice order matters for
// display and numbering, not for delta logic.
type Choice struct {
	Text         string        `json:"text"`
	NextScene    string        `json:"nextScene"`
	Requirements *Requirements `json:"requirements,omitempty"`

	FlagChanges         *FlagChanges        `json:"flagChanges,omitempty"`
	ItemChanges         *ItemChanges        `json:"itemChanges,omitempty"`
	RelationshipChanges RelationshipChanges `json:"relationshipChanges,omitempty"`
	EvidenceChanges     *EvidenceChanges    `json:"evidenceChanges,omitempty"`
}

// FlagChanges describes story flags to raise or clear. Unset is applied
// before Set, so an id listed in both ends up set.
type FlagChanges struct {
	Set   []string `json:"set,omitempty"`
	Unset []string `json:"unset,omitempty"`
}

// ItemChanges describes inventory mutations. Remove is applied before
// Add, and adds are deduplicated.
type ItemChanges struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// EvidenceChanges describes evidence-journal mutations, following the
// same remove-then-add pattern as ItemChanges.
type EvidenceChanges struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// RelationshipChanges maps character id to an additive score delta.
// Deltas are applied on top of the current score and clamped; they are
// not absolute values.
type RelationshipChanges map[string]int

// Document is the top-level shape of a scene content source file.
type Document struct {
	Scenes []Scene `json:"scenes"`
}

// HasChoices reports whether the scene presents any choices at all,
// before requirement filtering.
func (s *Scene) HasChoices() bool {
	return len(s.Choices) > 0
}

// IsTerminal reports whether the scene has no way forward: no choices
// and no auto-continue target. Expected for endings; an anomaly worth
// reporting for anything else.
func (s *Scene) IsTerminal() bool {
	return len(s.Choices) == 0 && s.NextScene == ""
}
