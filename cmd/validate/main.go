// Command validate lints scene content before it ships: duplicate ids,
// dangling transition targets, dead-end scenes that are not endings,
// and references to unknown characters or scene id formats.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jmallory/narrative-engine/internal/content"
	"github.com/jmallory/narrative-engine/pkg/scene"
)

func main() {
	dataDir := flag.String("data", "data", "content directory")
	sources := flag.String("sources", "", "comma-separated scene files (default: the standard set)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var sourceList []string
	if *sources != "" {
		sourceList = strings.Split(*sources, ",")
	}

	store := content.NewStore(*dataDir, sourceList, logger)
	if err := store.Reload(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content: %v\n", err)
		os.Exit(1)
	}

	v := &ContentValidator{store: store}
	v.validate()

	if len(v.errors) > 0 {
		fmt.Fprintf(os.Stderr, "Validation errors:\n%s\n", strings.Join(v.errors, "\n"))
		os.Exit(1)
	}

	fmt.Printf("Content is valid: %d scenes\n", len(store.SceneIDs()))
}

type ContentValidator struct {
	store  *content.Store
	errors []string
}

// Scene ids follow <Act>-<Chapter>-<Seq>, e.g. "A-1-015" or "X-0-001".
var validSceneIDRegex = regexp.MustCompile(`^[A-Z]-[0-9]+-[0-9]{3}$`)

func (v *ContentValidator) validate() {
	ids := v.store.SceneIDs()
	sort.Strings(ids)

	for _, id := range ids {
		sc, err := v.store.Scene(id)
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", id, err))
			continue
		}
		v.validateScene(sc)
	}
}

func (v *ContentValidator) validateScene(sc *scene.Scene) {
	if !validSceneIDRegex.MatchString(sc.ID) {
		v.addError(fmt.Sprintf("scene id '%s' does not match <Act>-<Chapter>-<Seq>", sc.ID))
	}

	if sc.NextScene != "" && !v.store.Exists(sc.NextScene) {
		v.addError(fmt.Sprintf("%s: nextScene '%s' does not exist", sc.ID, sc.NextScene))
	}

	if sc.IsTerminal() && sc.Type != scene.TypeEnding {
		v.addError(fmt.Sprintf("%s: dead end (type '%s', no choices, no nextScene)", sc.ID, sc.Type))
	}

	if sc.Content.Speaker != "" && v.store.Character(sc.Content.Speaker) == nil {
		v.addError(fmt.Sprintf("%s: unknown speaker '%s'", sc.ID, sc.Content.Speaker))
	}

	v.validateCharacterRefs(sc.ID, sc.RelationshipChanges, sc.Requirements)
	v.validateItemRefs(sc.ID, sc.ItemChanges, sc.Requirements)

	for i, c := range sc.Choices {
		v.validateChoice(sc.ID, i, &c)
	}
}

func (v *ContentValidator) validateChoice(sceneID string, index int, c *scene.Choice) {
	if c.NextScene == "" {
		v.addError(fmt.Sprintf("%s: choice %d has no nextScene", sceneID, index))
	} else if !v.store.Exists(c.NextScene) {
		v.addError(fmt.Sprintf("%s: choice %d target '%s' does not exist", sceneID, index, c.NextScene))
	}

	if c.Text == "" {
		v.addError(fmt.Sprintf("%s: choice %d has no text", sceneID, index))
	}

	v.validateCharacterRefs(sceneID, c.RelationshipChanges, c.Requirements)
	v.validateItemRefs(sceneID, c.ItemChanges, c.Requirements)
}

func (v *ContentValidator) validateCharacterRefs(sceneID string, changes scene.RelationshipChanges, req *scene.Requirements) {
	check := func(id string) {
		if v.store.Character(id) == nil {
			v.addError(fmt.Sprintf("%s: unknown character '%s'", sceneID, id))
		}
	}

	for _, id := range sortedKeys(changes) {
		check(id)
	}
	if req != nil {
		for _, id := range sortedKeys(req.Relationships) {
			check(id)
		}
		for _, id := range sortedKeys(req.MaxRelationships) {
			check(id)
		}
	}
}

func (v *ContentValidator) validateItemRefs(sceneID string, changes *scene.ItemChanges, req *scene.Requirements) {
	check := func(id string) {
		if v.store.Item(id) == nil {
			v.addError(fmt.Sprintf("%s: unknown item '%s'", sceneID, id))
		}
	}

	if changes != nil {
		for _, id := range changes.Add {
			check(id)
		}
		for _, id := range changes.Remove {
			check(id)
		}
	}
	if req != nil {
		for _, id := range req.Items {
			check(id)
		}
		for _, id := range req.NotItems {
			check(id)
		}
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
