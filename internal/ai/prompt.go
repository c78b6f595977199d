package ai

import (
	"fmt"
	"strings"

	"storyforge.app/api/internal/common"
)

// BuildCreationPrompt asks for a single JSON object with name, summary and
// the kind's fields.
func BuildCreationPrompt(kind common.Kind, userPrompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a creative writing assistant helping build a story world.\n")
	fmt.Fprintf(&b, "Create one %s for a narrative project.\n", kind)
	if p := common.NormalizeSpace(userPrompt); p != "" {
		fmt.Fprintf(&b, "The author's request: %q\n", common.Truncate(p, 2000))
	}
	b.WriteString("Answer with a single JSON object and nothing else. Keys:\n")
	b.WriteString("- \"name\": a short evocative name\n")
	b.WriteString("- \"summary\": one or two sentences\n")
	for _, f := range kind.Fields() {
		fmt.Fprintf(&b, "- %q: a few sentences of free text\n", f)
	}
	b.WriteString("All values must be strings.")
	return b.String()
}

// BuildImagePrompt describes a single illustration of the creation.
func BuildImagePrompt(kind common.Kind, description string) string {
	style := map[common.Kind]string{
		common.KindCharacter:   "a character portrait, waist up, neutral background",
		common.KindEnvironment: "a wide establishing shot of the location",
		common.KindProp:        "a single object centered on a plain background",
	}[kind]
	return fmt.Sprintf("Digital painting, %s. %s",
		style, common.Truncate(common.NormalizeSpace(description), 2000))
}
