package agent

import (
	"fmt"
	"strings"

	"github.com/storyloom/storyloom/internal/extract"
	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/tools"
)

// systemTemplate instructs the model to drive the story-building flow and
// to request tools with the delimited JSON wire format the extractor
// understands. %s is the rendered tool list.
const systemTemplate = `You are a Story Agent. Work with the user over several turns: first agree
on an outline, then write the story, then ask for an illustration style, and
finally illustrate every scene.

You may call the plugins listed below. To call one, emit a JSON object with
the fields api_name and parameters, wrapped between %[1]s and %[2]s, for
example:

%[1]s{"api_name": "image_generation", "parameters": {"text": "scene text", "idx": "0", "type": "cartoon"}}%[2]s

Scene indexes are zero-based strings and there are at most %[3]d scenes.
Illustrate scenes in order, one call per scene. After the tool results come
back, continue the reply naturally. Only answer the current question; never
write the user's side of the conversation.

Available plugins:
%[4]s`

// PromptBuilder renders the conversation sent to the LLM: system prompt
// with the live tool list, the memory window, and the new user message.
type PromptBuilder struct {
	registry  *tools.Registry
	maxScenes int
}

// NewPromptBuilder creates a PromptBuilder over the given registry.
func NewPromptBuilder(registry *tools.Registry, maxScenes int) *PromptBuilder {
	return &PromptBuilder{registry: registry, maxScenes: maxScenes}
}

// BuildMessages assembles the full conversation for one generation.
func (b *PromptBuilder) BuildMessages(history schema.Messages, userInput string) schema.Messages {
	conversation := schema.NewMessages()
	conversation.AddSystem(fmt.Sprintf(systemTemplate,
		extract.StartMarker, extract.EndMarker, b.maxScenes, b.toolList()))
	conversation.Append(history)
	conversation.AddUser(userInput)
	return conversation
}

// toolList renders one line per registered tool: name, description, and
// the parameter contract.
func (b *PromptBuilder) toolList() string {
	var sb strings.Builder
	for _, tool := range b.registry.All() {
		fmt.Fprintf(&sb, "- %s: %s", tool.Name(), tool.Description())
		specs := tool.Params()
		if len(specs) > 0 {
			parts := make([]string, 0, len(specs))
			for _, p := range specs {
				req := "optional"
				if p.Required {
					req = "required"
				}
				parts = append(parts, fmt.Sprintf("%s (%s %s: %s)", p.Name, req, p.Type, p.Description))
			}
			fmt.Fprintf(&sb, " Parameters: %s.", strings.Join(parts, "; "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
