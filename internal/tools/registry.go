// Package tools holds the tool registry, the invoker that validates and
// dispatches extracted calls, and the built-in story tools.
package tools

import (
	"sort"

	"github.com/storyloom/storyloom/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolPrintStory      ToolName = "print_story"
	ToolShowExample     ToolName = "show_image_example"
	ToolImageGeneration ToolName = "image_generation"
	ToolTranslateEn2Zh  ToolName = "text-translation-en2zh"
	ToolStoryReference  ToolName = "story_reference"
)

// Registry holds a set of named tools and exposes them for dispatch.
// Tool names are unique within a registry; the builder keeps the last
// registration for a name.
type Registry struct {
	tools map[string]schema.Tool
}

// Get returns the tool with the given name, or nil.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered tool, ordered by name.
func (r *Registry) All() []schema.Tool {
	out := make([]schema.Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}
