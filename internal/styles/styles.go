// Package styles maps user-facing illustration style names to the prompt
// suffixes sent to the image model. Presets live in a YAML file under the
// workspace so new styles can be added without a rebuild.
package styles

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset describes one illustration style.
type Preset struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// file is the on-disk YAML shape.
type file struct {
	Styles []Preset `yaml:"styles"`
}

// Registry resolves style names to prompt suffixes.
type Registry struct {
	presets map[string]Preset
}

// Defaults returns the built-in presets used when no styles file exists.
func Defaults() []Preset {
	return []Preset{
		{Name: "cartoon", Prompt: "children's picture book illustration, bright colors, soft lines"},
		{Name: "cyberpunk", Prompt: "cyberpunk illustration, neon palette, high contrast"},
		{Name: "watercolor", Prompt: "watercolor painting, gentle washes, textured paper"},
	}
}

// Load reads presets from path. A missing file is not an error: the
// built-in defaults are used so a fresh workspace works out of the box.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(Defaults()), nil
		}
		return nil, fmt.Errorf("read styles %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse styles %s: %w", path, err)
	}
	if len(f.Styles) == 0 {
		return NewRegistry(Defaults()), nil
	}
	return NewRegistry(f.Styles), nil
}

// NewRegistry builds a Registry from presets. Names are matched
// case-insensitively.
func NewRegistry(presets []Preset) *Registry {
	m := make(map[string]Preset, len(presets))
	for _, p := range presets {
		m[strings.ToLower(p.Name)] = p
	}
	return &Registry{presets: m}
}

// Names returns the known style names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for _, p := range r.presets {
		names = append(names, p.Name)
	}
	return names
}

// Prompt composes the image-model prompt for the scene text and style.
// An unknown or empty style falls back to the scene text with the raw
// style name appended, so the model still gets the user's intent.
func (r *Registry) Prompt(style, text string) string {
	if style == "" {
		return text
	}
	if p, ok := r.presets[strings.ToLower(style)]; ok {
		return text + ", " + p.Prompt
	}
	return text + ", " + style + " style"
}
