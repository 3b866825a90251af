package tools

import (
	"context"

	"github.com/storyloom/storyloom/internal/schema"
)

// ShowExampleTool fills the leading image slots with pre-rendered example
// illustrations so the user can pick a style before generation starts.
type ShowExampleTool struct {
	paths []string
}

// NewShowExampleTool creates the tool with the configured example image
// paths. Slot i receives paths[i].
func NewShowExampleTool(paths []string) *ShowExampleTool {
	cloned := make([]string, len(paths))
	copy(cloned, paths)
	return &ShowExampleTool{paths: cloned}
}

func (t *ShowExampleTool) Name() string { return string(ToolShowExample) }

func (t *ShowExampleTool) Description() string {
	return "Show example illustrations of the available drawing styles."
}

func (t *ShowExampleTool) Params() []schema.ParamSpec { return nil }

func (t *ShowExampleTool) Invoke(_ context.Context, _ map[string]string) ([]schema.SlotUpdate, error) {
	updates := make([]schema.SlotUpdate, 0, len(t.paths))
	for i, p := range t.paths {
		updates = append(updates, schema.SlotUpdate{Slot: schema.ImageSlot(i), Value: p})
	}
	return updates, nil
}
