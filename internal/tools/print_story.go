package tools

import (
	"context"

	"github.com/storyloom/storyloom/internal/schema"
)

// PrintStoryTool publishes the full story text to the story panel.
type PrintStoryTool struct{}

// NewPrintStoryTool creates a PrintStoryTool.
func NewPrintStoryTool() *PrintStoryTool { return &PrintStoryTool{} }

func (t *PrintStoryTool) Name() string { return string(ToolPrintStory) }

func (t *PrintStoryTool) Description() string {
	return "Print the finished story so the user can read it in the story panel."
}

func (t *PrintStoryTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "text", Description: "Full story text", Required: true, Type: schema.ParamString},
	}
}

func (t *PrintStoryTool) Invoke(_ context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	return []schema.SlotUpdate{
		{Slot: schema.StorySlot(), Value: params["text"]},
	}, nil
}
