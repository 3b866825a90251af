package agent

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/session"
	"github.com/storyloom/storyloom/internal/tools"
)

// scriptedSource replays a fixed frame sequence, then an optional error.
type scriptedSource struct {
	frames []schema.Frame
	pos    int
	err    error
}

func (s *scriptedSource) Next(_ context.Context) (schema.Frame, error) {
	if s.pos >= len(s.frames) {
		if s.err != nil {
			return schema.Frame{}, s.err
		}
		return schema.Frame{IsFinal: true}, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

type scriptedProvider struct {
	frames    []schema.Frame
	sourceErr error
	streamErr error
	seen      schema.Messages
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func (p *scriptedProvider) StreamChat(_ context.Context, msgs schema.Messages, _ schema.ChatOptions) (schema.FrameSource, error) {
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	p.seen = msgs
	return &scriptedSource{frames: p.frames, err: p.sourceErr}, nil
}

// countingTool records how many times it ran.
type countingTool struct {
	calls int
}

func (t *countingTool) Name() string        { return "count_tool" }
func (t *countingTool) Description() string { return "counts invocations" }

func (t *countingTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "text", Description: "payload", Required: true, Type: schema.ParamString},
	}
}

func (t *countingTool) Invoke(_ context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	t.calls++
	return []schema.SlotUpdate{
		{Slot: schema.TranscriptSlot(), Value: "counted " + params["text"]},
	}, nil
}

// fixedImageTool stands in for image_generation: it resolves idx to a
// fixed image reference without any network call.
type fixedImageTool struct{}

func (t *fixedImageTool) Name() string        { return "image_generation" }
func (t *fixedImageTool) Description() string { return "renders one scene" }

func (t *fixedImageTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "text", Description: "scene text", Required: true, Type: schema.ParamString},
		{Name: "idx", Description: "scene index", Required: true, Type: schema.ParamInteger},
		{Name: "type", Description: "style", Required: false, Type: schema.ParamString},
	}
}

func (t *fixedImageTool) Invoke(_ context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	idx, _ := strconv.Atoi(params["idx"])
	return []schema.SlotUpdate{
		{Slot: schema.ImageSlot(idx), Value: "render-" + params["idx"] + ".png"},
		{Slot: schema.CaptionSlot(idx), Value: params["text"]},
	}, nil
}

func newTestLoop(t *testing.T, provider schema.Provider, extra ...schema.Tool) *Loop {
	t.Helper()

	builder := tools.NewRegistryBuilder().
		WithTool(tools.NewPrintStoryTool()).
		WithTool(tools.NewShowExampleTool([]string{"examples/a.png", "examples/b.png"}))
	for _, tool := range extra {
		builder = builder.WithTool(tool)
	}
	registry := builder.Build()

	sessions, err := session.NewManager(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	return NewLoop(
		provider,
		tools.NewInvoker(registry),
		sessions,
		NewPromptBuilder(registry, 4),
		Settings{Model: "scripted", MaxTokens: 1024, MemoryWindow: 20},
	)
}

func collect(t *testing.T, loop *Loop, key, input string) []render.Snapshot {
	t.Helper()
	seq, err := loop.RunTurn(context.Background(), key, input)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	var out []render.Snapshot
	for snap := range seq {
		out = append(out, snap)
	}
	if len(out) == 0 {
		t.Fatal("turn yielded no snapshots")
	}
	return out
}

func lastAgentText(t *testing.T, snaps []render.Snapshot) string {
	t.Helper()
	final := snaps[len(snaps)-1]
	if len(final.Transcript) == 0 {
		t.Fatal("final snapshot has empty transcript")
	}
	return final.Transcript[len(final.Transcript)-1].AgentText
}

func TestRunTurn_StoryRoundTrip(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "Once upon a time"},
		{Text: "Once upon a time<|startofthink|>{\"api_name\": \"print_story\", \"parameters\": {\"text\": \"The tale.\"}}<|endofthink|> The end.", IsFinal: true},
	}}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "tell me a story")

	first := snaps[0]
	if len(first.Transcript) != 1 || first.Transcript[0].UserText != "tell me a story" {
		t.Fatalf("first snapshot should show the user message, got %+v", first.Transcript)
	}
	if first.Transcript[0].AgentText != "" {
		t.Fatalf("first snapshot agent text = %q, want empty", first.Transcript[0].AgentText)
	}

	final := snaps[len(snaps)-1]
	if final.Story != "The tale." {
		t.Fatalf("story slot = %q, want %q", final.Story, "The tale.")
	}
	if got, want := lastAgentText(t, snaps), "Once upon a time  The end."; got != want {
		t.Fatalf("agent text = %q, want %q", got, want)
	}
}

func TestRunTurn_ImageCallFillsOnlyItsScene(t *testing.T) {
	text := "Scene text. <|startofthink|>{\"api_name\": \"image_generation\", \"parameters\": {\"text\": \"t\", \"idx\": \"1\", \"type\": \"cartoon\"}}<|endofthink|> more text"
	provider := &scriptedProvider{frames: []schema.Frame{{Text: text, IsFinal: true}}}
	loop := newTestLoop(t, provider, &fixedImageTool{})

	snaps := collect(t, loop, "cli:alice", "draw scene two")

	final := snaps[len(snaps)-1]
	if final.Images[1] != "render-1.png" {
		t.Fatalf("image slot 1 = %q, want rendered reference", final.Images[1])
	}
	if final.Captions[1] != "t" {
		t.Fatalf("caption slot 1 = %q, want scene text", final.Captions[1])
	}
	for _, i := range []int{0, 2, 3} {
		if final.Images[i] != "" || final.Captions[i] != "" {
			t.Fatalf("scene %d touched: image %q caption %q", i, final.Images[i], final.Captions[i])
		}
	}
	if final.Story != "" {
		t.Fatalf("story slot touched: %q", final.Story)
	}
	if got, want := lastAgentText(t, snaps), "Scene text.   more text"; got != want {
		t.Fatalf("agent text = %q, want %q", got, want)
	}
}

func TestRunTurn_UnknownToolBecomesDiagnostic(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "Working.<|startofthink|>{\"api_name\": \"no_such_tool\", \"parameters\": {}}<|endofthink|>", IsFinal: true},
	}}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "go")

	got := lastAgentText(t, snaps)
	if !strings.Contains(got, "tool no_such_tool failed") {
		t.Fatalf("agent text %q missing unknown-tool diagnostic", got)
	}
	if !strings.Contains(got, "Working.") {
		t.Fatalf("agent text %q lost the narrative", got)
	}
}

func TestRunTurn_DedupesCallsAcrossCumulativeFrames(t *testing.T) {
	call := "<|startofthink|>{\"api_name\": \"count_tool\", \"parameters\": {\"text\": \"once\"}}<|endofthink|>"
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "Hello " + call},
		{Text: "Hello " + call + " and more"},
		{Text: "Hello " + call + " and more text.", IsFinal: true},
	}}
	counter := &countingTool{}
	loop := newTestLoop(t, provider, counter)

	snaps := collect(t, loop, "cli:alice", "go")

	if counter.calls != 1 {
		t.Fatalf("tool dispatched %d times, want exactly once", counter.calls)
	}
	if got := lastAgentText(t, snaps); !strings.Contains(got, "counted once") {
		t.Fatalf("agent text %q missing tool fragment", got)
	}
}

func TestRunTurn_DispatchesInDocumentOrder(t *testing.T) {
	text := "Here are styles." +
		"<|startofthink|>{\"api_name\": \"show_image_example\", \"parameters\": {}}<|endofthink|>" +
		"<|startofthink|>{\"api_name\": \"print_story\", \"parameters\": {\"text\": \"A short one.\"}}<|endofthink|>"
	provider := &scriptedProvider{frames: []schema.Frame{{Text: text, IsFinal: true}}}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "show me")

	final := snaps[len(snaps)-1]
	if final.Images[0] != "examples/a.png" || final.Images[1] != "examples/b.png" {
		t.Fatalf("image slots = %v, want example paths", final.Images)
	}
	if final.Story != "A short one." {
		t.Fatalf("story slot = %q, want %q", final.Story, "A short one.")
	}
}

func TestRunTurn_HidesIncompleteTrailingCall(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "The story begins. <|startofthink|>{\"api_name\": \"print_sto"},
		{Text: "The story begins. <|startofthink|>{\"api_name\": \"print_story\", \"parameters\": {\"text\": \"Done.\"}}<|endofthink|>", IsFinal: true},
	}}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "go")

	// Snapshot after the first frame: user snapshot is snaps[0], so the
	// partial-frame snapshot is snaps[1].
	mid := snaps[1]
	if got := mid.Transcript[len(mid.Transcript)-1].AgentText; got != "The story begins. " {
		t.Fatalf("partial frame agent text = %q, want marker hidden", got)
	}
	if final := snaps[len(snaps)-1]; final.Story != "Done." {
		t.Fatalf("story slot = %q, want %q", final.Story, "Done.")
	}
}

func TestRunTurn_CutsRoleMarkerOverrun(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "A fine ending.<|user|>and then the model kept going", IsFinal: true},
	}}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "go")

	if got := lastAgentText(t, snaps); got != "A fine ending." {
		t.Fatalf("agent text = %q, want overrun removed", got)
	}
}

func TestRunTurn_FrameSourceFailureEndsTurnWithDiagnostic(t *testing.T) {
	provider := &scriptedProvider{
		frames:    []schema.Frame{{Text: "Partial text"}},
		sourceErr: errors.New("connection reset"),
	}
	loop := newTestLoop(t, provider)

	snaps := collect(t, loop, "cli:alice", "go")

	got := lastAgentText(t, snaps)
	if !strings.Contains(got, "story generation failed") {
		t.Fatalf("agent text %q missing frame-source diagnostic", got)
	}
	if !strings.Contains(got, "Partial text") {
		t.Fatalf("agent text %q lost text from earlier frames", got)
	}

	// The session must be usable again after the failure.
	provider.sourceErr = nil
	provider.frames = []schema.Frame{{Text: "Recovered.", IsFinal: true}}
	snaps = collect(t, loop, "cli:alice", "again")
	if got := lastAgentText(t, snaps); got != "Recovered." {
		t.Fatalf("agent text after recovery = %q", got)
	}
}

func TestRunTurn_RejectsConcurrentTurn(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{{Text: "hi", IsFinal: true}}}
	loop := newTestLoop(t, provider)

	seq, err := loop.RunTurn(context.Background(), "cli:alice", "first")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if _, err := loop.RunTurn(context.Background(), "cli:alice", "second"); !errors.Is(err, session.ErrTurnInProgress) {
		t.Fatalf("concurrent RunTurn error = %v, want ErrTurnInProgress", err)
	}
	for range seq {
	}
	if _, err := loop.RunTurn(context.Background(), "cli:alice", "third"); err != nil {
		t.Fatalf("RunTurn after drain: %v", err)
	}
}

func TestReset_ClearsTranscriptAndSlots(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{
		{Text: "<|startofthink|>{\"api_name\": \"print_story\", \"parameters\": {\"text\": \"Gone soon.\"}}<|endofthink|>", IsFinal: true},
	}}
	loop := newTestLoop(t, provider)

	collect(t, loop, "cli:alice", "go")
	if err := loop.Reset("cli:alice"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snap := loop.Snapshot("cli:alice")
	if len(snap.Transcript) != 0 || snap.Story != "" {
		t.Fatalf("snapshot after reset not empty: %+v", snap)
	}
	for i, img := range snap.Images {
		if img != "" {
			t.Fatalf("image slot %d = %q after reset", i, img)
		}
	}
}

func TestRunTurn_HistoryReachesProvider(t *testing.T) {
	provider := &scriptedProvider{frames: []schema.Frame{{Text: "first reply", IsFinal: true}}}
	loop := newTestLoop(t, provider)

	collect(t, loop, "cli:alice", "first question")
	provider.frames = []schema.Frame{{Text: "second reply", IsFinal: true}}
	collect(t, loop, "cli:alice", "second question")

	var sawPrior bool
	for _, msg := range provider.seen.Messages {
		if msg.Role == "assistant" && strings.Contains(msg.Content, "first reply") {
			sawPrior = true
		}
	}
	if !sawPrior {
		t.Fatal("second turn prompt missing prior assistant reply")
	}
}
