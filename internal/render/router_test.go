package render

import (
	"testing"

	"github.com/storyloom/storyloom/internal/schema"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	return NewState(4)
}

func TestApply_OverwriteIsIdempotent(t *testing.T) {
	s := newTestState(t)

	Apply(s, []schema.SlotUpdate{{Slot: schema.ImageSlot(2), Value: "first.png"}})
	Apply(s, []schema.SlotUpdate{{Slot: schema.ImageSlot(2), Value: "second.png"}})

	if got := s.Image(2); got != "second.png" {
		t.Errorf("image[2] = %q, want %q", got, "second.png")
	}
	for _, idx := range []int{0, 1, 3} {
		if s.Image(idx) != "" {
			t.Errorf("image[%d] unexpectedly set to %q", idx, s.Image(idx))
		}
	}
}

func TestApply_IndependentSlotsCommute(t *testing.T) {
	a := []schema.SlotUpdate{
		{Slot: schema.ImageSlot(0), Value: "img.png"},
		{Slot: schema.CaptionSlot(1), Value: "a caption"},
	}
	b := []schema.SlotUpdate{a[1], a[0]}

	s1 := newTestState(t)
	s2 := newTestState(t)
	Apply(s1, a)
	Apply(s2, b)

	if s1.Image(0) != s2.Image(0) || s1.Caption(1) != s2.Caption(1) {
		t.Errorf("order changed outcome: %+v vs %+v", s1.Snapshot(), s2.Snapshot())
	}
}

func TestApply_LastWriteWinsWithinBatch(t *testing.T) {
	s := newTestState(t)
	Apply(s, []schema.SlotUpdate{
		{Slot: schema.ImageSlot(1), Value: "one.png"},
		{Slot: schema.ImageSlot(1), Value: "two.png"},
	})
	if got := s.Image(1); got != "two.png" {
		t.Errorf("image[1] = %q, want %q", got, "two.png")
	}
}

func TestApply_OutOfRangeSkipsUpdateOnly(t *testing.T) {
	s := newTestState(t)

	failures := Apply(s, []schema.SlotUpdate{
		{Slot: schema.ImageSlot(7), Value: "oops.png"},
		{Slot: schema.CaptionSlot(0), Value: "kept"},
	})

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Kind != schema.FailureSlotOutOfRange {
		t.Errorf("failure kind = %q", failures[0].Kind)
	}
	if s.Caption(0) != "kept" {
		t.Errorf("later update was not applied: caption[0] = %q", s.Caption(0))
	}
}

func TestApply_TranscriptAppendsInArrivalOrder(t *testing.T) {
	s := newTestState(t)
	s.BeginTurn("hello")
	s.SetNarrative("Once upon a time.")

	Apply(s, []schema.SlotUpdate{{Slot: schema.TranscriptSlot(), Value: "first fragment"}})
	Apply(s, []schema.SlotUpdate{{Slot: schema.TranscriptSlot(), Value: "second fragment"}})

	want := "Once upon a time.\nfirst fragment\nsecond fragment"
	if got := s.CurrentAgentText(); got != want {
		t.Errorf("agent text = %q, want %q", got, want)
	}
}

func TestApply_StorySlotOverwrites(t *testing.T) {
	s := newTestState(t)
	Apply(s, []schema.SlotUpdate{{Slot: schema.StorySlot(), Value: "draft"}})
	Apply(s, []schema.SlotUpdate{{Slot: schema.StorySlot(), Value: "final"}})
	if s.Story() != "final" {
		t.Errorf("story = %q", s.Story())
	}
}

func TestReset_ClearsToPlaceholders(t *testing.T) {
	s := newTestState(t)
	s.BeginTurn("hi")
	s.SetNarrative("text")
	Apply(s, []schema.SlotUpdate{
		{Slot: schema.StorySlot(), Value: "story"},
		{Slot: schema.ImageSlot(0), Value: "img.png"},
		{Slot: schema.CaptionSlot(3), Value: "cap"},
	})

	s.Reset()

	snap := s.Snapshot()
	if len(snap.Transcript) != 0 || snap.Story != "" {
		t.Errorf("transcript/story not cleared: %+v", snap)
	}
	for i := 0; i < 4; i++ {
		if snap.Images[i] != "" || snap.Captions[i] != "" {
			t.Errorf("slot %d not cleared", i)
		}
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := newTestState(t)
	s.BeginTurn("hi")
	s.SetNarrative("before")
	Apply(s, []schema.SlotUpdate{{Slot: schema.ImageSlot(0), Value: "a.png"}})

	snap := s.Snapshot()

	s.SetNarrative("after")
	Apply(s, []schema.SlotUpdate{{Slot: schema.ImageSlot(0), Value: "b.png"}})

	if snap.Transcript[0].AgentText != "before" {
		t.Errorf("snapshot transcript mutated: %q", snap.Transcript[0].AgentText)
	}
	if snap.Images[0] != "a.png" {
		t.Errorf("snapshot image mutated: %q", snap.Images[0])
	}
}
