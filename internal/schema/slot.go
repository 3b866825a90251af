package schema

import "fmt"

// SlotKind identifies the class of an addressable output slot.
type SlotKind string

const (
	// SlotTranscript appends a fragment to the current turn's agent text.
	SlotTranscript SlotKind = "transcript"
	// SlotStory holds the full printed story shown in the story panel.
	SlotStory SlotKind = "story"
	// SlotImage holds the illustration for one scene, by zero-based index.
	SlotImage SlotKind = "image"
	// SlotCaption holds the caption text for one scene, by zero-based index.
	SlotCaption SlotKind = "caption"
)

// SlotID addresses one output slot. Index is meaningful only for the
// scene-indexed kinds (image, caption).
type SlotID struct {
	Kind  SlotKind
	Index int
}

func (id SlotID) String() string {
	switch id.Kind {
	case SlotImage, SlotCaption:
		return fmt.Sprintf("%s[%d]", id.Kind, id.Index)
	default:
		return string(id.Kind)
	}
}

// TranscriptSlot addresses the current turn's agent text.
func TranscriptSlot() SlotID { return SlotID{Kind: SlotTranscript} }

// StorySlot addresses the story panel.
func StorySlot() SlotID { return SlotID{Kind: SlotStory} }

// ImageSlot addresses the illustration slot for scene idx.
func ImageSlot(idx int) SlotID { return SlotID{Kind: SlotImage, Index: idx} }

// CaptionSlot addresses the caption slot for scene idx.
func CaptionSlot(idx int) SlotID { return SlotID{Kind: SlotCaption, Index: idx} }

// SlotUpdate assigns a value to one slot. Transcript updates append;
// every other kind overwrites the slot's last-written value.
type SlotUpdate struct {
	Slot  SlotID
	Value string
}
