// Package render owns the session's observable output state: the
// conversation transcript plus the fixed set of addressable slots
// (story panel, per-scene images and captions).
package render

import "strings"

// TurnEntry is one user/agent exchange in the transcript. The agent side
// is composed of the narrative (the latest cumulative frame residual) plus
// any tool and diagnostic fragments appended during the turn.
type TurnEntry struct {
	UserText  string
	narrative string
	fragments []string
}

// AgentText flattens the entry into the text shown to the user.
func (e *TurnEntry) AgentText() string {
	if len(e.fragments) == 0 {
		return e.narrative
	}
	parts := make([]string, 0, len(e.fragments)+1)
	if e.narrative != "" {
		parts = append(parts, e.narrative)
	}
	parts = append(parts, e.fragments...)
	return strings.Join(parts, "\n")
}

// State is the render state for one session. It is owned by a single
// session loop at a time and persists across turns until Reset.
type State struct {
	maxScenes  int
	transcript []TurnEntry
	story      string
	images     []string
	captions   []string
}

// NewState returns an empty State sized for maxScenes scenes.
func NewState(maxScenes int) *State {
	return &State{
		maxScenes: maxScenes,
		images:    make([]string, maxScenes),
		captions:  make([]string, maxScenes),
	}
}

// MaxScenes returns the configured scene count.
func (s *State) MaxScenes() int { return s.maxScenes }

// BeginTurn appends a pending transcript entry for the user's message so
// the first snapshot shows it before any agent text arrives.
func (s *State) BeginTurn(userText string) {
	s.transcript = append(s.transcript, TurnEntry{UserText: userText})
}

// SetNarrative replaces the current turn's narrative with the residual of
// the latest cumulative frame.
func (s *State) SetNarrative(text string) {
	if len(s.transcript) == 0 {
		s.transcript = append(s.transcript, TurnEntry{})
	}
	s.transcript[len(s.transcript)-1].narrative = text
}

// appendFragment concatenates a tool or diagnostic fragment onto the
// current turn's agent text, in arrival order.
func (s *State) appendFragment(text string) {
	if len(s.transcript) == 0 {
		s.transcript = append(s.transcript, TurnEntry{})
	}
	last := &s.transcript[len(s.transcript)-1]
	last.fragments = append(last.fragments, text)
}

// CurrentAgentText returns the flattened agent text of the current turn.
func (s *State) CurrentAgentText() string {
	if len(s.transcript) == 0 {
		return ""
	}
	return s.transcript[len(s.transcript)-1].AgentText()
}

// Image returns the value of image slot idx, or "" when out of range.
func (s *State) Image(idx int) string {
	if idx < 0 || idx >= len(s.images) {
		return ""
	}
	return s.images[idx]
}

// Caption returns the value of caption slot idx, or "" when out of range.
func (s *State) Caption(idx int) string {
	if idx < 0 || idx >= len(s.captions) {
		return ""
	}
	return s.captions[idx]
}

// Story returns the story panel content.
func (s *State) Story() string { return s.story }

// Restore repopulates the non-transcript slots from persisted values.
// Extra entries beyond maxScenes are discarded.
func (s *State) Restore(story string, images, captions []string) {
	s.story = story
	for i := 0; i < s.maxScenes && i < len(images); i++ {
		s.images[i] = images[i]
	}
	for i := 0; i < s.maxScenes && i < len(captions); i++ {
		s.captions[i] = captions[i]
	}
}

// Reset clears the transcript and every slot back to its initial
// placeholder value. The scene count is preserved.
func (s *State) Reset() {
	s.transcript = nil
	s.story = ""
	s.images = make([]string, s.maxScenes)
	s.captions = make([]string, s.maxScenes)
}

// TranscriptPair is one flattened (user, agent) exchange in a snapshot.
type TranscriptPair struct {
	UserText  string `json:"user"`
	AgentText string `json:"agent"`
}

// Snapshot is the full observable state handed to the driver after each
// frame. It is a deep copy: later mutation of the State never changes an
// emitted snapshot.
type Snapshot struct {
	Transcript []TranscriptPair `json:"transcript"`
	Story      string           `json:"story"`
	Images     []string         `json:"images"`
	Captions   []string         `json:"captions"`
}

// Snapshot captures the current state.
func (s *State) Snapshot() Snapshot {
	transcript := make([]TranscriptPair, len(s.transcript))
	for i := range s.transcript {
		transcript[i] = TranscriptPair{
			UserText:  s.transcript[i].UserText,
			AgentText: s.transcript[i].AgentText(),
		}
	}
	images := make([]string, len(s.images))
	copy(images, s.images)
	captions := make([]string, len(s.captions))
	copy(captions, s.captions)
	return Snapshot{
		Transcript: transcript,
		Story:      s.story,
		Images:     images,
		Captions:   captions,
	}
}
