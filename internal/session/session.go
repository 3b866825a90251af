package session

import (
	"errors"
	"sync"
	"time"

	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/schema"
)

// ErrTurnInProgress is returned when a turn is submitted while the
// session is still processing a previous one. Turns are serialized; a
// concurrent submission is rejected rather than queued.
var ErrTurnInProgress = errors.New("a turn is already in progress for this session")

// Session holds one conversation's agent memory and render state.
// Render state is owned by the session loop for the duration of a turn
// and persists across turns until Clear.
type Session struct {
	Key       string
	History   schema.Messages
	State     *render.State
	CreatedAt time.Time
	UpdatedAt time.Time

	mu         sync.Mutex
	turnActive bool
}

// newSession constructs a Session with all fields set. Used by the
// manager when creating or loading sessions.
func newSession(key string, history schema.Messages, state *render.State, createdAt time.Time) *Session {
	return &Session{
		Key:       key,
		History:   history,
		State:     state,
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}
}

// BeginTurn marks the session busy. It fails if a turn is in flight.
func (s *Session) BeginTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnActive {
		return ErrTurnInProgress
	}
	s.turnActive = true
	return nil
}

// EndTurn marks the session idle again.
func (s *Session) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnActive = false
	s.UpdatedAt = time.Now()
}

// AddUser appends a user message to the agent's conversational memory.
func (s *Session) AddUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History.AddUser(content)
	s.UpdatedAt = time.Now()
}

// AddAssistant appends an assistant message to the agent's memory.
func (s *Session) AddAssistant(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History.AddAssistant(content)
	s.UpdatedAt = time.Now()
}

// HistoryTail returns the last maxMessages memory messages for the LLM.
func (s *Session) HistoryTail(maxMessages int) schema.Messages {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.History.Tail(maxMessages)
}

// Len returns the number of messages in the agent's memory.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.History.Messages)
}

// Clear resets the agent's memory and the render state. After Clear the
// session behaves like a freshly created one.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = schema.NewMessages()
	s.State.Reset()
	s.UpdatedAt = time.Now()
}
