// Package session manages per-conversation state stored as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","key":"…","created_at":"…","updated_at":"…"}
//	Line 2:  {"_type":"slots","story":"…","images":[…],"captions":[…]}
//	Line 3+: one JSON message object per line
//
// Transcript pairs are not persisted; the agent memory messages are the
// durable record and the render slots are restored so a returning user
// still sees their storyboard.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/schema"
)

// Manager loads and persists sessions as JSONL files.
type Manager struct {
	sessionsDir string // workspace/sessions/
	maxScenes   int
	cache       sync.Map // key → *Session
}

// NewManager creates a Manager rooted at the workspace directory.
// It creates the sessions subdirectory if necessary.
func NewManager(workspace string, maxScenes int) (*Manager, error) {
	dir := filepath.Join(workspace, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}

	return &Manager{sessionsDir: dir, maxScenes: maxScenes}, nil
}

// GetOrCreate returns the cached session for key, loading from disk if
// needed, or creating an empty new one.
func (m *Manager) GetOrCreate(key string) *Session {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session)
	}

	s := m.load(key)
	if s == nil {
		s = newSession(key, schema.NewMessages(), render.NewState(m.maxScenes), time.Now())
	}

	actual, _ := m.cache.LoadOrStore(key, s)

	return actual.(*Session)
}

// Save writes the session to disk and updates the cache.
func (m *Manager) Save(s *Session) error {
	path := m.sessionPath(s.Key)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // preserve non-ASCII story text as written

	s.mu.Lock()
	msgs := s.History.Clone()
	snap := s.State.Snapshot()
	meta := map[string]any{
		"_type":      "metadata",
		"key":        s.Key,
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Unlock()

	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	slots := map[string]any{
		"_type":    "slots",
		"story":    snap.Story,
		"images":   snap.Images,
		"captions": snap.Captions,
	}
	if err := enc.Encode(slots); err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}

	for _, msg := range msgs.Messages {
		wire := map[string]any{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := enc.Encode(wire); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}

	m.cache.Store(s.Key, s)
	return nil
}

// Invalidate removes a session from the in-memory cache.
func (m *Manager) Invalidate(key string) {
	m.cache.Delete(key)
}

// SessionsDir returns the directory session files live in.
func (m *Manager) SessionsDir() string { return m.sessionsDir }

// load reads a session from disk; nil when absent or unreadable.
func (m *Manager) load(key string) *Session {
	path := m.sessionPath(key)

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var (
		history   = schema.NewMessages()
		state     = render.NewState(m.maxScenes)
		createdAt time.Time
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var data map[string]any
		if err := json.Unmarshal(line, &data); err != nil {
			slog.Warn("skipping malformed session line", "key", key, "err", err)
			continue
		}

		switch data["_type"] {
		case "metadata":
			if ts, ok := data["created_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, ts); err == nil {
					createdAt = t
				}
			}
		case "slots":
			story, _ := data["story"].(string)
			state.Restore(story, toStrings(data["images"]), toStrings(data["captions"]))
		default:
			role, _ := data["role"].(string)
			content, _ := data["content"].(string)
			if role != "" {
				history.Add(schema.Message{Role: role, Content: content})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("error reading session file", "key", key, "err", err)
		return nil
	}

	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return newSession(key, history, state, createdAt)
}

// toStrings converts a decoded JSON array to []string, skipping non-strings.
func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

// sessionPath converts a session key to its JSONL file path.
func (m *Manager) sessionPath(key string) string {
	name := safeFilename(strings.ReplaceAll(key, ":", "_"))
	return filepath.Join(m.sessionsDir, name+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
