package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/storyloom/storyloom/internal/agent"
	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/session"
	"github.com/storyloom/storyloom/internal/tools"
)

type scriptedSource struct {
	frames []schema.Frame
	pos    int
}

func (s *scriptedSource) Next(_ context.Context) (schema.Frame, error) {
	if s.pos >= len(s.frames) {
		return schema.Frame{IsFinal: true}, nil
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

type scriptedProvider struct {
	frames []schema.Frame
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func (p *scriptedProvider) StreamChat(context.Context, schema.Messages, schema.ChatOptions) (schema.FrameSource, error) {
	return &scriptedSource{frames: p.frames}, nil
}

func newTestConn(t *testing.T, frames []schema.Frame) *websocket.Conn {
	t.Helper()

	registry := tools.NewRegistryBuilder().
		WithTool(tools.NewPrintStoryTool()).
		Build()
	sessions, err := session.NewManager(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	loop := agent.NewLoop(
		&scriptedProvider{frames: frames},
		tools.NewInvoker(registry),
		sessions,
		agent.NewPromptBuilder(registry, 4),
		agent.Settings{Model: "scripted", MaxTokens: 512, MemoryWindow: 20},
	)

	srv := httptest.NewServer(NewServer(loop, nil, t.TempDir()).Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilDone collects snapshots until the server signals end of turn.
func readUntilDone(t *testing.T, conn *websocket.Conn) []outboundMsg {
	t.Helper()
	var msgs []outboundMsg
	for {
		var msg outboundMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		msgs = append(msgs, msg)
		if msg.Type == "done" || msg.Type == "error" {
			return msgs
		}
	}
}

func TestTurnOverWebsocket(t *testing.T) {
	conn := newTestConn(t, []schema.Frame{
		{Text: "Working on it"},
		{Text: "Working on it<|startofthink|>{\"api_name\": \"print_story\", \"parameters\": {\"text\": \"A tale.\"}}<|endofthink|>", IsFinal: true},
	})

	if err := conn.WriteJSON(inboundMsg{Type: "turn", Text: "tell me a story"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgs := readUntilDone(t, conn)

	if last := msgs[len(msgs)-1]; last.Type != "done" {
		t.Fatalf("turn ended with %q: %s", last.Type, last.Error)
	}
	var story string
	snapshots := 0
	for _, msg := range msgs {
		if msg.Type == "snapshot" {
			snapshots++
			story = msg.Snapshot.Story
		}
	}
	if snapshots < 2 {
		t.Fatalf("got %d snapshots, want at least one per frame", snapshots)
	}
	if story != "A tale." {
		t.Fatalf("final story = %q, want %q", story, "A tale.")
	}
}

func TestResetOverWebsocket(t *testing.T) {
	conn := newTestConn(t, []schema.Frame{{Text: "hello there", IsFinal: true}})

	if err := conn.WriteJSON(inboundMsg{Type: "turn", Text: "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntilDone(t, conn)

	if err := conn.WriteJSON(inboundMsg{Type: "reset"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgs := readUntilDone(t, conn)

	var cleared bool
	for _, msg := range msgs {
		if msg.Type == "snapshot" && len(msg.Snapshot.Transcript) == 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("reset did not produce an empty snapshot")
	}
}

func TestUnknownMessageType(t *testing.T) {
	conn := newTestConn(t, nil)

	if err := conn.WriteJSON(inboundMsg{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgs := readUntilDone(t, conn)
	if msgs[len(msgs)-1].Type != "error" {
		t.Fatalf("expected error message, got %+v", msgs)
	}
}

func TestShareWithoutTargets(t *testing.T) {
	conn := newTestConn(t, nil)

	if err := conn.WriteJSON(inboundMsg{Type: "share"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgs := readUntilDone(t, conn)
	last := msgs[len(msgs)-1]
	if last.Type != "error" || !strings.Contains(last.Error, "no share targets") {
		t.Fatalf("expected no-targets error, got %+v", last)
	}
}
