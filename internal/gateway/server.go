// Package gateway exposes the story agent over a websocket endpoint and
// serves generated illustrations over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/storyloom/storyloom/internal/agent"
	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/share"
)

// inboundMsg is one client request on the websocket.
type inboundMsg struct {
	Type string `json:"type"` // "turn" | "reset" | "share"
	Text string `json:"text,omitempty"`
}

// outboundMsg is one server message. A "snapshot" follows every frame of
// a turn; "done" closes the turn; "error" reports a rejected request.
type outboundMsg struct {
	Type     string           `json:"type"` // "snapshot" | "done" | "error"
	Snapshot *render.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Server is the websocket gateway. Each connection owns one session.
type Server struct {
	loop      *agent.Loop
	sharers   []share.Sharer
	imagesDir string
	upgrader  websocket.Upgrader
}

// NewServer creates a Server around the session loop.
func NewServer(loop *agent.Loop, sharers []share.Sharer, imagesDir string) *Server {
	return &Server{
		loop:      loop,
		sharers:   sharers,
		imagesDir: imagesDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway is meant to sit behind the user's own
			// reverse proxy, which enforces origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP mux: /ws for the agent, /images/ for the
// generated illustrations, /healthz for liveness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.imagesDir))))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("gateway: %w", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sessionKey := "ws:" + uuid.NewString()
	slog.Info("client connected", "session", sessionKey, "remote", r.RemoteAddr)

	ctx := r.Context()
	for {
		var msg inboundMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("client read failed", "session", sessionKey, "err", err)
			}
			return
		}

		switch msg.Type {
		case "turn":
			s.handleTurn(ctx, conn, sessionKey, msg.Text)
		case "reset":
			s.handleReset(conn, sessionKey)
		case "share":
			s.handleShare(ctx, conn, sessionKey)
		default:
			writeError(conn, fmt.Sprintf("unknown message type %q", msg.Type))
		}
	}
}

func (s *Server) handleTurn(ctx context.Context, conn *websocket.Conn, sessionKey, text string) {
	seq, err := s.loop.RunTurn(ctx, sessionKey, text)
	if err != nil {
		writeError(conn, err.Error())
		return
	}
	for snap := range seq {
		if err := conn.WriteJSON(outboundMsg{Type: "snapshot", Snapshot: &snap}); err != nil {
			slog.Warn("client write failed", "session", sessionKey, "err", err)
			break
		}
	}
	_ = conn.WriteJSON(outboundMsg{Type: "done"})
}

func (s *Server) handleReset(conn *websocket.Conn, sessionKey string) {
	if err := s.loop.Reset(sessionKey); err != nil {
		writeError(conn, err.Error())
		return
	}
	snap := s.loop.Snapshot(sessionKey)
	_ = conn.WriteJSON(outboundMsg{Type: "snapshot", Snapshot: &snap})
	_ = conn.WriteJSON(outboundMsg{Type: "done"})
}

func (s *Server) handleShare(ctx context.Context, conn *websocket.Conn, sessionKey string) {
	if len(s.sharers) == 0 {
		writeError(conn, "no share targets configured")
		return
	}
	if err := share.ShareAll(ctx, s.sharers, s.loop.Snapshot(sessionKey)); err != nil {
		writeError(conn, err.Error())
		return
	}
	_ = conn.WriteJSON(outboundMsg{Type: "done"})
}

func writeError(conn *websocket.Conn, text string) {
	_ = conn.WriteJSON(outboundMsg{Type: "error", Error: text})
}
