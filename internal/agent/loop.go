// Package agent drives one story-building turn: it pumps frames from the
// LLM backend, extracts embedded tool calls, dispatches them, merges the
// results into the session's render state, and yields one snapshot per
// frame.
package agent

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/storyloom/storyloom/internal/extract"
	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/session"
	"github.com/storyloom/storyloom/internal/shared/llmutils"
	"github.com/storyloom/storyloom/internal/tools"
)

// Settings holds the per-turn generation parameters.
type Settings struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	MemoryWindow int
}

// phase names the session loop states, used for transition logging.
type phase string

const (
	phaseIdle            phase = "idle"
	phaseAwaitingFrame   phase = "awaiting_frame"
	phaseExtractingCalls phase = "extracting_calls"
	phaseDispatching     phase = "dispatching"
	phaseMerging         phase = "merging"
	phaseEmitting        phase = "emitting"
	phaseDone            phase = "done"
)

// Loop is the session loop processing engine. One Loop serves many
// sessions; each session serializes its own turns.
type Loop struct {
	provider schema.Provider
	invoker  *tools.Invoker
	sessions *session.Manager
	prompts  *PromptBuilder
	settings Settings
}

// NewLoop creates a Loop with the supplied provider, invoker, session
// manager, and prompt builder.
func NewLoop(
	provider schema.Provider,
	invoker *tools.Invoker,
	sessions *session.Manager,
	prompts *PromptBuilder,
	settings Settings,
) *Loop {
	return &Loop{
		provider: provider,
		invoker:  invoker,
		sessions: sessions,
		prompts:  prompts,
		settings: settings,
	}
}

// RunTurn processes one user turn for the keyed session and returns the
// snapshot stream. The first snapshot shows the user's message before any
// agent text; one more follows every processed frame. The sequence must be
// consumed (or abandoned via break) for the session to become idle again.
//
// Turns are serialized per session: ErrTurnInProgress is returned when the
// previous turn has not finished.
func (l *Loop) RunTurn(ctx context.Context, sessionKey, userInput string) (iter.Seq[render.Snapshot], error) {
	sess := l.sessions.GetOrCreate(sessionKey)
	if err := sess.BeginTurn(); err != nil {
		return nil, err
	}

	slog.Info("turn started", "session", sessionKey, "input", llmutils.Truncate(userInput, 80))

	return func(yield func(render.Snapshot) bool) {
		defer sess.EndTurn()
		l.runTurn(ctx, sess, userInput, yield)
	}, nil
}

// runTurn is the state machine body. All tool and routing failures are
// merged into the transcript as plain text; only a frame-source failure
// ends the turn early, and even that leaves earlier state intact.
func (l *Loop) runTurn(ctx context.Context, sess *session.Session, userInput string, yield func(render.Snapshot) bool) {
	state := sess.State
	cur := l.transition(sess.Key, phaseIdle, phaseAwaitingFrame)

	state.BeginTurn(userInput)
	if !yield(state.Snapshot()) {
		return
	}

	defer func() {
		final := state.CurrentAgentText()
		sess.AddUser(userInput)
		sess.AddAssistant(final)
		if err := l.sessions.Save(sess); err != nil {
			slog.Warn("failed to persist session", "session", sess.Key, "err", err)
		}
		l.transition(sess.Key, cur, phaseDone)
	}()

	conversation := l.prompts.BuildMessages(sess.HistoryTail(l.settings.MemoryWindow), userInput)
	src, err := l.provider.StreamChat(ctx, conversation, schema.ChatOptions{
		Model:       l.settings.Model,
		MaxTokens:   l.settings.MaxTokens,
		Temperature: l.settings.Temperature,
	})
	if err != nil {
		slog.Error("generation request failed", "session", sess.Key, "err", err)
		l.mergeDiagnostic(state, fmt.Sprintf("story generation failed: %v", err))
		yield(state.Snapshot())
		return
	}

	// Frames carry cumulative text, so every frame is re-extracted in
	// full and only calls beyond the already-dispatched count are new.
	dispatched := 0
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			slog.Error("frame source failed", "session", sess.Key, "err", err)
			l.mergeDiagnostic(state, fmt.Sprintf("story generation failed: %v", err))
			yield(state.Snapshot())
			return
		}

		cur = l.transition(sess.Key, cur, phaseExtractingCalls)
		text := llmutils.CutOverrun(llmutils.StripThink(frame.Text))
		calls, residual := extract.Extract(text)

		cur = l.transition(sess.Key, cur, phaseDispatching)
		if len(calls) > dispatched {
			for _, call := range calls[dispatched:] {
				l.dispatch(ctx, state, call)
			}
			dispatched = len(calls)
		}

		cur = l.transition(sess.Key, cur, phaseMerging)
		state.SetNarrative(residual)

		cur = l.transition(sess.Key, cur, phaseEmitting)
		if !yield(state.Snapshot()) {
			return
		}
		if frame.IsFinal {
			return
		}
		cur = l.transition(sess.Key, cur, phaseAwaitingFrame)
	}
}

// dispatch invokes one call and merges its outcome. Calls are dispatched
// sequentially in document order; a failure becomes a transcript
// diagnostic and never halts the loop.
func (l *Loop) dispatch(ctx context.Context, state *render.State, call schema.ToolCall) {
	outcome := l.invoker.Invoke(ctx, call)
	if outcome.Failure != nil {
		l.mergeDiagnostic(state, outcome.Diagnostic())
		return
	}
	for _, f := range render.Apply(state, outcome.Updates) {
		l.mergeDiagnostic(state, fmt.Sprintf("tool %s failed: %s", outcome.Tool, f.Reason))
	}
}

// mergeDiagnostic surfaces an error as plain narrative text, routed
// through the same transcript slot as tool output.
func (l *Loop) mergeDiagnostic(state *render.State, text string) {
	render.Apply(state, []schema.SlotUpdate{{Slot: schema.TranscriptSlot(), Value: text}})
}

func (l *Loop) transition(key string, from, to phase) phase {
	slog.Debug("session loop transition", "session", key, "from", from, "to", to)
	return to
}

// Reset clears the keyed session: transcript, slots, and agent memory.
// Safe between turns only; a reset during an in-flight turn is rejected
// with ErrTurnInProgress.
func (l *Loop) Reset(sessionKey string) error {
	sess := l.sessions.GetOrCreate(sessionKey)
	if err := sess.BeginTurn(); err != nil {
		return err
	}
	defer sess.EndTurn()

	sess.Clear()
	if err := l.sessions.Save(sess); err != nil {
		return fmt.Errorf("persist cleared session: %w", err)
	}
	slog.Info("session reset", "session", sessionKey)
	return nil
}

// Snapshot returns the current render state of the keyed session without
// running a turn.
func (l *Loop) Snapshot(sessionKey string) render.Snapshot {
	return l.sessions.GetOrCreate(sessionKey).State.Snapshot()
}
