package schema

import "context"

// ChatOptions configures a single streamed generation request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// FrameSource produces the ordered frame sequence for one turn.
//
// Next blocks until the next frame is ready. The sequence must eventually
// produce a frame with IsFinal set, or return an error when the upstream
// generation fails outright; either ends the turn.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// Provider is the interface every LLM backend must satisfy. The engine
// never sees the transport; it only consumes the returned FrameSource.
type Provider interface {
	DefaultModel() string
	StreamChat(ctx context.Context, messages Messages, opts ChatOptions) (FrameSource, error)
}
