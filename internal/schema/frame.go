package schema

// Frame is one unit of generated text received from a FrameSource.
//
// Text is the cumulative narrative for the current turn in its
// model-visible form: it may contain complete, partial, or repeated
// tool-call marker spans. Consumers must re-scan the full text of each
// frame rather than diff against the previous one; a frame is allowed to
// rewrite earlier content entirely.
type Frame struct {
	Text    string
	IsFinal bool
}
