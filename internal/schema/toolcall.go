package schema

import "fmt"

// ToolCall is one structured tool invocation extracted from generated text.
type ToolCall struct {
	// APIName is the registry key of the requested tool.
	APIName string
	// Parameters holds the call arguments. Scalar JSON values are carried
	// as their string form; scene-indexed tools receive the index as a
	// string-typed "idx" parameter.
	Parameters map[string]string
	// SourceSpan is the raw delimited substring the call was extracted from.
	SourceSpan string
}

// FailureKind tags the reason a tool invocation or slot update failed.
type FailureKind string

const (
	FailureUnknownTool      FailureKind = "unknown_tool"
	FailureMissingParameter FailureKind = "missing_parameter"
	FailureBadParameterType FailureKind = "bad_parameter_type"
	FailureToolExecution    FailureKind = "tool_execution_error"
	FailureSlotOutOfRange   FailureKind = "slot_out_of_range"
)

// Failure describes a non-fatal tool or routing error. Failures are data:
// they surface as diagnostic fragments in the transcript, never as raised
// errors past the session loop.
type Failure struct {
	Kind   FailureKind
	Reason string
}

// Outcome is the normalized result of one tool invocation: either a list
// of slot updates or a Failure, never both.
type Outcome struct {
	Tool    string
	Updates []SlotUpdate
	Failure *Failure
}

// Diagnostic renders a failure as the plain narrative fragment shown to
// the user. It returns "" for successful outcomes.
func (o Outcome) Diagnostic() string {
	if o.Failure == nil {
		return ""
	}
	return fmt.Sprintf("tool %s failed: %s", o.Tool, o.Failure.Reason)
}
