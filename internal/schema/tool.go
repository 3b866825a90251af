// Package schema contains the core contracts shared across storyloom packages.
// Concrete implementations live in their respective packages; this package is the
// single canonical source of truth for every shared type and interface.
package schema

import "context"

// ParamType tags the expected shape of one tool parameter value.
type ParamType string

const (
	ParamString ParamType = "string"
	// ParamInteger values arrive string-typed on the wire ("0", "3") and
	// are validated as zero-based integers before invocation.
	ParamInteger ParamType = "integer"
)

// ParamSpec describes one parameter of a tool's invocation contract.
type ParamSpec struct {
	Name        string
	Description string
	Required    bool
	Type        ParamType
}

// Tool is the interface all agent-callable capabilities must satisfy.
// Params declares the validation contract the invoker enforces; Invoke
// receives parameters already checked against it and returns the slot
// updates the result maps to.
type Tool interface {
	Name() string
	Description() string
	Params() []ParamSpec
	Invoke(ctx context.Context, params map[string]string) ([]SlotUpdate, error)
}
