package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/storyloom/storyloom/internal/schema"
)

// Invoker validates extracted tool calls against the registry and executes
// them. Every failure mode is normalized into an Outcome carrying a
// Failure; Invoke never panics and never returns an error, so a bad call
// can never abort the session loop.
type Invoker struct {
	registry *Registry
}

// NewInvoker creates an Invoker dispatching against registry.
func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// Invoke looks up, validates, and executes one tool call.
func (inv *Invoker) Invoke(ctx context.Context, call schema.ToolCall) schema.Outcome {
	tool := inv.registry.Get(call.APIName)
	if tool == nil {
		return failure(call.APIName, schema.FailureUnknownTool,
			fmt.Sprintf("no tool registered as %q", call.APIName))
	}

	if out, ok := validate(tool, call.Parameters); !ok {
		return out
	}

	updates, err := execute(ctx, tool, call.Parameters)
	if err != nil {
		slog.Warn("tool execution failed", "tool", tool.Name(), "err", err)
		return failure(tool.Name(), schema.FailureToolExecution, err.Error())
	}

	return schema.Outcome{Tool: tool.Name(), Updates: updates}
}

// validate checks the call parameters against the tool's declared contract.
// It returns ok=false with a populated failure Outcome on the first
// violation.
func validate(tool schema.Tool, params map[string]string) (schema.Outcome, bool) {
	for _, spec := range tool.Params() {
		value, present := params[spec.Name]
		if !present {
			if spec.Required {
				return failure(tool.Name(), schema.FailureMissingParameter,
					fmt.Sprintf("missing required parameter %q", spec.Name)), false
			}
			continue
		}
		if spec.Type == schema.ParamInteger {
			if _, err := strconv.Atoi(value); err != nil {
				return failure(tool.Name(), schema.FailureBadParameterType,
					fmt.Sprintf("parameter %q must be an integer, got %q", spec.Name, value)), false
			}
		}
	}
	return schema.Outcome{}, true
}

// execute runs the tool, converting a panic in the capability into an
// ordinary execution error.
func execute(ctx context.Context, tool schema.Tool, params map[string]string) (updates []schema.SlotUpdate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Invoke(ctx, params)
}

func failure(tool string, kind schema.FailureKind, reason string) schema.Outcome {
	return schema.Outcome{
		Tool:    tool,
		Failure: &schema.Failure{Kind: kind, Reason: reason},
	}
}
