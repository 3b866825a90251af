// Package extract implements the streaming tool-call parser: it scans
// generated text for delimiter-bounded JSON tool-call blocks and separates
// them from the displayable narrative.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/storyloom/storyloom/internal/schema"
)

// Marker tokens bounding a tool-call payload in generated text. These are
// wire-format constants; the model is prompted to emit them verbatim.
const (
	StartMarker = "<|startofthink|>"
	EndMarker   = "<|endofthink|>"
)

// Extract scans the cumulative text of one frame and returns every complete
// tool call found, in document order, together with the displayable residual.
//
// Each successfully parsed span is replaced by a single space in the residual
// to preserve word boundaries; a span whose payload is malformed is likewise
// removed and logged as a parse failure. A trailing start marker with no
// matching end marker truncates the residual from that point on: the pending
// block is not shown until a later frame completes it.
//
// Frames carry cumulative text, so callers re-run Extract on the full text of
// every frame; a block split across frames resolves itself once the frame
// containing the end marker arrives.
func Extract(text string) ([]schema.ToolCall, string) {
	var (
		calls    []schema.ToolCall
		residual strings.Builder
	)

	rest := text
	for {
		start := strings.Index(rest, StartMarker)
		if start < 0 {
			residual.WriteString(rest)
			break
		}

		residual.WriteString(rest[:start])
		rest = rest[start:]

		end := strings.Index(rest[len(StartMarker):], EndMarker)
		if end < 0 {
			// Incomplete block: hide everything from the start marker on.
			break
		}

		span := rest[:len(StartMarker)+end+len(EndMarker)]
		payload := rest[len(StartMarker) : len(StartMarker)+end]
		rest = rest[len(span):]

		call, err := parsePayload(payload)
		if err != nil {
			slog.Warn("dropping malformed tool-call block", "err", err, "span", truncateSpan(span))
			residual.WriteString(" ")
			continue
		}

		call.SourceSpan = span
		calls = append(calls, call)
		residual.WriteString(" ")
	}

	return calls, residual.String()
}

// wireCall is the JSON shape of a tool-call payload.
type wireCall struct {
	APIName    string         `json:"api_name"`
	Parameters map[string]any `json:"parameters"`
}

// parsePayload strips an optional code fence and decodes the enclosed JSON.
func parsePayload(payload string) (schema.ToolCall, error) {
	body := stripFence(payload)

	var wire wireCall
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return schema.ToolCall{}, fmt.Errorf("decode payload: %w", err)
	}
	if wire.APIName == "" {
		return schema.ToolCall{}, fmt.Errorf("payload missing api_name")
	}
	if wire.Parameters == nil {
		return schema.ToolCall{}, fmt.Errorf("payload missing parameters")
	}

	params := make(map[string]string, len(wire.Parameters))
	for name, value := range wire.Parameters {
		s, err := stringifyScalar(value)
		if err != nil {
			return schema.ToolCall{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		params[name] = s
	}

	return schema.ToolCall{APIName: wire.APIName, Parameters: params}, nil
}

// stripFence removes surrounding markdown code-fence notation, with or
// without a language tag ("```JSON"), from a payload.
func stripFence(payload string) string {
	body := strings.TrimSpace(payload)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = body[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isFenceTag(body[:nl]) {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "JSON")
		body = strings.TrimPrefix(body, "json")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// isFenceTag reports whether s is a plausible fence language tag.
func isFenceTag(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= 8 && !strings.ContainsAny(s, "{}\"")
}

// stringifyScalar converts a decoded scalar JSON value to its wire string.
// Composite values are rejected: the protocol carries flat string-keyed
// scalar parameter objects only.
func stringifyScalar(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected scalar value, got %T", value)
	}
}

func truncateSpan(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
