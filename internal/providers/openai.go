// Package providers implements LLM backends behind the schema.Provider
// contract. The engine consumes them only as frame sources.
package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storyloom/storyloom/internal/schema"
)

// OpenAIProvider streams chat completions from any OpenAI-compatible
// endpoint over SSE and exposes the stream as cumulative frames.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	extraHeaders map[string]string
	httpClient   *http.Client
}

// Params carries the raw config values for a provider. The caller extracts
// these from config.Config to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	ExtraHeaders map[string]string
}

// New constructs an OpenAIProvider from raw config values.
func New(p Params) *OpenAIProvider {
	base := p.APIBase
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey:       p.APIKey,
		apiBase:      strings.TrimRight(base, "/"),
		defaultModel: p.DefaultModel,
		extraHeaders: p.ExtraHeaders,
		httpClient:   &http.Client{Timeout: 300 * time.Second},
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// StreamChat implements schema.Provider. The returned FrameSource yields
// one frame per content delta, each carrying the full text accumulated so
// far; the frame that exhausts the stream has IsFinal set.
func (p *OpenAIProvider) StreamChat(
	ctx context.Context,
	messages schema.Messages,
	opts schema.ChatOptions,
) (schema.FrameSource, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":       model,
		"messages":    messages.Messages,
		"stream":      true,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call chat endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseFrameSource{body: resp.Body, scanner: scanner}, nil
}

// sseFrameSource converts an SSE chat-completions stream into the Frame
// contract. Each Next call consumes events until it has new content,
// returning the cumulative text so far.
type sseFrameSource struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	text    strings.Builder
	done    bool
}

// chunk is the subset of a streamed chat-completions event we consume.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (s *sseFrameSource) Next(ctx context.Context) (schema.Frame, error) {
	if s.done {
		return schema.Frame{Text: s.text.String(), IsFinal: true}, nil
	}

	for s.scanner.Scan() {
		select {
		case <-ctx.Done():
			s.close()
			return schema.Frame{}, ctx.Err()
		default:
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.close()
			return schema.Frame{Text: s.text.String(), IsFinal: true}, nil
		}

		var c chunk
		if err := json.Unmarshal([]byte(payload), &c); err != nil || len(c.Choices) == 0 {
			continue
		}
		choice := c.Choices[0]
		if choice.Delta.Content != "" {
			s.text.WriteString(choice.Delta.Content)
			return schema.Frame{Text: s.text.String()}, nil
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.close()
			return schema.Frame{Text: s.text.String(), IsFinal: true}, nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.close()
		return schema.Frame{}, fmt.Errorf("read chat stream: %w", err)
	}

	// Stream ended without [DONE]; treat what we have as final.
	s.close()
	return schema.Frame{Text: s.text.String(), IsFinal: true}, nil
}

func (s *sseFrameSource) close() {
	if !s.done {
		s.done = true
		s.body.Close()
	}
}
