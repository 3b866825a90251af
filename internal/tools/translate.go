package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/storyloom/storyloom/internal/schema"
)

// TranslationTool translates English text to Chinese through a remote
// pipeline endpoint. The translation is appended to the transcript.
type TranslationTool struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewTranslationTool creates the tool for the given pipeline endpoint.
func NewTranslationTool(endpoint, apiKey string) *TranslationTool {
	return &TranslationTool{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TranslationTool) Name() string { return string(ToolTranslateEn2Zh) }

func (t *TranslationTool) Description() string {
	return "Translate English text into Chinese."
}

func (t *TranslationTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "input", Description: "English text to translate", Required: true, Type: schema.ParamString},
	}
}

// pipelineResponse mirrors the pipeline service reply shape.
type pipelineResponse struct {
	Data struct {
		Translation string `json:"translation"`
	} `json:"Data"`
	Message string `json:"Message"`
}

func (t *TranslationTool) Invoke(ctx context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	if t.endpoint == "" {
		return nil, fmt.Errorf("translation endpoint not configured")
	}

	body, err := json.Marshal(map[string]any{
		"input": map[string]string{"text": params["input"]},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal translation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call translation endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read translation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translation endpoint returned %d", resp.StatusCode)
	}

	var parsed pipelineResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode translation response: %w", err)
	}
	if parsed.Data.Translation == "" {
		return nil, fmt.Errorf("empty translation result: %s", parsed.Message)
	}

	return []schema.SlotUpdate{
		{Slot: schema.TranscriptSlot(), Value: parsed.Data.Translation},
	}, nil
}
