package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/styles"
)

// ImageGenerationTool renders one scene illustration via a remote
// text-to-image endpoint, saves the result under the output directory, and
// maps it to the scene's image and caption slots keyed by the idx parameter.
type ImageGenerationTool struct {
	endpoint   string
	apiKey     string
	model      string
	outputDir  string
	styles     *styles.Registry
	httpClient *http.Client
}

// NewImageGenerationTool creates the tool. endpoint is the synthesis API
// URL; generated files are written under outputDir.
func NewImageGenerationTool(endpoint, apiKey, model, outputDir string, styleReg *styles.Registry) *ImageGenerationTool {
	return &ImageGenerationTool{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		outputDir:  outputDir,
		styles:     styleReg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (t *ImageGenerationTool) Name() string { return string(ToolImageGeneration) }

func (t *ImageGenerationTool) Description() string {
	return "Generate an illustration for one story scene in the requested drawing style."
}

func (t *ImageGenerationTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "text", Description: "Scene text to illustrate", Required: true, Type: schema.ParamString},
		{Name: "idx", Description: "Zero-based scene index", Required: true, Type: schema.ParamInteger},
		{Name: "type", Description: "Drawing style name", Required: false, Type: schema.ParamString},
	}
}

func (t *ImageGenerationTool) Invoke(ctx context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	text := params["text"]
	idx, _ := strconv.Atoi(params["idx"]) // validated by the invoker

	path, err := t.generate(ctx, t.styles.Prompt(params["type"], text))
	if err != nil {
		return nil, err
	}

	return []schema.SlotUpdate{
		{Slot: schema.ImageSlot(idx), Value: path},
		{Slot: schema.CaptionSlot(idx), Value: text},
	}, nil
}

// synthesisRequest is the request body of the image endpoint.
type synthesisRequest struct {
	Model string `json:"model"`
	Input struct {
		Prompt string `json:"prompt"`
	} `json:"input"`
	Parameters struct {
		Size string `json:"size"`
		N    int    `json:"n"`
	} `json:"parameters"`
}

// synthesisResponse is the subset of the endpoint's reply we consume.
type synthesisResponse struct {
	Output struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
	Message string `json:"message"`
}

// generate calls the endpoint and downloads the first result into the
// output directory, returning its local path.
func (t *ImageGenerationTool) generate(ctx context.Context, prompt string) (string, error) {
	if t.endpoint == "" {
		return "", fmt.Errorf("image endpoint not configured")
	}

	var body synthesisRequest
	body.Model = t.model
	body.Input.Prompt = prompt
	body.Parameters.Size = "1024*1024"
	body.Parameters.N = 1

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call image endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image endpoint returned %d: %s", resp.StatusCode, truncateSpanBody(raw))
	}

	var parsed synthesisResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode synthesis response: %w", err)
	}
	if len(parsed.Output.Results) == 0 {
		return "", fmt.Errorf("image endpoint returned no results: %s", parsed.Message)
	}

	return t.download(ctx, parsed.Output.Results[0].URL)
}

// download fetches url into outputDir under a fresh name.
func (t *ImageGenerationTool) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(t.outputDir, uuid.NewString()+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return path, nil
}

func truncateSpanBody(raw []byte) string {
	s := string(raw)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
