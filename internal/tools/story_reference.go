package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/shared/llmutils"
)

const referenceUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"

// maxReferenceChars bounds how much extracted text is woven into the
// transcript so one reference cannot drown the conversation.
const maxReferenceChars = 1200

// StoryReferenceTool fetches a web page and extracts its readable text as
// inspiration material for the story.
type StoryReferenceTool struct {
	httpClient *http.Client
}

// NewStoryReferenceTool creates the tool.
func NewStoryReferenceTool() *StoryReferenceTool {
	return &StoryReferenceTool{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *StoryReferenceTool) Name() string { return string(ToolStoryReference) }

func (t *StoryReferenceTool) Description() string {
	return "Fetch a web page and extract its readable text as story reference material."
}

func (t *StoryReferenceTool) Params() []schema.ParamSpec {
	return []schema.ParamSpec{
		{Name: "url", Description: "Page to fetch", Required: true, Type: schema.ParamString},
	}
}

func (t *StoryReferenceTool) Invoke(ctx context.Context, params map[string]string) ([]schema.SlotUpdate, error) {
	rawURL := params["url"]
	if err := validateURL(rawURL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", referenceUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	parsed, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("extract readable text: %w", err)
	}

	text := strings.TrimSpace(parsed.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", rawURL)
	}

	fragment := fmt.Sprintf("Reference notes from %s:\n%s",
		llmutils.StringOrDefault(parsed.Title, rawURL),
		llmutils.Truncate(text, maxReferenceChars))

	return []schema.SlotUpdate{
		{Slot: schema.TranscriptSlot(), Value: fragment},
	}, nil
}

// validateURL checks that url is http(s) with a valid domain.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}
