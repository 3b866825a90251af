// Package config defines the configuration schema for storyloom,
// loaded from ~/.storyloom/config.json. Missing fields fall back to
// defaults so a partial file is always usable.
package config

import (
	"os"
	"path/filepath"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for the supported LLM providers.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `json:"openai"`
	DashScope ProviderConfig `json:"dashscope"`
	Custom    ProviderConfig `json:"custom"`
}

// AgentDefaults holds default values for turn processing.
type AgentDefaults struct {
	Workspace    string  `json:"workspace"`
	Model        string  `json:"model"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
	MemoryWindow int     `json:"memoryWindow"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Workspace:    "~/.storyloom/workspace",
		Model:        "dashscope/qwen-max",
		MaxTokens:    4096,
		Temperature:  0.7,
		MemoryWindow: 40,
	}
}

// AgentsConfig wraps agent defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// StoryConfig configures the storyboard itself.
type StoryConfig struct {
	// MaxScenes is the number of image/caption slot pairs per session.
	MaxScenes int `json:"maxScenes"`
	// OutputDir receives generated illustrations. Empty means
	// <workspace>/images.
	OutputDir string `json:"outputDir,omitempty"`
	// StylesPath points at a YAML file of drawing-style presets. Empty
	// means the built-in presets.
	StylesPath string `json:"stylesPath,omitempty"`
	// ExampleImages are pre-rendered style samples served by the
	// show_image_example tool, one per style.
	ExampleImages []string `json:"exampleImages,omitempty"`
}

func defaultStoryConfig() StoryConfig {
	return StoryConfig{MaxScenes: 4}
}

// ImageGenConfig configures the text-to-image backend.
type ImageGenConfig struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	APIKey   string `json:"apiKey"`
}

func defaultImageGenConfig() ImageGenConfig {
	return ImageGenConfig{
		Endpoint: "https://dashscope.aliyuncs.com/api/v1/services/aigc/text2image/image-synthesis",
		Model:    "wanx-v1",
	}
}

// TranslationConfig configures the en→zh translation pipeline endpoint.
type TranslationConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey"`
}

// ToolsConfig groups per-tool settings.
type ToolsConfig struct {
	ImageGen    ImageGenConfig    `json:"imageGen"`
	Translation TranslationConfig `json:"translation"`
}

func defaultToolsConfig() ToolsConfig {
	return ToolsConfig{ImageGen: defaultImageGenConfig()}
}

// TelegramShareConfig configures storyboard delivery to a Telegram chat.
type TelegramShareConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
}

// SlackShareConfig configures storyboard delivery to a Slack channel.
type SlackShareConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// ShareConfig groups the outbound share targets.
type ShareConfig struct {
	Telegram TelegramShareConfig `json:"telegram"`
	Slack    SlackShareConfig    `json:"slack"`
}

// HousekeepingConfig configures periodic pruning of stale sessions and
// old generated images.
type HousekeepingConfig struct {
	Enabled           bool   `json:"enabled"`
	Schedule          string `json:"schedule"`
	MaxSessionAgeDays int    `json:"maxSessionAgeDays"`
	MaxImageAgeDays   int    `json:"maxImageAgeDays"`
}

func defaultHousekeepingConfig() HousekeepingConfig {
	return HousekeepingConfig{
		Enabled:           true,
		Schedule:          "0 3 * * *",
		MaxSessionAgeDays: 30,
		MaxImageAgeDays:   7,
	}
}

// GatewayConfig holds websocket gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func defaultGatewayConfig() GatewayConfig {
	return GatewayConfig{Host: "0.0.0.0", Port: 18790}
}

// Config is the root configuration object.
type Config struct {
	Agents       AgentsConfig       `json:"agents"`
	Providers    ProvidersConfig    `json:"providers"`
	Story        StoryConfig        `json:"story"`
	Tools        ToolsConfig        `json:"tools"`
	Share        ShareConfig        `json:"share"`
	Housekeeping HousekeepingConfig `json:"housekeeping"`
	Gateway      GatewayConfig      `json:"gateway"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:       AgentsConfig{Defaults: defaultAgentDefaults()},
		Providers:    ProvidersConfig{},
		Story:        defaultStoryConfig(),
		Tools:        defaultToolsConfig(),
		Share:        ShareConfig{},
		Housekeeping: defaultHousekeepingConfig(),
		Gateway:      defaultGatewayConfig(),
	}
}

// WorkspacePath returns the expanded absolute path to the workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agents.Defaults.Workspace
	if ws == "" {
		ws = "~/.storyloom/workspace"
	}
	return expandHome(ws)
}

// OutputDir returns the expanded directory for generated images.
func (c *Config) OutputDir() string {
	if c.Story.OutputDir != "" {
		return expandHome(c.Story.OutputDir)
	}
	return filepath.Join(c.WorkspacePath(), "images")
}

// ProviderByName returns a pointer to the ProviderConfig field matching
// the given registry name, or nil if unknown.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case "openai":
		return &c.Providers.OpenAI
	case "dashscope":
		return &c.Providers.DashScope
	case "custom":
		return &c.Providers.Custom
	}
	return nil
}

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
