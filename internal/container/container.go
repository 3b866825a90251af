// Package container wires the storyloom services using go.uber.org/dig.
package container

import (
	"fmt"
	"strings"

	"go.uber.org/dig"

	"github.com/storyloom/storyloom/internal/agent"
	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/providers"
	"github.com/storyloom/storyloom/internal/schema"
	"github.com/storyloom/storyloom/internal/session"
	"github.com/storyloom/storyloom/internal/share"
	"github.com/storyloom/storyloom/internal/styles"
	"github.com/storyloom/storyloom/internal/tools"
)

// Container holds the resolved service singletons. Callers use the typed
// getter methods; they never need to import dig directly.
type Container struct {
	provider schema.Provider
	sessions *session.Manager
	loop     *agent.Loop
	sharers  []share.Sharer
}

func (c *Container) Provider() schema.Provider  { return c.provider }
func (c *Container) Sessions() *session.Manager { return c.sessions }
func (c *Container) Loop() *agent.Loop          { return c.loop }
func (c *Container) Sharers() []share.Sharer    { return c.sharers }

// llmModelKey is a named string type so dig can distinguish it from plain
// strings when injecting the bare model name.
type llmModelKey string

// New builds and wires all services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	for _, provide := range []any{
		func() *config.Config { return cfg },
		newProvider,
		resolveLLMModel,
		newStyleRegistry,
		newToolRegistry,
		newInvoker,
		newSessionManager,
		newPromptBuilder,
		newLoop,
		newSharers,
	} {
		if err := d.Provide(provide); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.Provider,
		sessions *session.Manager,
		loop *agent.Loop,
		sharers []share.Sharer,
	) {
		result = &Container{
			provider: provider,
			sessions: sessions,
			loop:     loop,
			sharers:  sharers,
		}
	})
	return result, err
}

// splitModel decomposes "provider/model" into its parts. A bare model
// name defaults to the openai provider.
func splitModel(model string) (providerName, bareModel string) {
	if i := strings.IndexByte(model, '/'); i > 0 {
		return model[:i], model[i+1:]
	}
	return "openai", model
}

func newProvider(cfg *config.Config) (schema.Provider, error) {
	providerName, bareModel := splitModel(cfg.Agents.Defaults.Model)
	pc := cfg.ProviderByName(providerName)
	if pc == nil {
		return nil, fmt.Errorf("unknown provider %q in model %q", providerName, cfg.Agents.Defaults.Model)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q — edit %s", providerName, config.ConfigPath())
	}

	apiBase := pc.APIBase
	if apiBase == "" && providerName == "dashscope" {
		apiBase = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	return providers.New(providers.Params{
		APIKey:       pc.APIKey,
		APIBase:      apiBase,
		DefaultModel: bareModel,
		ExtraHeaders: pc.ExtraHeaders,
	}), nil
}

func resolveLLMModel(cfg *config.Config, p schema.Provider) llmModelKey {
	_, bareModel := splitModel(cfg.Agents.Defaults.Model)
	if bareModel == "" {
		bareModel = p.DefaultModel()
	}
	return llmModelKey(bareModel)
}

func newStyleRegistry(cfg *config.Config) (*styles.Registry, error) {
	return styles.Load(cfg.Story.StylesPath)
}

func newToolRegistry(cfg *config.Config, styleReg *styles.Registry) *tools.Registry {
	imgCfg := cfg.Tools.ImageGen
	return tools.NewRegistryBuilder().
		WithTool(tools.NewPrintStoryTool()).
		WithTool(tools.NewShowExampleTool(cfg.Story.ExampleImages)).
		WithTool(tools.NewImageGenerationTool(imgCfg.Endpoint, imgCfg.APIKey, imgCfg.Model, cfg.OutputDir(), styleReg)).
		WithTool(tools.NewTranslationTool(cfg.Tools.Translation.Endpoint, cfg.Tools.Translation.APIKey)).
		WithTool(tools.NewStoryReferenceTool()).
		Build()
}

func newInvoker(registry *tools.Registry) *tools.Invoker {
	return tools.NewInvoker(registry)
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.WorkspacePath(), cfg.Story.MaxScenes)
}

func newPromptBuilder(cfg *config.Config, registry *tools.Registry) *agent.PromptBuilder {
	return agent.NewPromptBuilder(registry, cfg.Story.MaxScenes)
}

func newLoop(
	p schema.Provider,
	invoker *tools.Invoker,
	sessions *session.Manager,
	prompts *agent.PromptBuilder,
	cfg *config.Config,
	model llmModelKey,
) *agent.Loop {
	return agent.NewLoop(p, invoker, sessions, prompts, agent.Settings{
		Model:        string(model),
		MaxTokens:    cfg.Agents.Defaults.MaxTokens,
		Temperature:  cfg.Agents.Defaults.Temperature,
		MemoryWindow: cfg.Agents.Defaults.MemoryWindow,
	})
}

func newSharers(cfg *config.Config) []share.Sharer {
	return share.FromConfig(cfg.Share)
}
