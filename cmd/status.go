package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storyloom status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s storyloom Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:     %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	_, wsErr := os.Stat(ws)
	wsMark := "✗"
	if wsErr == nil {
		wsMark = "✓"
	}
	fmt.Printf("Workspace:  %s %s\n", ws, wsMark)
	fmt.Printf("Images:     %s\n", cfg.OutputDir())
	fmt.Printf("Model:      %s\n", cfg.Agents.Defaults.Model)
	fmt.Printf("Max scenes: %d\n\n", cfg.Story.MaxScenes)

	fmt.Println("Providers:")
	for _, name := range []string{"openai", "dashscope", "custom"} {
		p := cfg.ProviderByName(name)
		if p.APIKey != "" {
			fmt.Printf("  %-12s ✓\n", name)
		} else {
			fmt.Printf("  %-12s (not set)\n", name)
		}
	}

	fmt.Println("\nShare targets:")
	printTarget := func(name string, enabled bool) {
		if enabled {
			fmt.Printf("  %-12s ✓\n", name)
		} else {
			fmt.Printf("  %-12s (disabled)\n", name)
		}
	}
	printTarget("telegram", cfg.Share.Telegram.Enabled)
	printTarget("slack", cfg.Share.Slack.Enabled)

	fmt.Printf("\nGateway:    %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	return nil
}
