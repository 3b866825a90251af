package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	def := config.DefaultConfig()
	workspace := def.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := os.MkdirAll(def.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", workspace)

	fmt.Printf("\n%s storyloom is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API keys to %s\n", cfgPath)
	fmt.Println("     (providers.dashscope for the default model and image generation)")
	fmt.Printf("  2. Chat: storyloom chat -m \"Tell me a story about a brave otter\"\n")
	return nil
}
