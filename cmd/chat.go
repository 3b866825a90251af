package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/agent"
	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/container"
	"github.com/storyloom/storyloom/internal/render"
	"github.com/storyloom/storyloom/internal/share"
)

var (
	chatMessage string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the story agent",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:direct", "Session ID")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	if chatMessage != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		return streamTurn(ctx, c.Loop(), chatSession, chatMessage)
	}

	return runInteractive(c)
}

// runInteractive starts the REPL loop: reads lines from stdin, streams
// each turn's snapshots as they arrive, and prompts again when done.
func runInteractive(c *container.Container) error {
	fmt.Printf("%s Interactive mode (/new resets, /share publishes, 'exit' or Ctrl+C quits)\n\n", logo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenForSignals(cancel)

	loop := c.Loop()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		switch strings.ToLower(line) {
		case "/new":
			if err := loop.Reset(chatSession); err != nil {
				fmt.Fprintf(os.Stderr, "reset failed: %v\n", err)
				continue
			}
			fmt.Println("Started a fresh story.")
		case "/share":
			sharers := c.Sharers()
			if len(sharers) == 0 {
				fmt.Println("No share targets configured — enable telegram or slack in config.")
				continue
			}
			if err := share.ShareAll(ctx, sharers, loop.Snapshot(chatSession)); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				continue
			}
			fmt.Println("Storyboard shared.")
		case "/help":
			fmt.Println("/new    start a fresh story")
			fmt.Println("/share  send the storyboard to the configured targets")
			fmt.Println("exit    quit")
		default:
			if err := streamTurn(ctx, loop, chatSession, line); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}
	}
}

// streamTurn runs one turn and prints the agent text as it grows, then
// the storyboard panels at the end.
func streamTurn(ctx context.Context, loop *agent.Loop, sessionKey, input string) error {
	seq, err := loop.RunTurn(ctx, sessionKey, input)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s storyloom\n", logo)
	printed := ""
	var last render.Snapshot
	for snap := range seq {
		last = snap
		cur := currentAgentText(snap)
		if strings.HasPrefix(cur, printed) {
			fmt.Print(cur[len(printed):])
		} else {
			// Tool fragments restructure the text; reprint the tail.
			fmt.Print("\n" + cur)
		}
		printed = cur
	}
	fmt.Println()
	printStoryboard(last)
	return nil
}

func currentAgentText(snap render.Snapshot) string {
	if len(snap.Transcript) == 0 {
		return ""
	}
	return snap.Transcript[len(snap.Transcript)-1].AgentText
}

// printStoryboard shows the story panel and any filled scenes.
func printStoryboard(snap render.Snapshot) {
	if snap.Story != "" {
		fmt.Printf("\n--- Story ---\n%s\n", snap.Story)
	}
	for i, img := range snap.Images {
		if img == "" {
			continue
		}
		caption := ""
		if i < len(snap.Captions) {
			caption = snap.Captions[i]
		}
		fmt.Printf("Scene %d: %s\n  %s\n", i+1, img, caption)
	}
	fmt.Println()
}

// listenForSignals cancels ctx on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()
}
