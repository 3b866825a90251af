package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/container"
	"github.com/storyloom/storyloom/internal/gateway"
	"github.com/storyloom/storyloom/internal/housekeeping"
)

var gatewayPort int

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the storyloom websocket gateway",
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().IntVarP(&gatewayPort, "port", "p", 0, "Gateway port (overrides config)")
}

func runGateway(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	port := cfg.Gateway.Port
	if gatewayPort != 0 {
		port = gatewayPort
	}
	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, port)

	fmt.Printf("%s Starting storyloom gateway on %s...\n", logo, addr)

	srv := gateway.NewServer(c.Loop(), c.Sharers(), cfg.OutputDir())
	hk := housekeeping.NewService(cfg.Housekeeping, c.Sessions().SessionsDir(), cfg.OutputDir())

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx, addr) })
	g.Go(func() error { return hk.Start(gctx) })

	fmt.Printf("%s Gateway running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
