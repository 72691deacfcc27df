package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"genvid/internal/adapters/relay"
	"genvid/internal/config"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the self-hosted asset relay",
	Long: `Serve staged input assets over HTTP so the generation services can fetch
them. Use this instead of the hosting relay when the machine is reachable
from the internet; point relay.base_url at its public address.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv := relay.NewServer(filepath.Join(cfg.DataDir, "relay"), cfg.Relay.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving assets on %s (public base %s)\n", cfg.Relay.Listen, cfg.Relay.BaseURL)
	return srv.ListenAndServe(ctx, cfg.Relay.Listen)
}
