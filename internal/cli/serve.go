package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/baxromumarov/page-diff/internal/api"
	"github.com/baxromumarov/page-diff/internal/observability"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the comparison web server",
	Long: `Serves the comparison form on / and the JSON endpoint on /api/compare.
Settings come from --config, then PAGEDIFF_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	setLogger(cmd.ErrOrStderr(), cfg.LogLevel(), true)

	srv := api.NewServer(newCompareService(cfg), observability.NewStats(), cfg.Server.AllowedOrigins)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.ListenAndServe(ctx, cfg.Server.Addr, srv.Router(), cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
