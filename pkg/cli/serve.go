package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneypot/moneypot/pkg/api"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pot API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := c.service()
			if err != nil {
				return err
			}

			cfg := api.DefaultConfig()
			cfg.Addr = c.app.Server.Addr
			cfg.RequestTimeout = time.Duration(c.app.Server.RequestTimeoutMs) * time.Millisecond
			if addr != "" {
				cfg.Addr = addr
			}

			server := api.NewServer(cfg, svc, c.logger)
			c.printInfo("Listening on http://" + server.Addr())
			if err := server.Run(ctx); err != nil {
				return err
			}
			c.printSuccess("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
