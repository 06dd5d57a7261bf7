package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/table-reservation-agent/api"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			srv := &api.Server{Chat: a.orchestrator, StoreID: a.cfg.StoreID}
			return api.Start(ctx, addr, srv.Routes())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default APP_HTTP_ADDR)")
	return cmd
}
