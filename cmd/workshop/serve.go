package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop/api"
	"github.com/tendant/simple-workshop/pkg/workshop/metrics"
)

func newServeCommand(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the item catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.ListenAddr
			}
			return c.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from WORKSHOP_LISTEN_ADDR)")

	return cmd
}

func (c *cli) serve(ctx context.Context, addr string) error {
	em, closeFn, err := c.openEmulator(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	prom := metrics.NewProm("workshop")
	catalog := api.NewCatalogHandler(em.Repository(), em.Store(), c.logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(catalog, prom.Handler(), c.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("catalog server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.logger.Info("shutting down catalog server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
