package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"makermate/internal/httpapi"
	"makermate/internal/logging"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP endpoints",
	Long: `Run the /api endpoints used by the AI features: model discovery and
listing, option drafting, HLD/ERD drafts, the licensing document fetcher, the
M365 roadmap proxy, the delegation and error analysers, and the cached
roadmap and estimating summary. The roadmap is refreshed in the background
and estimating changes written by other hosts sharing the store are followed
until shutdown.

Examples:
  makermate serve
  makermate serve --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides HTTP_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, deps, err := httpapi.NewRouter(ctx, cfg)
	if err != nil {
		return err
	}
	deps.Start(ctx)

	port := cfg.HTTPPort
	if servePort != "" {
		port = servePort
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Upstream.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("MakerMate listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			deps.Shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logging.Infof("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warningf("Server forced to shutdown: %v", err)
	}
	if err := deps.Shutdown(shutdownCtx); err != nil {
		logging.Warningf("Failed to release dependencies: %v", err)
	}
	logging.Infof("Server exited")
	return nil
}
