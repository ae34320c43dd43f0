// =============================================================================
// File Mapper - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which starts the web interface.
//
// COMMAND USAGE:
//   converter serve [--addr 127.0.0.1:8080] [--max-upload BYTES]
//
// The server runs until interrupted (Ctrl+C or SIGTERM), then drains open
// requests for up to ten seconds.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/file-mapper/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start an HTTP server with a browser interface for uploading a file, editing
its column mapping and downloading the CSV or OFX export.

The JSON API behind the page is served under /api.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().Int64("max-upload", 32<<20, "Maximum upload size in bytes")
	serveCmd.Flags().String("default-type", "CREDIT", "TRNTYPE written for OFX rows without one")
	addInputFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, newLoader(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
