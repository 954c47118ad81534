package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7331", "Listen address")
	rootCmd.AddCommand(mcpCmd, serveCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the kit tools over JSON-RPC on stdin/stdout",
	Long: `Run a tool server speaking line-delimited JSON-RPC 2.0 (initialize, tools/list,
tools/call) on stdin and stdout, for use by coding agents. Logs go to stderr. The server exits when stdin is closed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := toolServer(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("tool server listening on stdio", zap.Int("tools", len(srv.Tools())))
		err = srv.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kit tools over HTTP",
	Long: `Run the tool server over HTTP:

  GET  /tools          tool descriptions
  POST /tools/{name}   call a tool with a JSON object body
  GET  /metrics        Prometheus metrics
  GET  /healthz        liveness`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := toolServer(ctx)
		if err != nil {
			return err
		}
		httpSrv := &http.Server{
			Addr:              serveAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpSrv.ListenAndServe()
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d tools on http://%s\n", len(srv.Tools()), serveAddr)

		select {
		case err := <-errCh:
			return fmt.Errorf("serving http: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	},
}
