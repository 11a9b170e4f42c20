package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"

	"github.com/gradeflow/gradeflow/internal/config"
	"github.com/gradeflow/gradeflow/internal/webserver"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		port        int
		host        string
		resultsDir  string
		origins     []string
		noBrowser   bool
		allowRemote bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status view for finished batches",
		Long: `Serve a read-only status view of finished batches.

Every ledger.json under the results directory (directly, or one level down
in a batch output directory) is loaded and exposed over HTTP:

  GET /api/health
  GET /api/batches
  GET /api/batches/{id}/progress
  GET /api/batches/{id}/records
  GET /api/batches/{id}/records/{student}
  GET /api/batches/{id}/records/{student}/report

To watch a batch while it runs, use "gradeflow run --serve <port>".

The server binds to 127.0.0.1 unless --allow-remote is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = config.FromEnv().Port
			}
			host = resolveHost(host, allowRemote, slog.Default())

			srv, err := webserver.New(webserver.Config{
				Host:           host,
				Port:           port,
				ResultsDir:     resultsDir,
				AllowedOrigins: origins,
				NoBrowser:      noBrowser,
				Logger:         slog.Default(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %d batch(es) from %s at %s\n", //nolint:errcheck
				len(srv.Registry().IDs()), resultsDir, srv.URL())
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: $GRADEFLOW_PORT or 3000)")
	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default: 127.0.0.1)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "results", "Directory containing batch ledger files")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin (can be repeated)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser")
	cmd.Flags().BoolVar(&allowRemote, "allow-remote", false,
		"Allow binding to non-loopback addresses (WARNING: exposes student reports to the network with no authentication)")

	return cmd
}

// resolveHost keeps the server on loopback unless remote access was asked for.
func resolveHost(host string, allowRemote bool, logger *slog.Logger) string {
	host = strings.TrimSpace(host)
	if allowRemote {
		if host == "" {
			host = "0.0.0.0"
		}
		logger.Warn("status server binding beyond loopback, no authentication is provided", "host", host)
		return host
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		return "127.0.0.1"
	}
	if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
		logger.Warn("non-loopback host requires --allow-remote, using 127.0.0.1", "host", host)
		return "127.0.0.1"
	}
	return host
}
