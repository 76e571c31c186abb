package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard as a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src := dataset.FileSource(c.Dataset, c.LoadOptions())
		srv := server.New(src, server.Options{SortMode: c.Sort(), PageSize: c.PageSize})

		// Load in the background; data endpoints answer 503 until it finishes.
		go func() {
			if err := srv.Reload(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: dataset load failed (POST /api/reload to retry): %v\n", err)
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "✓ evdash serving %s on http://%s\n", c.Dataset, addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}
