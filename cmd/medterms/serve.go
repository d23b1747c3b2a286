package main

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

	"github.com/bobmcallan/medterms/internal/app"
	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp(configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			defer a.Close()

			if _, err := a.Terms.Load(cmd.Context()); err != nil {
				a.Logger.Warn().Err(err).Msg("Terms file unreadable - run 'medterms init' to create it")
			}

			common.PrintBanner(a.Config, a.Logger)

			srv := server.NewServer(a)
			errChan := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			a.Logger.Info().
				Str("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)).
				Msg("Server ready")

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-sigChan:
				a.Logger.Info().Msg("Shutdown signal received")
			case err := <-errChan:
				a.Logger.Error().Err(err).Msg("HTTP server failed")
				return err
			}

			common.PrintShutdownBanner(a.Logger)

			// Graceful shutdown
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
			}

			a.Logger.Info().Msg("Server stopped")
			return nil
		},
	}
}
