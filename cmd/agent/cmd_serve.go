package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	configx "github.com/luis-bzk/llm-agent/pkg/config"
	"github.com/luis-bzk/llm-agent/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP message endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		scheduler, err := buildScheduler(db)
		if err != nil {
			return err
		}

		srvCfg := configx.MustNew[server.Config]("SERVER")
		srv := server.New(scheduler, *srvCfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
