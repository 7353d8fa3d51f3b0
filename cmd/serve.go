package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Docs.Migrate(ctx); err != nil {
			return err
		}

		srvHandlers := server.New(env.Aggregator, env.Ranker, env.Recipes, env.Docs)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srvHandlers.Router(cfg.Server.AllowedOrigins),
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveHTTP(ctx, srv)
	},
}

// shutdownGrace bounds how long in-flight requests may drain after a
// stop signal.
const shutdownGrace = 10 * time.Second

// serveHTTP runs srv until ctx is canceled, then drains in-flight
// requests. The signal context is already canceled by the time the
// drain starts, so the drain runs on its own deadline.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(drainCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
