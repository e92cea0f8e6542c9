package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"pingrank/internal/config"
	"pingrank/internal/constants"
	fxmodules "pingrank/internal/fx"
	"pingrank/internal/server"
	"pingrank/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runCommentaryWorker),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:      c.Handler(server.NewRouter(srv, cfg, logger)),
		ReadTimeout:  constants.RequestTimeout,
		WriteTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", httpSrv.Addr).Msg("server starting")
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runCommentaryWorker(
	lc fx.Lifecycle,
	worker *service.CommentaryWorker,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	g := new(errgroup.Group)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g.Go(func() error {
				return worker.Run(ctx)
			})
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if err := g.Wait(); err != nil && err != context.Canceled {
				logger.Warn().Err(err).Msg("commentary worker stopped with error")
			}
			return nil
		},
	})
}
