package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/controller/httpserver"
	"github.com/m-mizutani/membox/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("MEMBOX_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for image uploads",
			Sources:     cli.EnvVars("MEMBOX_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the memory HTTP service",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, logger := cfg.setupLogger(ctx, os.Stderr)

			memUC, _, gemini, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			// Sub-store activation must finish before routed traffic is
			// accepted; failures degrade to the default bucket
			migrated := memUC.Activate(ctx)
			logger.Info("sub-store activation finished", "migrated", migrated)

			chatUC := chat.New(memUC, gemini)
			router := httpserver.NewRouter(memUC, chatUC, storage, logger)
			srv := httpserver.NewServer(addr, router)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting membox", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "server failed")
				}
			case sig := <-sigCh:
				logger.Info("shutting down", "signal", sig.String())
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "graceful shutdown failed")
				}
			}

			return nil
		},
	}
}
