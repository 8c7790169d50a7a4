// Command devserver runs the in-memory marketplace API and push channel for
// local development of the flatfinder client.
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

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/devserver"
	"github.com/JoCoor/flatfinder-client/pkg/logutils"
)

func main() {
	var (
		addr      string
		level     string
		seed      bool
		tokenTTL  time.Duration
		joinEvent string
		msgEvent  string
	)

	app := &cli.Command{
		Name:  "devserver",
		Usage: "Run an in-memory marketplace API with a websocket push channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Sources:     cli.EnvVars("DEVSERVER_ADDR"),
				Value:       "127.0.0.1:5000",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("DEVSERVER_LOG_LEVEL"),
				Value:       "info",
				Destination: &level,
			},
			&cli.BoolFlag{
				Name:        "seed",
				Usage:       "create demo accounts and flats (password: " + devserver.SeedPassword + ")",
				Destination: &seed,
			},
			&cli.DurationFlag{
				Name:        "token-ttl",
				Usage:       "lifetime of issued tokens",
				Value:       24 * time.Hour,
				Destination: &tokenTTL,
			},
			&cli.StringFlag{
				Name:        "join-event",
				Usage:       "push frame type a client sends to subscribe",
				Value:       realtime.DefaultJoinEvent,
				Destination: &joinEvent,
			},
			&cli.StringFlag{
				Name:        "message-event",
				Usage:       "push frame type announcing a new message",
				Value:       realtime.DefaultMessageEvent,
				Destination: &msgEvent,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			logger, err := logutils.NewConsole(level, os.Stderr)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}

			srv := devserver.New(devserver.Options{
				Logger:       logger,
				TokenTTL:     tokenTTL,
				JoinEvent:    joinEvent,
				MessageEvent: msgEvent,
			})
			if seed {
				if err := srv.Seed(); err != nil {
					return err
				}
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("listening")
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
