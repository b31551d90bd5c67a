package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prizedrop/internal/api/handler"
	"prizedrop/internal/config"
	"prizedrop/internal/container"
	"prizedrop/internal/services"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	injector := container.NewContainer(cfg)

	app := &cli.App{
		Name: "api",
		Commands: []*cli.Command{
			commandServer(injector),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(injector *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "0.0.0.0:8080",
				Usage: "serve address",
			},
			&cli.StringFlag{
				Name:    "mode",
				Value:   "production",
				EnvVars: []string{"API_MODE"},
			},
			&cli.StringFlag{
				Name:    "origins",
				Value:   "*",
				EnvVars: []string{"API_ORIGINS"},
			},
			&cli.BoolFlag{
				Name:  "dispatch",
				Usage: "also run the prize dispatcher in this process",
			},
		},
		Action: func(c *cli.Context) error {
			logger := do.MustInvoke[*slog.Logger](injector)

			cfg := do.MustInvoke[*config.Config](injector)
			router, err := handler.New(&handler.Config{
				Container:          injector,
				Mode:               c.String("mode"),
				Origins:            strings.Split(c.String("origins"), ","),
				TrustGatewayHeader: cfg.TrustGatewayHeader,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:    c.String("addr"),
				Handler: router,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var dispatcher *services.ServiceDispatcher
			if c.Bool("dispatch") {
				dispatcher, err = do.Invoke[*services.ServiceDispatcher](injector)
				if err != nil {
					return err
				}
				dispatcher.Start(ctx)
			}

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				logger.Info("listen and serve", "addr", c.String("addr"), "mode", c.String("mode"))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if dispatcher != nil {
					if err := dispatcher.Stop(shutdownCtx); err != nil {
						logger.Error("dispatcher stop", "error", err)
					}
				}
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}

				serviceClaim, err := do.Invoke[*services.ServiceClaim](injector)
				if err == nil {
					if err := serviceClaim.Drain(shutdownCtx); err != nil {
						logger.Error("claim drain", "error", err)
					}
				}

				return do.MustInvoke[*bun.DB](injector).Close()
			})

			return errWg.Wait()
		},
	}
}
