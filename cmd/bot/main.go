package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prizedrop/internal/config"
	"prizedrop/internal/container"
	"prizedrop/internal/services"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"
)

const (
	contextContainer = "context-container"

	shutdownTimeout = 30 * time.Second
)

func main() {
	app := &cli.App{
		Name: "bot-telegram",
		Commands: []*cli.Command{
			commandBot(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Usage:  "run the bot and the prize dispatcher",
		Action: action,
	}
}

func action(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.BotToken == "" {
		return cli.Exit("BOT_TOKEN is required", 1)
	}

	injector := container.NewContainer(cfg)
	logger := do.MustInvoke[*slog.Logger](injector)

	bot, err := do.Invoke[*services.Bot](injector)
	if err != nil {
		return err
	}
	b := bot.Tele()

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(contextContainer, injector)
			return next(c)
		}
	})

	b.Handle("/start", commandStart)
	b.Handle("/rating", commandRating)
	b.Handle("/score", commandScore)
	b.Handle("/bonus", commandBonus)
	b.Handle("/admin_add_prize", commandAdminAddPrize)
	b.Handle(tele.OnPhoto, commandAdminAddPrizePhoto)
	b.Handle("/admin_set_interval", commandAdminSetInterval)
	b.Handle("/admin_bonus", commandAdminBonus)
	b.Handle("/admin_load_prizes", commandAdminLoadPrizes)
	b.Handle(&services.BtnClaim, callbackClaim)

	dispatcher, err := do.Invoke[*services.ServiceDispatcher](injector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		logger.Info("bot started", "username", b.Me.Username)
		dispatcher.Start(errCtx)
		b.Start()
		return nil
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		b.Stop()
		return shutdown(injector, logger)
	})

	return errWg.Wait()
}

// shutdown stops the dispatcher, drains claims and closes the database.
func shutdown(injector *do.Injector, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	dispatcher := do.MustInvoke[*services.ServiceDispatcher](injector)
	if err := dispatcher.Stop(ctx); err != nil {
		logger.Error("dispatcher stop", "error", err)
	}

	serviceClaim := do.MustInvoke[*services.ServiceClaim](injector)
	if err := serviceClaim.Drain(ctx); err != nil {
		logger.Error("claim drain", "error", err)
	}

	return do.MustInvoke[*bun.DB](injector).Close()
}
