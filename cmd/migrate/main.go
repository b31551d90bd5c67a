package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"prizedrop/internal/archive"
	"prizedrop/internal/config"
	"prizedrop/internal/container"
	"prizedrop/internal/datastore"
	"prizedrop/internal/services"

	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandLoadPrizes(),
			commandObscureAll(),
			commandConfigMigration(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func getContainer() (*do.Injector, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.NewContainer(cfg), nil
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables and indexes",
		Action: func(c *cli.Context) error {
			injector, err := getContainer()
			if err != nil {
				return err
			}

			db := do.MustInvoke[*bun.DB](injector)
			defer db.Close()

			if err := datastore.CreateTables(c.Context, db); err != nil {
				return err
			}

			fmt.Println("tables created")
			return nil
		},
	}
}

func commandLoadPrizes() *cli.Command {
	return &cli.Command{
		Name:  "load-prizes",
		Usage: "register every original image in the archive as a prize",
		Action: func(c *cli.Context) error {
			injector, err := getContainer()
			if err != nil {
				return err
			}

			servicePrize, err := do.Invoke[*services.ServicePrize](injector)
			if err != nil {
				return err
			}

			loaded, err := servicePrize.LoadPrizes(c.Context)
			if err != nil {
				return err
			}

			fmt.Println("prizes loaded:", loaded)
			return nil
		},
	}
}

func commandObscureAll() *cli.Command {
	return &cli.Command{
		Name:  "obscure",
		Usage: "render the teaser of every original image",
		Action: func(c *cli.Context) error {
			injector, err := getContainer()
			if err != nil {
				return err
			}

			arc := do.MustInvoke[archive.Archive](injector)
			servicePrize, err := do.Invoke[*services.ServicePrize](injector)
			if err != nil {
				return err
			}

			keys, err := arc.List(c.Context, archive.Originals)
			if err != nil {
				return err
			}

			for _, key := range keys {
				if _, err := servicePrize.Obscure(c.Context, key); err != nil {
					fmt.Println("skip", key, err)
					continue
				}
				fmt.Println("obscured", key)
			}
			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "set a runtime config value",
		ArgsUsage: "<key> <value>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: config <key> <value>", 1)
			}

			injector, err := getContainer()
			if err != nil {
				return err
			}

			db := do.MustInvoke[*bun.DB](injector)
			defer db.Close()

			item, err := datastore.UpsertConfig(context.Background(), db, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}

			fmt.Println("config", item.Key, "=", item.Value)
			return nil
		},
	}
}
