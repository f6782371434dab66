// Command daily-song serves the daily song API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/daily-song/internal/config"
	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/db/sqlite"
	"github.com/justestif/daily-song/internal/shared"
)

func main() {
	app := &cli.Command{
		Name:  "daily-song",
		Usage: "Generate a song of the day per genre from Spotify recommendations",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML configuration file",
		Sources: cli.EnvVars("DAILY_SONG_CONFIG"),
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database schema",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Read(cmd.String("config"))
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			shared.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}
}

// openStore connects to the configured database.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Database.URL, sqlite.WithLocation(loc))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		return store, nil
	default:
		store, err := db.New(ctx, cfg.Database.URL, db.WithLocation(loc))
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, nil
	}
}
