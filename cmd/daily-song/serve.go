package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/daily-song/internal/auth"
	"github.com/justestif/daily-song/internal/config"
	"github.com/justestif/daily-song/internal/lastfm"
	"github.com/justestif/daily-song/internal/playlist"
	"github.com/justestif/daily-song/internal/session"
	"github.com/justestif/daily-song/internal/shared"
	"github.com/justestif/daily-song/internal/songs"
	"github.com/justestif/daily-song/internal/spotify"
	"github.com/justestif/daily-song/internal/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides the config file",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply the schema before serving",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	shared.SetupLogger(cfg.Log.Level, cfg.Log.Pretty)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if cmd.Bool("migrate") {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	backend, closeBackend, err := sessionBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	authManager, err := auth.NewManager(auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		HTTPClient:   &http.Client{Timeout: cfg.Spotify.Timeout},
	}, store.Users())
	if err != nil {
		return err
	}

	factoryOpts := []spotify.FactoryOption{spotify.WithTimeout(cfg.Spotify.Timeout)}
	if cfg.Spotify.APIBaseURL != "" {
		factoryOpts = append(factoryOpts, spotify.WithBaseURL(cfg.Spotify.APIBaseURL))
	}
	spotifyFactory := spotify.NewFactory(factoryOpts...)

	lastfmCfg := lastfm.Config{
		APIKey:            cfg.LastFM.APIKey,
		BaseURL:           cfg.LastFM.BaseURL,
		RequestsPerSecond: cfg.LastFM.RequestsPerSecond,
		Timeout:           cfg.LastFM.Timeout,
	}
	if err := lastfmCfg.Validate(); err != nil {
		return err
	}

	songService := songs.New(
		store,
		authManager,
		songs.SpotifyRecommenders(spotifyFactory),
		lastfm.NewClient(lastfmCfg),
		songs.WithMaxCandidateAttempts(cfg.Songs.MaxCandidateAttempts),
		songs.WithCallTimeout(cfg.Songs.CallTimeout),
		songs.WithHistoryTimeout(cfg.Songs.HistoryTimeout),
		songs.WithLocation(loc),
	)
	playlists := playlist.New(
		store.Songs(),
		authManager,
		playlist.SpotifyWriters(spotifyFactory),
		playlist.WithCallTimeout(cfg.Songs.CallTimeout),
	)

	server := web.NewServer(web.ServerConfig{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
		Location:       loc,
	}, web.Deps{
		Auth:      authManager,
		Songs:     songService,
		Playlists: playlists,
		Store:     store,
		Sessions:  session.NewManager(backend, cfg.Server.SessionTTL, cfg.Server.SecureCookies),
	})

	log.Info().
		Str("database", cfg.Database.Driver).
		Bool("redis_sessions", cfg.Redis.Addr != "").
		Str("timezone", loc.String()).
		Msg("daily-song configured")

	return server.Run(ctx)
}

// sessionBackend uses Redis when an address is configured and process
// memory otherwise.
func sessionBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	if cfg.Redis.Addr == "" {
		return session.NewMemoryBackend(cfg.Server.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("closing redis client")
		}
	}
	return session.NewRedisBackend(client, cfg.Server.SessionTTL), closeFn, nil
}
