package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alfredjeanlab/taskboard/internal/config"
	"github.com/alfredjeanlab/taskboard/internal/feed"
	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/notify"
	"github.com/alfredjeanlab/taskboard/internal/projection"
	"github.com/alfredjeanlab/taskboard/internal/store/postgres"
	"github.com/nats-io/nats.go"
)

// Options tune Open.
type Options struct {
	Toaster   notify.Toaster // extra toast sink, e.g. the terminal
	WebToasts bool           // serve toasts over a websocket hub
	Filter    model.TaskFilter
	Logger    *slog.Logger
}

// Open connects to everything cfg names and returns a signed-out App.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	transport, err := openTransport(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	cache, err := openCache(ctx, cfg)
	if err != nil {
		transport.Close()
		st.Close()
		return nil, err
	}

	var hub *notify.WSHub
	if opts.WebToasts {
		hub = notify.NewWSHub(logger)
	}

	logger.Info("app: backend connected", "feed", cfg.Feed, "cache", cfg.Cache)
	return New(Deps{
		Store:     st,
		Transport: transport,
		Cache:     cache,
		Toaster:   opts.Toaster,
		Toasts:    hub,
		Filter:    opts.Filter,
		EchoGrace: cfg.EchoGrace,
		Logger:    logger,
	}), nil
}

func openTransport(cfg *config.Config, logger *slog.Logger) (feed.Transport, error) {
	switch cfg.Feed {
	case config.FeedNATS:
		t, err := feed.NewNATSTransport(cfg.NATSURL, cfg.NATSPrefix,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("app: NATS disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("app: NATS reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.FeedPostgres, "":
		return feed.NewPGTransport(cfg.DatabaseURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown feed %q", cfg.Feed)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (projection.Cache, error) {
	switch cfg.Cache {
	case config.CacheMemory:
		return projection.NewMemoryCache(), nil
	case config.CacheSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		return projection.OpenSQLiteCache(cfg.CachePath)
	case config.CacheS3:
		return projection.NewS3Cache(ctx, cfg.CacheS3Bucket, cfg.CacheS3Prefix, cfg.CacheS3Region, cfg.CacheS3Endpoint)
	default:
		return nil, fmt.Errorf("unknown cache %q", cfg.Cache)
	}
}
