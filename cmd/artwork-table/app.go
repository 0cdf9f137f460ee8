package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/artwork-table/internal/config"
	"github.com/Sternrassler/artwork-table/pkg/client"
	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/Sternrassler/artwork-table/pkg/ratelimit"
	"github.com/Sternrassler/artwork-table/pkg/view"
)

// app holds everything one run of the command needs.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	logOut io.WriteCloser
	redis  *redis.Client
	client *client.Client
	ranges *pagination.RangeFetcher
}

// newApp wires logging, the request budget and the API client. logPath
// overrides cfg.Log.File when cfg.Log.File is empty.
func newApp(ctx context.Context, cfg config.Config, logPath string) (*app, error) {
	if cfg.Log.File != "" {
		logPath = cfg.Log.File
	}
	logOut, err := logging.OpenOutput(logPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: logPath == "-",
		Output: logOut,
	})

	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger("artwork-table"),
		logOut: logOut,
	}

	var limiter *ratelimit.Tracker
	if cfg.RateLimit.Enabled {
		store, err := a.rateLimitStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		limiter = ratelimit.NewTracker(store, cfg.RateLimit.RequestsPerMinute, time.Minute, logging.NewLogger("ratelimit"))
	}

	a.client, err = client.New(client.Config{
		BaseURL:     cfg.API.BaseURL,
		UserAgent:   cfg.API.UserAgent,
		Fields:      cfg.API.Fields,
		Timeout:     cfg.API.Timeout,
		MaxRetries:  cfg.API.MaxRetries,
		RateLimiter: limiter,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create artwork client: %w", err)
	}

	a.ranges = pagination.NewRangeFetcher(a.client, pagination.Config{
		MaxConcurrency: cfg.Bulk.Concurrency,
		Timeout:        cfg.Bulk.PageTimeout,
	})

	a.logger.Info().
		Str("base_url", cfg.API.BaseURL).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Str("redis", cfg.Redis.Addr).
		Msg("Artwork table configured")

	return a, nil
}

// rateLimitStore returns a redis-backed store when an address is set so
// several processes share one budget, and an in-memory store otherwise.
func (a *app) rateLimitStore(ctx context.Context) (ratelimit.Store, error) {
	if a.cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryStore(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr: a.cfg.Redis.Addr,
		DB:   a.cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("Connected to Redis")

	return ratelimit.NewRedisStore(a.redis), nil
}

// ready reports whether redis is reachable, when it is used.
func (a *app) ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}

// newTable creates a fresh table view with an empty selection.
func (a *app) newTable() *view.Table {
	return view.NewTable(view.Config{
		PageSize:    a.cfg.Table.PageSize,
		TopNDefault: a.cfg.Table.TopNDefault,
	}, a.ranges, logging.NewLogger("table"))
}

// Close releases connections and the log output.
func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.logOut != nil {
		a.logOut.Close()
	}
}
