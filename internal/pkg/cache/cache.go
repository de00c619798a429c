package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Options addresses the Redis (or Dragonfly) cache server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to the cache server. An unreachable server is logged but
// not fatal: callers treat cache errors as misses.
func NewClient(ctx context.Context, opts Options) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if pong, err := client.Ping(pingCtx).Result(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("could not connect to cache")
	} else {
		log.Info().Str("addr", opts.Addr).Str("reply", pong).Msg("connected to cache")
	}
	return client
}
