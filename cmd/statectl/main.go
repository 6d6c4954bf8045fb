// Command statectl inspects and edits device snapshots directly in the
// configured state backend.
//
// Usage:
//
//	statectl show <device>
//	statectl export <device> [-o file]
//	statectl import <device> -i file
//	statectl reset <device>
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/config"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
	"github.com/adspredia/adspredia-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	_ = logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile})

	open := func(ctx context.Context) (kvstore.Store, error) {
		return kvstore.Open(ctx, kvstore.Config{
			Backend:     cfg.StateBackend,
			Dir:         cfg.StateDir,
			KeyPrefix:   cfg.StateKeyPrefix,
			RedisURL:    cfg.RedisURL,
			DatabaseURL: cfg.DatabaseURL,
			S3: kvstore.S3Config{
				Endpoint:  cfg.S3Endpoint,
				Region:    cfg.S3Region,
				Bucket:    cfg.S3Bucket,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Prefix:    cfg.StateKeyPrefix,
			},
		})
	}

	if err := newRootCmd(open).Execute(); err != nil {
		log.Debug().Err(err).Msg("statectl failed")
		os.Exit(1)
	}
}
