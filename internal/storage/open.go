// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jeranaias/trialdesk/internal/config"
)

// Open builds the store selected by cfg.Storage.Backend.
func Open(cfg *config.Config, logger *zap.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{WithLogger(logger)}

	key, err := cfg.Storage.SealKeyBytes()
	if err != nil {
		return nil, err
	}
	if key != nil {
		sealer, err := NewSealer(key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSealer(sealer))
	}

	switch cfg.Storage.Backend {
	case "memory":
		return NewMemory(opts...), nil
	case "file", "sqlite":
		path, err := cfg.StoragePath()
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Backend == "sqlite" {
			return NewSQLite(path, opts...)
		}
		return NewFile(path, opts...)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		return NewRedis(client, cfg.Storage.RedisPrefix, opts...)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}
