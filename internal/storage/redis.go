// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 500 * time.Millisecond

// redisBackend stores each entry as a plain string key under prefix.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a store using client. Keys are <prefix>token,
// <prefix>expires_at and <prefix>last_activity_at.
func NewRedis(client *redis.Client, prefix string, opts ...Option) (*RecordStore, error) {
	if client == nil {
		return nil, errors.New("storage: nil redis client")
	}
	return newRecordStore(&redisBackend{client: client, prefix: prefix}, opts...), nil
}

func (r *redisBackend) name() string { return "redis" }

func (r *redisBackend) key(name string) string {
	return r.prefix + name
}

func (r *redisBackend) keys() []string {
	return []string{r.key(KeyToken), r.key(KeyExpiresAt), r.key(KeyLastActivityAt)}
}

func (r *redisBackend) load() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	names := []string{KeyToken, KeyExpiresAt, KeyLastActivityAt}
	values, err := r.client.MGet(ctx, r.keys()...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	fields := make(map[string]string, len(names))
	for i, v := range values {
		if s, ok := v.(string); ok {
			fields[names[i]] = s
		}
	}
	return fields, nil
}

func (r *redisBackend) put(fields map[string]string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range fields {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *redisBackend) del() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.keys()...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *redisBackend) close() error {
	return r.client.Close()
}
