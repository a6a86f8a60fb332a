// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trialdesk/internal/config"
)

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		path    string
	}{
		{"memory", ""},
		{"file", filepath.Join(dir, "session.json")},
		{"sqlite", filepath.Join(dir, "session.db")},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Backend = tt.backend
			cfg.Storage.Path = tt.path

			s, err := Open(cfg, nil)
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.backend, s.Backend())
			require.NoError(t, s.Save("tok", t0))
			tok, ok := s.Token()
			require.True(t, ok)
			assert.Equal(t, "tok", tok)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "etcd"

	_, err := Open(cfg, nil)
	assert.Error(t, err)
}

func TestOpen_InvalidSealKey(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Storage.SealKey = "abcd"

	_, err := Open(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidSealKey)
}

func TestOpen_SealKeyApplied(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "file"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "session.json")
	cfg.Storage.SealKey = strings.Repeat("ab", 32)

	s, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save("plain-token", t0))

	data, err := os.ReadFile(cfg.Storage.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), sealPrefix)
}

// TestRedisStore runs against a live server named by
// TRIALDESK_TEST_REDIS_ADDR.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TRIALDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRIALDESK_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	prefix := "trialdesk:test:" + strings.ReplaceAll(t.Name(), "/", "_") + ":"
	s, err := NewRedis(client, prefix)
	require.NoError(t, err)
	defer s.Close()
	defer s.Clear()

	require.NoError(t, s.Save("tok", t0.Add(time.Hour)))
	require.NoError(t, s.RecordActivity(t0))

	rec, ok := s.Record()
	require.True(t, ok)
	assert.Equal(t, "tok", rec.Token)
	assert.True(t, rec.LastActivityAt.Equal(t0))

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, ok = s.Token()
	assert.False(t, ok)
}
