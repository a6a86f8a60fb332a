// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// storeFactories returns one fresh store per durable and in-memory backend.
func storeFactories(t *testing.T) map[string]func() *RecordStore {
	t.Helper()
	return map[string]func() *RecordStore{
		"memory": func() *RecordStore { return NewMemory() },
		"file": func() *RecordStore {
			s, err := NewFile(filepath.Join(t.TempDir(), "session.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func() *RecordStore {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "session.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

// =============================================================================
// CONTRACT TESTS
// =============================================================================

func TestStore_EmptyIsAnonymous(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			_, ok := s.Token()
			assert.False(t, ok)
			_, ok = s.Expiration()
			assert.False(t, ok)
			_, ok = s.LastActivity()
			assert.False(t, ok)
		})
	}
}

func TestStore_SaveWritesPair(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			exp := t0.Add(time.Hour)

			require.NoError(t, s.Save("tok-1", exp))

			rec, ok := s.Record()
			require.True(t, ok)
			assert.Equal(t, "tok-1", rec.Token)
			assert.True(t, rec.ExpiresAt.Equal(exp))
			assert.False(t, rec.HasActivity())

			// Replacing the token replaces the expiration with it.
			exp2 := t0.Add(2 * time.Hour)
			require.NoError(t, s.Save("tok-2", exp2))
			rec, ok = s.Record()
			require.True(t, ok)
			assert.Equal(t, "tok-2", rec.Token)
			assert.True(t, rec.ExpiresAt.Equal(exp2))
		})
	}
}

func TestStore_SaveRejectsEmptyToken(t *testing.T) {
	s := NewMemory()
	assert.ErrorIs(t, s.Save("", t0), ErrEmptyToken)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Clear())

			require.NoError(t, s.Save("tok", t0.Add(time.Hour)))
			require.NoError(t, s.RecordActivity(t0))

			require.NoError(t, s.Clear())
			require.NoError(t, s.Clear())

			_, ok := s.Token()
			assert.False(t, ok)
			_, ok = s.Expiration()
			assert.False(t, ok)
			_, ok = s.LastActivity()
			assert.False(t, ok)
		})
	}
}

func TestStore_ActivityIsMonotonic(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.Save("tok", t0.Add(time.Hour)))

			require.NoError(t, s.RecordActivity(t0.Add(10*time.Minute)))
			require.NoError(t, s.RecordActivity(t0.Add(5*time.Minute)))

			at, ok := s.LastActivity()
			require.True(t, ok)
			assert.True(t, at.Equal(t0.Add(10*time.Minute)))

			require.NoError(t, s.RecordActivity(t0.Add(11*time.Minute)))
			at, _ = s.LastActivity()
			assert.True(t, at.Equal(t0.Add(11*time.Minute)))
		})
	}
}

func TestStore_ActivityWithoutTokenIgnored(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			require.NoError(t, s.RecordActivity(t0))

			_, ok := s.LastActivity()
			assert.False(t, ok)

			// A later login does not inherit a stale instant.
			require.NoError(t, s.Save("tok", t0.Add(time.Hour)))
			_, ok = s.LastActivity()
			assert.False(t, ok)
		})
	}
}

func TestStore_ConcurrentReadersSeePairs(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Save("tok-0", t0))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			_ = s.Save("tok-"+time.Duration(i).String(), t0.Add(time.Duration(i)))
			if i%3 == 0 {
				_ = s.Clear()
			}
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				rec, ok := s.Record()
				if !ok {
					continue
				}
				want := "tok-" + rec.ExpiresAt.Sub(t0).String()
				if rec.Token != want {
					t.Errorf("torn record: token %q with expiration offset %v", rec.Token, rec.ExpiresAt.Sub(t0))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestStore_CloseRejectsWrites(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Save("tok", t0), ErrClosed)
	assert.ErrorIs(t, s.Clear(), ErrClosed)
	_, ok := s.Token()
	assert.False(t, ok)
}

// =============================================================================
// DURABILITY TESTS
// =============================================================================

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("tok", t0.Add(time.Hour)))
	require.NoError(t, s.RecordActivity(t0.Add(time.Minute)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	reopened, err := NewFile(path)
	require.NoError(t, err)
	rec, ok := reopened.Record()
	require.True(t, ok)
	assert.Equal(t, "tok", rec.Token)
	assert.True(t, rec.LastActivityAt.Equal(t0.Add(time.Minute)))
}

func TestFileStore_CorruptDocumentIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewFile(path)
	require.NoError(t, err)

	_, ok := s.Token()
	assert.False(t, ok)

	// The next save replaces the broken document.
	require.NoError(t, s.Save("tok", t0))
	tok, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "tok", tok)
}

func TestFileStore_TokenWithoutExpirationIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"orphan"}`), 0600))

	s, err := NewFile(path)
	require.NoError(t, err)
	_, ok := s.Token()
	assert.False(t, ok)
}

func TestFileStore_MalformedExpirationIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"t","expires_at":"tomorrow"}`), 0600))

	s, err := NewFile(path)
	require.NoError(t, err)
	_, ok := s.Record()
	assert.False(t, ok)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("tok", t0.Add(time.Hour)))
	require.NoError(t, s.RecordActivity(t0))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, ok := reopened.Record()
	require.True(t, ok)
	assert.Equal(t, "tok", rec.Token)
	assert.True(t, rec.ExpiresAt.Equal(t0.Add(time.Hour)))
	assert.True(t, rec.LastActivityAt.Equal(t0))
}

// =============================================================================
// SEALING TESTS
// =============================================================================

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := sealer.Seal("secret-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "secret-token")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", opened)

	_, err = sealer.Open("secret-token")
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestSealer_RejectsShortKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestFileStore_SealedTokenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	sealer, err := NewSealer(testKey())
	require.NoError(t, err)

	s, err := NewFile(path, WithSealer(sealer))
	require.NoError(t, err)
	require.NoError(t, s.Save("secret-token", t0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")

	tok, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "secret-token", tok)

	// Without the key the record cannot be used.
	plain, err := NewFile(path)
	require.NoError(t, err)
	other, err := NewSealer(make([]byte, 32))
	require.NoError(t, err)
	wrongKey, err := NewFile(path, WithSealer(other))
	require.NoError(t, err)

	tok, ok = plain.Token()
	assert.True(t, ok, "unsealed reader returns the opaque value")
	assert.NotEqual(t, "secret-token", tok)
	_, ok = wrongKey.Token()
	assert.False(t, ok)
}
