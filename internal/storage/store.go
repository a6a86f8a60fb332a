// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persisted key names. These are part of the on-disk contract.
const (
	KeyToken          = "token"
	KeyExpiresAt      = "expires_at"
	KeyLastActivityAt = "last_activity_at"
)

// timeLayout is used for every persisted instant.
const timeLayout = time.RFC3339Nano

var (
	// ErrEmptyToken is returned by Save for an empty token.
	ErrEmptyToken = errors.New("storage: empty token")

	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("storage: store closed")
)

// Record is the persisted session record.
type Record struct {
	Token          string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// HasActivity reports whether a last-activity instant is recorded.
func (r Record) HasActivity() bool {
	return !r.LastActivityAt.IsZero()
}

// Store is the session record persistence contract.
type Store interface {
	// Save writes token and expiration together.
	Save(token string, expiresAt time.Time) error
	// Token returns the stored token, if any.
	Token() (string, bool)
	// Expiration returns the stored expiration instant, if any.
	Expiration() (time.Time, bool)
	// Record returns token, expiration and last activity read together.
	Record() (Record, bool)
	// RecordActivity overwrites the last-activity instant. Older instants
	// and writes without a stored token are ignored.
	RecordActivity(at time.Time) error
	// LastActivity returns the last-activity instant, if any.
	LastActivity() (time.Time, bool)
	// Clear removes all entries. Clearing an empty store is a no-op.
	Clear() error
	// Close releases backend resources.
	Close() error
}

// backend is the raw key/value layer under a RecordStore. put and del must
// be atomic for all keys they touch.
type backend interface {
	name() string
	load() (map[string]string, error)
	put(fields map[string]string) error
	del() error
	close() error
}

// Option configures a RecordStore.
type Option func(*RecordStore)

// WithLogger sets the logger used to report read failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *RecordStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSealer encrypts the token before it reaches the backend.
func WithSealer(sealer *Sealer) Option {
	return func(s *RecordStore) {
		s.sealer = sealer
	}
}

// RecordStore implements Store on top of a key/value backend.
//
// All operations are serialized by one mutex, so a reader never observes a
// token without its expiration or a half-applied Clear.
type RecordStore struct {
	mu     sync.Mutex
	be     backend
	sealer *Sealer
	logger *zap.Logger
	closed bool
}

func newRecordStore(be backend, opts ...Option) *RecordStore {
	s := &RecordStore{be: be, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("store", be.name()))
	return s
}

// Backend returns the backend name (memory, file, sqlite, redis).
func (s *RecordStore) Backend() string {
	return s.be.name()
}

// Save writes token and expiration together. The last-activity entry is
// left untouched.
func (s *RecordStore) Save(token string, expiresAt time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	stored := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		stored = sealed
	}

	if err := s.be.put(map[string]string{
		KeyToken:     stored,
		KeyExpiresAt: expiresAt.UTC().Format(timeLayout),
	}); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

// Token returns the stored token.
func (s *RecordStore) Token() (string, bool) {
	rec, ok := s.Record()
	return rec.Token, ok
}

// Expiration returns the stored expiration instant.
func (s *RecordStore) Expiration() (time.Time, bool) {
	rec, ok := s.Record()
	return rec.ExpiresAt, ok
}

// LastActivity returns the stored last-activity instant. It is reported
// only while a token is stored.
func (s *RecordStore) LastActivity() (time.Time, bool) {
	rec, ok := s.Record()
	if !ok || !rec.HasActivity() {
		return time.Time{}, false
	}
	return rec.LastActivityAt, true
}

// Record returns the full record. ok is false when no token is stored or
// when the stored entries cannot be decoded.
func (s *RecordStore) Record() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *RecordStore) readLocked() (Record, bool) {
	if s.closed {
		return Record{}, false
	}

	fields, err := s.be.load()
	if err != nil {
		s.logger.Warn("session record unreadable, treating as absent", zap.Error(err))
		return Record{}, false
	}

	token, hasToken := fields[KeyToken]
	rawExp, hasExp := fields[KeyExpiresAt]
	if !hasToken || !hasExp || token == "" {
		return Record{}, false
	}

	expiresAt, err := time.Parse(timeLayout, rawExp)
	if err != nil {
		s.logger.Warn("session expiration malformed, treating as absent", zap.Error(err))
		return Record{}, false
	}

	if s.sealer != nil {
		opened, err := s.sealer.Open(token)
		if err != nil {
			s.logger.Warn("session token could not be opened, treating as absent", zap.Error(err))
			return Record{}, false
		}
		token = opened
	}

	rec := Record{Token: token, ExpiresAt: expiresAt}
	if raw, ok := fields[KeyLastActivityAt]; ok {
		if at, err := time.Parse(timeLayout, raw); err == nil {
			rec.LastActivityAt = at
		}
	}
	return rec, true
}

// RecordActivity overwrites the last-activity instant.
func (s *RecordStore) RecordActivity(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, ok := s.readLocked()
	if !ok {
		return nil
	}
	if rec.HasActivity() && at.Before(rec.LastActivityAt) {
		return nil
	}

	if err := s.be.put(map[string]string{
		KeyLastActivityAt: at.UTC().Format(timeLayout),
	}); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Clear removes token, expiration and last activity.
func (s *RecordStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.be.del(); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

// Close releases the backend. Further writes fail with ErrClosed and reads
// report an empty store.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.be.close()
}
