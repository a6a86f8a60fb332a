// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the session record for trialdesk.
//
// The session record is a single slot holding the bearer token, its
// absolute expiration instant and the instant of the last operator
// interaction. It is stored as three scalar entries under fixed keys so a
// restarted client can reconstruct it:
//
//	token             opaque bearer credential
//	expires_at        RFC 3339 instant, UTC
//	last_activity_at  RFC 3339 instant, UTC
//
// # Key Types
//
//   - Store: get/set/clear contract consumed by the session controller
//   - RecordStore: Store implementation enforcing the record invariants
//   - Sealer: optional XChaCha20-Poly1305 encryption of the token at rest
//
// # Backends
//
//   - memory: process-local, for tests and throwaway runs
//   - file: JSON document written atomically (temp file, fsync, rename)
//   - sqlite: key/value table in a local database (modernc.org/sqlite)
//   - redis: three keys under a prefix, written in MULTI/EXEC
//
// # Usage
//
//	store, err := storage.NewFile(path, storage.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	_ = store.Save(token, expiresAt)
//	if tok, ok := store.Token(); ok {
//	    // ...
//	}
//
// Reads never fail: a record that cannot be read or decoded is reported
// as absent, so a broken store behaves as "no session".
package storage
