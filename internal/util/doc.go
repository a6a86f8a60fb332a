// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the storage and UI packages.
//
//   - AtomicWriteFileWithDir: crash-safe replace of a file, used by the
//     file session store
//   - TruncateRunes: UTF-8 safe truncation for fixed-width views
package util
