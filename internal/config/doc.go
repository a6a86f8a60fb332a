// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for trialdesk.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - APIConfig: Remote recruitment API endpoints
//   - SessionConfig: Inactivity timeout, renewal threshold, access guard interval
//   - StorageConfig: Session record backend (memory, file, sqlite, redis)
//   - LogConfig: Log level and rotation
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (TRIALDESK_*), optionally seeded from ./.env
//   - ~/.trialdesk/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idle := cfg.Session.InactivityTimeout()
package config
