// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the trialdesk command line.
//
// Running trialdesk without arguments starts the terminal UI. The other
// commands work on the persisted session without taking over the terminal.
//
// # Commands
//
//   - auth login: Sign in and persist the session record
//   - auth logout: Clear the session record
//   - auth status: Show state, expiration and idle time
//   - auth refresh: Force a token renewal
//   - whoami: Fetch the signed-in operator's profile
//   - config show|path|init: Inspect or create the configuration file
//   - version: Print build information
//
// Global flags --config and --log-level apply to every command. Commands
// that report data accept --json.
package cli
