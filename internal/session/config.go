// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/trialdesk/internal/config"
)

// Config holds the controller's timing and routing settings.
type Config struct {
	// InactivityTimeout ends the session after this long without interaction.
	InactivityTimeout time.Duration

	// RefreshThreshold is how long before expiration the token is renewed.
	// Zero selects the default; NoRefreshThreshold renews only once the
	// token is already due at expiration.
	RefreshThreshold time.Duration

	// MinRenewInterval is the shortest gap between two automatic renewals.
	// Grants that arrive already inside RefreshThreshold are renewed no more
	// often than this.
	MinRenewInterval time.Duration

	// RenewTimeout bounds one renewal call.
	RenewTimeout time.Duration

	// LoginPath is the navigation target when a session ends.
	LoginPath string

	// ActivityPersistInterval rate limits last-activity writes to the store.
	// Zero persists every interaction.
	ActivityPersistInterval time.Duration
}

// NoRefreshThreshold disables early renewal.
const NoRefreshThreshold time.Duration = -1

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		InactivityTimeout: 15 * time.Minute,
		RefreshThreshold:  5 * time.Minute,
		MinRenewInterval:  30 * time.Second,
		RenewTimeout:      15 * time.Second,
		LoginPath:         "/login",
	}
}

// ConfigFrom converts the [session] config section. refresh_threshold_secs = 0
// maps to NoRefreshThreshold.
func ConfigFrom(s config.SessionConfig) Config {
	threshold := s.RefreshThreshold()
	if threshold == 0 {
		threshold = NoRefreshThreshold
	}
	return Config{
		InactivityTimeout:       s.InactivityTimeout(),
		RefreshThreshold:        threshold,
		RenewTimeout:            s.RenewTimeout(),
		LoginPath:               s.LoginRoute,
		ActivityPersistInterval: s.ActivityPersistInterval(),
	}
}

// withDefaults fills zero fields from DefaultConfig. A negative
// RefreshThreshold becomes zero.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = def.InactivityTimeout
	}
	switch {
	case c.RefreshThreshold == 0:
		c.RefreshThreshold = def.RefreshThreshold
	case c.RefreshThreshold < 0:
		c.RefreshThreshold = 0
	}
	if c.MinRenewInterval <= 0 {
		c.MinRenewInterval = def.MinRenewInterval
	}
	if c.RenewTimeout <= 0 {
		c.RenewTimeout = def.RenewTimeout
	}
	if c.LoginPath == "" {
		c.LoginPath = def.LoginPath
	}
	return c
}
