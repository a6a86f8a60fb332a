// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/trialdesk/internal/storage"
)

// =============================================================================
// STATE
// =============================================================================

// State is the session state derived from the stored record and the clock.
type State int

const (
	// Anonymous means no token is stored.
	Anonymous State = iota
	// Authenticated means the token is valid and not yet due for renewal.
	Authenticated
	// RefreshDue means the token is valid but expires within the refresh
	// threshold.
	RefreshDue
	// Expired means a token is stored but its expiration has passed.
	Expired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case RefreshDue:
		return "refresh_due"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Valid reports whether the state carries a usable token.
func (s State) Valid() bool {
	return s == Authenticated || s == RefreshDue
}

// stateOf classifies rec at now.
func stateOf(rec storage.Record, ok bool, now time.Time, threshold time.Duration) State {
	switch {
	case !ok:
		return Anonymous
	case !now.Before(rec.ExpiresAt):
		return Expired
	case !now.Before(rec.ExpiresAt.Add(-threshold)):
		return RefreshDue
	default:
		return Authenticated
	}
}

// =============================================================================
// TERMINATION REASONS
// =============================================================================

// Reason explains why a session ended.
type Reason string

const (
	ReasonLogout          Reason = "logout"
	ReasonInactivity      Reason = "inactivity"
	ReasonExpired         Reason = "expired"
	ReasonRenewalFailed   Reason = "renewal_failed"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonUnauthenticated Reason = "unauthenticated"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is a snapshot of the session for display.
type Status struct {
	State          State         `json:"state"`
	SessionID      string        `json:"session_id,omitempty"`
	ExpiresAt      time.Time     `json:"expires_at,omitempty"`
	LastActivityAt time.Time     `json:"last_activity_at,omitempty"`
	ExpiresIn      time.Duration `json:"expires_in"`
	RefreshIn      time.Duration `json:"refresh_in"`
	IdleRemaining  time.Duration `json:"idle_remaining"`
	RenewalEnabled bool          `json:"renewal_enabled"`
}
