// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"time"
)

// Credentials are the operator's login inputs.
type Credentials struct {
	Email    string
	Password string
}

// Grant is a token issued by login or renewal.
type Grant struct {
	Token     string
	ExpiresAt time.Time
	// ExpiresIn is the lifetime the server reported, if any.
	ExpiresIn time.Duration
}

// Info describes a session established by Login or Refresh.
type Info struct {
	Grant
	// SessionID correlates log lines for one login. It is generated locally.
	SessionID string
}

// Authenticator exchanges credentials for a grant.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Grant, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, creds Credentials) (Grant, error)

// Login calls f.
func (f AuthenticatorFunc) Login(ctx context.Context, creds Credentials) (Grant, error) {
	return f(ctx, creds)
}

// Renewer exchanges a valid token for a fresh grant.
type Renewer interface {
	Renew(ctx context.Context, token string) (Grant, error)
}

// RenewerFunc adapts a function to Renewer.
type RenewerFunc func(ctx context.Context, token string) (Grant, error)

// Renew calls f.
func (f RenewerFunc) Renew(ctx context.Context, token string) (Grant, error) {
	return f(ctx, token)
}

// Navigator moves the UI to a route such as "/login".
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}
