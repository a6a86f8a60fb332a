// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeranaias/trialdesk/internal/session"
)

// epochMillisCutoff separates epoch seconds from epoch milliseconds. Second
// values above it would be past the year 33658.
const epochMillisCutoff = 1e12

// tokenResponse is the body of the login and refresh endpoints.
type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   *float64        `json:"expires_in"`
	ExpiresAt   json.RawMessage `json:"expires_at"`
}

// toGrant converts r, resolving the expiration from expires_at, then
// expires_in relative to received, then the token's exp claim.
func (r tokenResponse) toGrant(received time.Time) (session.Grant, error) {
	if r.AccessToken == "" {
		return session.Grant{}, fmt.Errorf("%w: missing access_token", ErrMalformedResponse)
	}

	g := session.Grant{Token: r.AccessToken}
	if r.ExpiresIn != nil {
		g.ExpiresIn = time.Duration(*r.ExpiresIn * float64(time.Second))
	}

	if at, ok, err := parseExpiresAt(r.ExpiresAt); err != nil {
		return session.Grant{}, err
	} else if ok {
		g.ExpiresAt = at
		return g, nil
	}

	if r.ExpiresIn != nil && *r.ExpiresIn > 0 {
		g.ExpiresAt = received.Add(g.ExpiresIn)
		return g, nil
	}

	if exp, ok := tokenExpiry(r.AccessToken); ok {
		g.ExpiresAt = exp
		return g, nil
	}

	return session.Grant{}, fmt.Errorf("%w: no expiration", ErrMalformedResponse)
}

// parseExpiresAt accepts epoch seconds, epoch milliseconds, or an RFC 3339
// string (a numeric string is treated like a number). A missing or null
// value reports ok == false.
func parseExpiresAt(raw json.RawMessage) (time.Time, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: expires_at %q", ErrMalformedResponse, s)
		}
		return fromEpoch(n), true, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: expires_at %s", ErrMalformedResponse, raw)
	}
	return fromEpoch(n), true, nil
}

func fromEpoch(n float64) time.Time {
	if n >= epochMillisCutoff {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// tokenExpiry reads the exp claim of a JWT without verifying it. The
// server verifies its own tokens; the client only needs the instant.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time.UTC(), true
}
