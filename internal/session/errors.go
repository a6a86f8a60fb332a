// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

var (
	// ErrUnauthenticated indicates there is no valid session.
	ErrUnauthenticated = errors.New("session: not authenticated")

	// ErrInvalidGrant indicates a login or renewal response without a token
	// or with an expiration that is not in the future.
	ErrInvalidGrant = errors.New("session: invalid grant")

	// ErrRenewalFailed wraps the error of a failed token renewal. The
	// session has been terminated when this is returned.
	ErrRenewalFailed = errors.New("session: renewal failed")

	// ErrRenewalUnavailable indicates no Renewer is configured.
	ErrRenewalUnavailable = errors.New("session: renewal not configured")

	// ErrDisposed is returned by Start after Dispose.
	ErrDisposed = errors.New("session: controller disposed")
)
