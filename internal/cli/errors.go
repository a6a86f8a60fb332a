// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jeranaias/trialdesk/internal/api"
	"github.com/jeranaias/trialdesk/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the operator is not or no longer signed in
	ExitAuthError = 4
	// ExitNetworkError indicates the API could not be reached
	ExitNetworkError = 5
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError wraps a failure to locate, load or validate the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid flags or arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// exitCode maps err to a process exit code.
func exitCode(err error) int {
	var (
		cfgErr   *ConfigError
		usageErr *UsageError
		ttyErr   *TTYRequiredError
		netErr   net.Error
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usageErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, api.ErrInvalidCredentials),
		errors.Is(err, session.ErrRenewalFailed),
		api.IsUnauthorized(err):
		return ExitAuthError
	case errors.As(err, &netErr):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// describeError returns the message shown to the operator for err.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		return "not signed in; run 'trialdesk auth login'"
	case errors.Is(err, session.ErrRenewalUnavailable):
		return "token renewal is disabled (api.renewal_enabled or api.refresh_path)"
	default:
		return err.Error()
	}
}
