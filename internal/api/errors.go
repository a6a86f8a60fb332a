// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized indicates the server rejected the bearer token. The
	// session has been terminated when this is returned from Do.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates login was refused.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse indicates a token response could not be used.
	ErrMalformedResponse = errors.New("malformed token response")

	// ErrRenewalDisabled is returned by Renew when no refresh path is set.
	ErrRenewalDisabled = errors.New("token renewal disabled")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// errorBody covers the error shapes the API returns:
// {"detail": "..."}, {"error": "...", "message": "..."} and
// {"error": {"code": "...", "message": "..."}}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// parseError builds the error for a non-2xx response.
func parseError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message

		var s string
		if len(eb.Detail) > 0 && json.Unmarshal(eb.Detail, &s) == nil && s != "" {
			apiErr.Message = s
		}
		if len(eb.Error) > 0 {
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(eb.Error, &s) == nil {
				if apiErr.Message == "" {
					apiErr.Message = s
				} else if apiErr.Code == "" {
					apiErr.Code = s
				}
			} else if json.Unmarshal(eb.Error, &nested) == nil {
				apiErr.Code = nested.Code
				apiErr.Message = nested.Message
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
	default:
		return apiErr
	}
}
