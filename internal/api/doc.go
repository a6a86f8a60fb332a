// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the client for the recruitment platform's HTTP API.
//
// It implements the session package's Authenticator and Renewer contracts
// and performs authenticated calls on behalf of the UI:
//
//	client := api.New(cfg.API, logger)
//	ctrl, _ := session.New(session.Options{
//	    Authenticator: client,
//	    Renewer:       client.Renewer(),
//	    // ...
//	})
//	client.WithSession(ctrl)
//
//	var me api.Operator
//	err := client.Do(ctx, http.MethodGet, "/auth/me", nil, &me)
//
// # Authenticated calls
//
// Do takes the bearer token from the session, records activity after every
// 2xx response and terminates the session on 401. GET requests are retried
// on 5xx with exponential backoff.
//
// # Logging
//
// Requests are logged with method, path, status and duration only. Headers
// and bodies are never logged.
package api
