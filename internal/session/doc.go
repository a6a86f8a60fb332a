// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the operator's login session on the client.
//
// A Controller keeps the persisted session record (token, expiration, last
// activity) in a storage.Store, answers "is the operator authenticated",
// renews the token shortly before it expires and ends the session after a
// period without interaction.
//
// # States
//
//	Anonymous      no token stored
//	Authenticated  token valid and outside the refresh threshold
//	RefreshDue     token valid, expiration within the refresh threshold
//	Expired        token stored but past its expiration
//
// # Timers
//
// Two timers run while a session is active:
//
//   - refresh: fires at expiresAt minus the refresh threshold and renews the
//     token (or, without a Renewer, fires at expiresAt and ends the session)
//   - inactivity: fires InactivityTimeout after the last interaction and
//     ends the session
//
// Every interaction signal stops and re-arms the inactivity timer. Timer
// callbacks carry the session epoch and their own sequence number and do
// nothing when either is stale.
//
// # Usage
//
//	ctrl, err := session.New(session.Options{
//	    Store:         store,
//	    Authenticator: client,
//	    Renewer:       client,
//	    Navigator:     router,
//	    Activity:      bus,
//	    Config:        session.ConfigFrom(cfg.Session),
//	    Logger:        logger,
//	})
//	if err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	defer ctrl.Dispose()
package session
