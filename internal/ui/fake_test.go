// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/trialdesk/internal/api"
	"github.com/jeranaias/trialdesk/internal/session"
)

// fakeSessions is an in-memory Sessions for view tests.
type fakeSessions struct {
	mu         sync.Mutex
	authed     bool
	status     session.Status
	loginErr   error
	refreshErr error
	logins     []session.Credentials
	logouts    int
	refreshes  int
	terminated []session.Reason
}

func (f *fakeSessions) Login(_ context.Context, creds session.Credentials) (session.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, creds)
	if f.loginErr != nil {
		return session.Info{}, f.loginErr
	}
	f.authed = true
	exp := time.Now().Add(time.Hour)
	return session.Info{Grant: session.Grant{Token: "tok", ExpiresAt: exp}, SessionID: "sid"}, nil
}

func (f *fakeSessions) Logout(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.authed = false
}

func (f *fakeSessions) Refresh(context.Context) (session.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return session.Info{}, f.refreshErr
	}
	return session.Info{Grant: session.Grant{Token: "tok2", ExpiresAt: time.Now().Add(time.Hour)}}, nil
}

func (f *fakeSessions) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSessions) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authed
}

func (f *fakeSessions) Terminate(reason session.Reason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed = false
	f.terminated = append(f.terminated, reason)
}

type fakeProfiles struct {
	op  *api.Operator
	err error
}

func (f fakeProfiles) Me(context.Context) (*api.Operator, error) {
	return f.op, f.err
}
