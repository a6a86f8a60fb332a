// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/jeranaias/trialdesk/internal/activity"
	"github.com/jeranaias/trialdesk/internal/logging"
	"github.com/jeranaias/trialdesk/internal/storage"
)

const renewFlightKey = "renew"

// Options wires a Controller to its collaborators.
type Options struct {
	Store         storage.Store
	Authenticator Authenticator
	// Renewer is optional. Without it the session ends at expiresAt.
	Renewer   Renewer
	Navigator Navigator
	// Activity is optional. Without it only Touch resets the inactivity
	// deadline.
	Activity activity.Source
	Clock    clockwork.Clock
	Logger   *zap.Logger
	Config   Config
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller manages one operator session. Construct one per running
// application and share it by reference.
type Controller struct {
	mu sync.Mutex

	store   storage.Store
	auth    Authenticator
	renewer Renewer
	nav     Navigator
	source  activity.Source
	clock   clockwork.Clock
	logger  *zap.Logger
	cfg     Config

	// Lifecycle
	started        bool
	disposed       bool
	cancelListener func()

	// Active session; epoch changes on every login, restore and termination.
	active       bool
	epoch        uint64
	sessionID    string
	lastActivity time.Time

	// Timers
	refreshTimer clockwork.Timer
	refreshSeq   uint64
	idleTimer    clockwork.Timer
	idleSeq      uint64

	persistLimiter *rate.Limiter
	renewLimiter   *rate.Limiter
	flight         singleflight.Group

	onTerminate []func(Reason)
}

// New validates opts and returns a Controller. Call Start to restore a
// persisted session and attach the interaction listener.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if opts.Authenticator == nil {
		return nil, errors.New("session: authenticator is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("session: navigator is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.Config.withDefaults()

	c := &Controller{
		store:   opts.Store,
		auth:    opts.Authenticator,
		renewer: opts.Renewer,
		nav:     opts.Navigator,
		source:  opts.Activity,
		clock:   opts.Clock,
		logger:  opts.Logger.Named("session"),
		cfg:     cfg,

		renewLimiter: rate.NewLimiter(rate.Every(cfg.MinRenewInterval), 1),
	}
	if cfg.ActivityPersistInterval > 0 {
		c.persistLimiter = rate.NewLimiter(rate.Every(cfg.ActivityPersistInterval), 1)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// RenewalEnabled reports whether a Renewer is configured.
func (c *Controller) RenewalEnabled() bool {
	return c.renewer != nil
}

// OnTerminate registers fn to run after a session ends, before navigation.
func (c *Controller) OnTerminate(fn func(Reason)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTerminate = append(c.onTerminate, fn)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start attaches the interaction listener and restores a persisted session.
// A session that has expired or has been idle past InactivityTimeout is
// cleared without navigation. Calling Start again is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	if c.started {
		return nil
	}
	c.started = true

	if c.source != nil {
		c.cancelListener = c.source.Subscribe(c.onSignal)
	}

	rec, ok := c.store.Record()
	if !ok {
		return nil
	}

	now := c.clock.Now()
	if !now.Before(rec.ExpiresAt) {
		c.logger.Info("session.restore_discarded", zap.String("reason", string(ReasonExpired)))
		return c.clearLocked()
	}
	if !rec.HasActivity() || now.Sub(rec.LastActivityAt) >= c.cfg.InactivityTimeout {
		c.logger.Info("session.restore_discarded", zap.String("reason", string(ReasonInactivity)))
		return c.clearLocked()
	}

	c.beginLocked(rec.LastActivityAt)
	c.armRefreshLocked(rec.ExpiresAt)
	c.armIdleLocked(c.cfg.InactivityTimeout - now.Sub(rec.LastActivityAt))

	c.logger.Info("session.restored",
		zap.String("session_id", c.sessionID),
		zap.Time("expires_at", rec.ExpiresAt),
		zap.Time("last_activity_at", rec.LastActivityAt),
		logging.TokenField(rec.Token),
	)
	return nil
}

// Dispose detaches the listener and stops both timers. The stored record is
// kept so the next Start restores it.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	if c.cancelListener != nil {
		c.cancelListener()
		c.cancelListener = nil
	}
	c.stopTimersLocked()
	c.epoch++
	c.active = false
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login authenticates creds and installs the resulting session. On failure
// the store is cleared and the authenticator's error is returned unchanged.
func (c *Controller) Login(ctx context.Context, creds Credentials) (Info, error) {
	grant, err := c.auth.Login(ctx, creds)
	if err == nil {
		err = c.checkGrant(grant)
	}
	if err != nil {
		c.mu.Lock()
		c.epoch++
		c.active = false
		c.stopTimersLocked()
		if clearErr := c.clearLocked(); clearErr != nil {
			c.logger.Warn("clear after failed login", zap.Error(clearErr))
		}
		c.mu.Unlock()

		c.logger.Info("session.login_failed", zap.Error(err))
		return Info{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.stopTimersLocked()
	if err := c.store.Save(grant.Token, grant.ExpiresAt); err != nil {
		c.active = false
		c.epoch++
		_ = c.clearLocked()
		return Info{}, fmt.Errorf("persist session: %w", err)
	}
	if err := c.store.RecordActivity(now); err != nil {
		c.logger.Warn("record login activity", zap.Error(err))
	}

	c.beginLocked(now)
	c.armRefreshLocked(grant.ExpiresAt)
	c.armIdleLocked(c.cfg.InactivityTimeout)

	c.logger.Info("session.login",
		zap.String("session_id", c.sessionID),
		zap.Time("expires_at", grant.ExpiresAt),
		logging.TokenField(grant.Token),
	)
	return Info{Grant: grant, SessionID: c.sessionID}, nil
}

// Logout ends the session and navigates to target, or to LoginPath when
// target is empty. Navigation is the last side effect and happens exactly
// once per call.
func (c *Controller) Logout(target string) {
	c.end(ReasonLogout, target, 0, false)
}

// Terminate ends the session for reason and navigates to LoginPath. It is
// the path taken by the access guard and by 401 responses.
func (c *Controller) Terminate(reason Reason) {
	c.end(reason, "", 0, false)
}

// end clears the session and navigates. When checkEpoch is set the call is
// dropped if the session has changed since epoch was captured.
func (c *Controller) end(reason Reason, target string, epoch uint64, checkEpoch bool) {
	c.mu.Lock()
	if checkEpoch && (epoch != c.epoch || !c.active) {
		c.mu.Unlock()
		return
	}

	sessionID := c.sessionID
	c.epoch++
	c.active = false
	c.sessionID = ""
	c.stopTimersLocked()
	if err := c.clearLocked(); err != nil {
		c.logger.Error("clear session record", zap.Error(err))
	}
	hooks := make([]func(Reason), len(c.onTerminate))
	copy(hooks, c.onTerminate)
	c.mu.Unlock()

	c.logger.Info("session.terminated",
		zap.String("session_id", sessionID),
		zap.String("reason", string(reason)),
	)

	for _, fn := range hooks {
		fn(reason)
	}

	if target == "" {
		target = c.cfg.LoginPath
	}
	c.nav.Navigate(target)
}

// =============================================================================
// QUERIES
// =============================================================================

// IsAuthenticated reports whether a token is stored and its expiration is
// strictly in the future. It has no side effects.
func (c *Controller) IsAuthenticated() bool {
	rec, ok := c.store.Record()
	return ok && c.clock.Now().Before(rec.ExpiresAt)
}

// State returns the current state.
func (c *Controller) State() State {
	rec, ok := c.store.Record()
	return stateOf(rec, ok, c.clock.Now(), c.cfg.RefreshThreshold)
}

// Status returns a snapshot for display.
func (c *Controller) Status() Status {
	rec, ok := c.store.Record()
	now := c.clock.Now()

	st := Status{
		State:          stateOf(rec, ok, now, c.cfg.RefreshThreshold),
		RenewalEnabled: c.renewer != nil,
	}
	if !ok {
		return st
	}

	c.mu.Lock()
	if c.active {
		st.SessionID = c.sessionID
		if c.lastActivity.After(rec.LastActivityAt) {
			rec.LastActivityAt = c.lastActivity
		}
	}
	c.mu.Unlock()

	st.ExpiresAt = rec.ExpiresAt
	st.LastActivityAt = rec.LastActivityAt
	st.ExpiresIn = nonNegative(rec.ExpiresAt.Sub(now))
	st.RefreshIn = nonNegative(rec.ExpiresAt.Add(-c.cfg.RefreshThreshold).Sub(now))
	if rec.HasActivity() {
		st.IdleRemaining = nonNegative(c.cfg.InactivityTimeout - now.Sub(rec.LastActivityAt))
	}
	return st
}

// AuthToken returns the token to attach to an outgoing request. Without a
// valid session it returns ("", false) and changes nothing. Inside the
// refresh threshold it triggers or joins the single in-flight renewal.
func (c *Controller) AuthToken(ctx context.Context) (string, bool) {
	rec, ok := c.store.Record()
	now := c.clock.Now()

	switch stateOf(rec, ok, now, c.cfg.RefreshThreshold) {
	case Authenticated:
		return rec.Token, true
	case RefreshDue:
		if c.renewer == nil {
			return rec.Token, true
		}
		grant, err := c.renew(ctx, false)
		if err != nil {
			return "", false
		}
		return grant.Token, true
	default:
		return "", false
	}
}

// =============================================================================
// RENEWAL
// =============================================================================

// Refresh renews the token now, sharing any renewal already in flight.
func (c *Controller) Refresh(ctx context.Context) (Info, error) {
	if c.renewer == nil {
		return Info{}, ErrRenewalUnavailable
	}
	if !c.IsAuthenticated() {
		return Info{}, ErrUnauthenticated
	}
	grant, err := c.renew(ctx, true)
	if err != nil {
		return Info{}, err
	}

	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	return Info{Grant: grant, SessionID: id}, nil
}

// renew runs at most one renewal at a time. Callers arriving while one is in
// flight receive its result.
func (c *Controller) renew(ctx context.Context, force bool) (Grant, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	v, err, _ := c.flight.Do(renewFlightKey, func() (interface{}, error) {
		return c.doRenew(ctx, epoch, force)
	})
	if err != nil {
		return Grant{}, err
	}
	return v.(Grant), nil
}

func (c *Controller) doRenew(ctx context.Context, epoch uint64, force bool) (Grant, error) {
	rec, ok := c.store.Record()
	now := c.clock.Now()

	switch stateOf(rec, ok, now, c.cfg.RefreshThreshold) {
	case Anonymous:
		return Grant{}, ErrUnauthenticated
	case Expired:
		c.end(ReasonExpired, "", epoch, true)
		return Grant{}, ErrUnauthenticated
	case Authenticated:
		if !force {
			// Another caller already installed a fresh token.
			return Grant{Token: rec.Token, ExpiresAt: rec.ExpiresAt}, nil
		}
	case RefreshDue:
		// A grant shorter than the threshold stays due after renewal; keep
		// using it until the limiter allows another attempt.
		if !c.renewLimiter.AllowN(now, 1) && !force {
			return Grant{Token: rec.Token, ExpiresAt: rec.ExpiresAt}, nil
		}
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RenewTimeout)
	defer cancel()

	grant, err := c.renewer.Renew(rctx, rec.Token)
	if err == nil {
		err = c.checkGrant(grant)
	}
	if err != nil {
		c.logger.Warn("session.renewal_failed", zap.Error(err))
		c.end(ReasonRenewalFailed, "", epoch, true)
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.logger.Info("session.renewal_discarded")
		return Grant{}, ErrUnauthenticated
	}
	if err := c.store.Save(grant.Token, grant.ExpiresAt); err != nil {
		return Grant{}, fmt.Errorf("persist renewed session: %w", err)
	}
	if c.active {
		c.armRefreshLocked(grant.ExpiresAt)
	}

	c.logger.Info("session.renewed",
		zap.String("session_id", c.sessionID),
		zap.Time("expires_at", grant.ExpiresAt),
		logging.TokenField(grant.Token),
	)
	return grant, nil
}

func (c *Controller) checkGrant(g Grant) error {
	if g.Token == "" || g.ExpiresAt.IsZero() || !g.ExpiresAt.After(c.clock.Now()) {
		return ErrInvalidGrant
	}
	return nil
}

// =============================================================================
// ACTIVITY
// =============================================================================

// Touch records an interaction. The API client calls it after every
// successful authenticated request.
func (c *Controller) Touch() {
	c.recordInteraction()
}

func (c *Controller) onSignal(s activity.Signal) {
	if c.recordInteraction() {
		c.logger.Debug("session.activity", zap.Stringer("signal", s))
	}
}

// recordInteraction resets the inactivity deadline. It reports false when no
// session is active.
func (c *Controller) recordInteraction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return false
	}

	now := c.clock.Now()
	c.lastActivity = now
	c.armIdleLocked(c.cfg.InactivityTimeout)

	if c.persistLimiter == nil || c.persistLimiter.AllowN(now, 1) {
		if err := c.store.RecordActivity(now); err != nil {
			c.logger.Warn("persist activity", zap.Error(err))
		}
	}
	return true
}

// =============================================================================
// TIMERS
// =============================================================================

// beginLocked marks a new active session.
func (c *Controller) beginLocked(lastActivity time.Time) {
	c.epoch++
	c.active = true
	c.sessionID = uuid.NewString()
	c.lastActivity = lastActivity
}

func (c *Controller) armRefreshLocked(expiresAt time.Time) {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	c.refreshSeq++
	epoch, seq := c.epoch, c.refreshSeq

	now := c.clock.Now()
	fireAt := expiresAt
	if c.renewer != nil {
		fireAt = expiresAt.Add(-c.cfg.RefreshThreshold)
		if next := now.Add(c.renewWaitAt(now)); fireAt.Before(next) {
			fireAt = next
		}
		if fireAt.After(expiresAt) {
			fireAt = expiresAt
		}
	}
	delay := nonNegative(fireAt.Sub(now))

	c.refreshTimer = c.clock.AfterFunc(delay, func() {
		c.onRefreshTimer(epoch, seq)
	})
}

// renewWaitAt returns how long until renewLimiter admits another renewal.
func (c *Controller) renewWaitAt(now time.Time) time.Duration {
	tokens := c.renewLimiter.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(c.cfg.MinRenewInterval))
}

func (c *Controller) armIdleLocked(d time.Duration) {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleSeq++
	epoch, seq := c.epoch, c.idleSeq

	c.idleTimer = c.clock.AfterFunc(nonNegative(d), func() {
		c.onIdleTimer(epoch, seq)
	})
}

func (c *Controller) stopTimersLocked() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	c.refreshSeq++
	c.idleSeq++
}

func (c *Controller) onRefreshTimer(epoch, seq uint64) {
	c.mu.Lock()
	stale := epoch != c.epoch || seq != c.refreshSeq || !c.active
	c.mu.Unlock()
	if stale {
		return
	}

	if c.renewer == nil {
		c.end(ReasonExpired, "", epoch, true)
		return
	}
	if _, err := c.renew(context.Background(), false); err != nil {
		c.logger.Debug("scheduled renewal did not complete", zap.Error(err))
	}
}

func (c *Controller) onIdleTimer(epoch, seq uint64) {
	c.mu.Lock()
	stale := epoch != c.epoch || seq != c.idleSeq || !c.active
	c.mu.Unlock()
	if stale {
		return
	}
	c.end(ReasonInactivity, "", epoch, true)
}

// clearLocked clears the store. Callers hold c.mu.
func (c *Controller) clearLocked() error {
	return c.store.Clear()
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
