// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/trialdesk/internal/guard"
	"github.com/jeranaias/trialdesk/internal/session"
)

// authTimeout bounds the network part of login and refresh.
const authTimeout = 30 * time.Second

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and inspect the session",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		newAuthLoginCmd(a),
		newAuthLogoutCmd(a),
		newAuthStatusCmd(a),
		newAuthRefreshCmd(a),
	)
	return cmd
}

// =============================================================================
// AUTH LOGIN
// =============================================================================

// AuthLoginOutput is the JSON data for auth login.
type AuthLoginOutput struct {
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn string    `json:"expires_in"`
}

func newAuthLoginCmd(a *app) *cobra.Command {
	var (
		email         string
		passwordStdin bool
		jsonOut       bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Example: "  trialdesk auth login --email ops@example.org\n" +
			"  printf '%s\\n' \"$PASSWORD\" | trialdesk auth login --email ops@example.org --password-stdin",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.readCredentials(email, passwordStdin)
			if err != nil {
				return err
			}
			run := func() (any, error) {
				var out AuthLoginOutput
				err := a.withSession(cmd.Context(), func(ctx context.Context, s *stack) error {
					ctx, cancel := context.WithTimeout(ctx, authTimeout)
					defer cancel()
					info, err := s.ctrl.Login(ctx, creds)
					if err != nil {
						return err
					}
					out = AuthLoginOutput{
						SessionID: info.SessionID,
						Email:     creds.Email,
						ExpiresAt: info.ExpiresAt,
						ExpiresIn: formatRemaining(time.Until(info.ExpiresAt)),
					}
					return nil
				})
				return out, err
			}
			if jsonOut {
				return outputJSON(a.stdout, "auth login", run)
			}
			data, err := run()
			if err != nil {
				return err
			}
			out := data.(AuthLoginOutput)
			fmt.Fprintln(a.stdout, RenderConditional(SuccessStyle, "Signed in as "+out.Email))
			fmt.Fprintln(a.stdout, RenderField("Session", out.SessionID))
			fmt.Fprintln(a.stdout, RenderField("Expires", out.ExpiresAt.Local().Format(time.RFC1123)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

// readCredentials collects the email and password. The password is read
// without echo unless --password-stdin is given.
func (a *app) readCredentials(email string, passwordStdin bool) (session.Credentials, error) {
	email = strings.TrimSpace(email)
	var (
		password string
		err      error
	)
	switch {
	case passwordStdin:
		if email == "" {
			return session.Credentials{}, &UsageError{Msg: "--password-stdin requires --email"}
		}
		password, err = promptLine(a.stdin, a.stderr, "")
	default:
		if email == "" {
			if err := RequiresTTY("prompt for an email"); err != nil {
				return session.Credentials{}, err
			}
			if email, err = promptLine(a.stdin, a.stderr, "Email: "); err != nil {
				return session.Credentials{}, err
			}
		}
		password, err = promptPassword(a.stderr, "Password: ")
	}
	if err != nil {
		return session.Credentials{}, err
	}
	if email == "" || password == "" {
		return session.Credentials{}, &UsageError{Msg: "email and password are required"}
	}
	return session.Credentials{Email: email, Password: password}, nil
}

// =============================================================================
// AUTH LOGOUT
// =============================================================================

// AuthLogoutOutput is the JSON data for auth logout.
type AuthLogoutOutput struct {
	WasAuthenticated bool `json:"was_authenticated"`
}

func newAuthLogoutCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := func() (any, error) {
				var out AuthLogoutOutput
				err := a.withSession(cmd.Context(), func(_ context.Context, s *stack) error {
					out.WasAuthenticated = s.ctrl.IsAuthenticated()
					s.ctrl.Logout("")
					return nil
				})
				return out, err
			}
			if jsonOut {
				return outputJSON(a.stdout, "auth logout", run)
			}
			data, err := run()
			if err != nil {
				return err
			}
			if data.(AuthLogoutOutput).WasAuthenticated {
				fmt.Fprintln(a.stdout, RenderConditional(SuccessStyle, "Signed out"))
			} else {
				fmt.Fprintln(a.stdout, RenderConditional(DimStyle, "No active session; record cleared"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

// =============================================================================
// AUTH STATUS
// =============================================================================

func newAuthStatusCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		watch   bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session state, expiration and idle time",
		Long: `Show session state, expiration and idle time.

With --watch the session is guarded and the status reprinted every
session.guard_interval_secs until the session ends or the command is
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				if jsonOut {
					return &UsageError{Msg: "--watch cannot be combined with --json"}
				}
				return a.watchStatus(cmd.Context())
			}
			run := func() (any, error) {
				var st session.Status
				err := a.withSession(cmd.Context(), func(_ context.Context, s *stack) error {
					st = s.ctrl.Status()
					return nil
				})
				return st, err
			}
			if jsonOut {
				return outputJSON(a.stdout, "auth status", run)
			}
			data, err := run()
			if err != nil {
				return err
			}
			a.printStatus(data.(session.Status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep guarding the session and reprint its status")
	return cmd
}

// watchStatus mounts an access guard for the lifetime of the command. It
// returns ErrUnauthenticated once the session ends and nil on interrupt.
func (a *app) watchStatus(ctx context.Context) error {
	return a.withSession(ctx, func(ctx context.Context, s *stack) error {
		ended := make(chan session.Reason, 1)
		s.ctrl.OnTerminate(func(r session.Reason) {
			select {
			case ended <- r:
			default:
			}
		})

		g := guard.New(s.ctrl, guard.Options{
			Interval: s.cfg.Session.GuardInterval(),
			Logger:   s.logger,
		})
		unmount := g.Mount()
		defer unmount()

		ticker := time.NewTicker(g.Interval())
		defer ticker.Stop()

		for {
			select {
			case r := <-ended:
				fmt.Fprintln(a.stdout, RenderConditional(WarningStyle, "Session ended: "+string(r)))
				return session.ErrUnauthenticated
			default:
			}
			a.printStatus(s.ctrl.Status())

			select {
			case <-ctx.Done():
				return nil
			case r := <-ended:
				fmt.Fprintln(a.stdout, RenderConditional(WarningStyle, "Session ended: "+string(r)))
				return session.ErrUnauthenticated
			case <-ticker.C:
			}
		}
	})
}

func (a *app) printStatus(st session.Status) {
	fmt.Fprintln(a.stdout, RenderConditional(TitleStyle, "Session"))
	fmt.Fprintln(a.stdout, RenderLabel("State")+RenderState(st.State.String()))
	if !st.State.Valid() {
		fmt.Fprintln(a.stdout, RenderConditional(DimStyle, "Run 'trialdesk auth login' to sign in."))
		return
	}
	renewal := "disabled"
	if st.RenewalEnabled {
		renewal = "in " + formatRemaining(st.RefreshIn)
	}
	fmt.Fprintln(a.stdout, RenderField("Session", st.SessionID))
	fmt.Fprintln(a.stdout, RenderField("Expires", st.ExpiresAt.Local().Format(time.RFC1123)))
	fmt.Fprintln(a.stdout, RenderField("Expires in", formatRemaining(st.ExpiresIn)))
	fmt.Fprintln(a.stdout, RenderField("Renewal", renewal))
	fmt.Fprintln(a.stdout, RenderField("Idle remaining", formatRemaining(st.IdleRemaining)))
}

// =============================================================================
// AUTH REFRESH
// =============================================================================

func newAuthRefreshCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Renew the session token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := func() (any, error) {
				var st session.Status
				err := a.withSession(cmd.Context(), func(ctx context.Context, s *stack) error {
					ctx, cancel := context.WithTimeout(ctx, authTimeout)
					defer cancel()
					if _, err := s.ctrl.Refresh(ctx); err != nil {
						return err
					}
					st = s.ctrl.Status()
					return nil
				})
				return st, err
			}
			if jsonOut {
				return outputJSON(a.stdout, "auth refresh", run)
			}
			data, err := run()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, RenderConditional(SuccessStyle, "Session renewed"))
			a.printStatus(data.(session.Status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}
