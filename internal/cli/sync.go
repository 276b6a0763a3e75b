package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/server"
	"github.com/roach88/dailies/internal/syncer"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push queued progress and results to the result service",
		Long: `Flush everything kept locally while signed out.

Progress for every game is sent first, then queued results. A queue stops
at its first failure and keeps the rest for the next sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts)
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, rootOpts *RootOptions) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if a.client == nil {
		return NewExitError(ExitFailure, "no api_url configured")
	}
	auth, err := a.client.Me(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "sign-in check failed", err)
	}
	if !auth.IsSignedIn() {
		return WrapExitError(ExitFailure, "run dailies login first", syncer.ErrSignedOut)
	}

	report, err := a.coord.SetAuth(ctx, auth)
	if report == nil && err == nil {
		var r syncer.Report
		r, err = a.coord.FlushAll(ctx)
		report = &r
	}
	if err != nil {
		return WrapExitError(ExitFailure, "sync failed", err)
	}

	if err := a.out.Render(report, func(w io.Writer) error {
		return printReport(w, *report)
	}); err != nil {
		return err
	}
	if _, remaining := report.Totals(); remaining > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d item(s) could not be synced", remaining))
	}
	return nil
}

func printReport(w io.Writer, r syncer.Report) error {
	for _, k := range r.Kinds {
		if _, err := fmt.Fprintf(w, "%-12s progress %d synced, %d pending; results %d synced, %d pending\n",
			k.Kind, k.Progress.Flushed, k.Progress.Remaining, k.Events.Flushed, k.Events.Remaining); err != nil {
			return err
		}
	}
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sign-in state and what is waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts)
		},
	}
	return cmd
}

// statusView is the JSON rendering of status.
type statusView struct {
	Auth     string           `json:"auth"`
	APIURL   string           `json:"apiUrl,omitempty"`
	Database string           `json:"database"`
	Pending  []syncer.Pending `json:"pending"`
	Problems []string         `json:"problems,omitempty"`
}

func runStatus(cmd *cobra.Command, rootOpts *RootOptions) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	view := statusView{
		Auth:     syncer.SignedOut().String(),
		APIURL:   a.cfg.APIURL,
		Database: a.cfg.Database,
	}
	if a.client != nil {
		auth, err := a.client.Me(ctx)
		if err != nil {
			a.logger.Warn("sign-in check failed", "error", err)
		}
		view.Auth = auth.String()
	}

	if view.Pending, err = a.coord.Pending(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to read local queues", err)
	}
	problems, err := a.local.Check(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to check local records", err)
	}
	for _, p := range problems {
		view.Problems = append(view.Problems, p.Error())
	}

	return a.out.Render(view, func(w io.Writer) error {
		fmt.Fprintf(w, "auth:     %s\n", view.Auth)
		if view.APIURL != "" {
			fmt.Fprintf(w, "service:  %s\n", view.APIURL)
		}
		fmt.Fprintf(w, "database: %s\n", view.Database)
		for _, p := range view.Pending {
			fmt.Fprintf(w, "  %s\n", p)
		}
		for _, p := range view.Problems {
			fmt.Fprintf(w, "  unreadable: %s\n", p)
		}
		return nil
	})
}

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	Token string
	User  string
	TTL   time.Duration
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a session token and sync queued state",
		Long: `Save a session token for the result service, then sync everything
queued while signed out.

Pass a token issued by the service with --token. Against a self-hosted
service whose server.jwt_secret is in the local config, --user mints one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "session token")
	cmd.Flags().StringVar(&opts.User, "user", "", "user id to mint a token for")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", server.DefaultTokenTTL, "lifetime of a minted token")

	return cmd
}

func runLogin(cmd *cobra.Command, rootOpts *RootOptions, opts *LoginOptions) error {
	if (opts.Token == "") == (opts.User == "") {
		return NewExitError(ExitCommandError, "pass exactly one of --token or --user")
	}

	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	token := opts.Token
	if opts.User != "" {
		tokens, err := server.NewTokens(a.cfg.Server.JWTSecret)
		if err != nil {
			a.close()
			return WrapExitError(ExitCommandError, "cannot mint a token", err)
		}
		if token, err = tokens.Issue(opts.User, opts.TTL); err != nil {
			a.close()
			return WrapExitError(ExitCommandError, "cannot mint a token", err)
		}
	}
	err = a.db.Set(ctx, sessionKey, []byte(token))
	a.close()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to save session", err)
	}

	// Reopen so the client carries the new token.
	a, err = openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	if a.cfg.SessionToken != "" {
		a.out.Notice("note: a configured session_token overrides the saved one")
	}
	if a.client == nil {
		a.out.Notice("session saved; configure api_url to sync")
		return nil
	}

	auth, report, err := a.resolveAuth(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "sign-in check failed", err)
	}
	if !auth.IsSignedIn() {
		if derr := a.db.Delete(ctx, sessionKey); derr != nil {
			a.logger.Warn("failed to discard rejected session", "error", derr)
		}
		return WrapExitError(ExitFailure, "the service rejected the session", syncer.ErrSignedOut)
	}

	view := struct {
		UserID string         `json:"userId"`
		Report *syncer.Report `json:"report,omitempty"`
	}{UserID: auth.UserID(), Report: report}
	return a.out.Render(view, func(w io.Writer) error {
		fmt.Fprintf(w, "signed in as %s\n", auth.UserID())
		return nil
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.db.Delete(cmd.Context(), sessionKey); err != nil {
				return WrapExitError(ExitFailure, "failed to remove session", err)
			}
			if a.cfg.SessionToken != "" {
				a.out.Notice("note: a configured session_token is still in effect")
			}
			return a.out.Render(map[string]bool{"signedOut": true}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, "signed out")
				return err
			})
		},
	}
	return cmd
}
