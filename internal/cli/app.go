package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/config"
	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/local"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/remote"
	"github.com/roach88/dailies/internal/stats"
	"github.com/roach88/dailies/internal/store"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/syncer"
)

// sessionKey is where login keeps the session token.
const sessionKey = "auth/session"

// app is the wiring shared by the player-facing commands.
type app struct {
	cfg     *config.Config
	out     *OutputFormatter
	logger  *slog.Logger
	db      *store.Store
	local   *local.Store
	client  *remote.Client
	puzzles *remote.PuzzleSource
	coord   *syncer.Coordinator
	loc     *time.Location
	token   string
}

// openApp loads config and opens the local database. The caller must
// call close.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid timezone", err)
	}

	if dir := filepath.Dir(cfg.Database); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	logger := slog.Default()
	a := &app{
		cfg: cfg,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
		logger: logger,
		db:     db,
		local:  local.New(db, local.WithProgressCap(cfg.ProgressCap), local.WithLogger(logger)),
		loc:    loc,
	}

	a.token = cfg.SessionToken
	if a.token == "" {
		saved, ok, err := db.Get(cmd.Context(), sessionKey)
		if err != nil {
			db.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read session", err)
		}
		if ok {
			a.token = string(saved)
		}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var endpoints []string
	if cfg.PuzzleProxyURL != "" {
		endpoints = append(endpoints, cfg.PuzzleProxyURL)
	}
	if cfg.APIURL != "" {
		a.client, err = remote.NewClient(cfg.APIURL,
			remote.WithHTTPClient(httpClient),
			remote.WithSessionToken(a.token),
			remote.WithLogger(logger))
		if err != nil {
			db.Close()
			return nil, WrapExitError(ExitCommandError, "invalid api url", err)
		}
		endpoints = append(endpoints, remote.ServiceEndpoint(cfg.APIURL))
	}
	a.puzzles, err = remote.NewPuzzleSource(endpoints, remote.WithHTTPClient(httpClient), remote.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}

	var r syncer.Remote = offlineRemote{}
	if a.client != nil {
		r = a.client
	}
	a.coord = syncer.New(a.local, r, syncer.WithLogger(logger))
	return a, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

// resolveAuth runs the sign-in check and hands the result to the
// coordinator. Without a service the player is signed out. When the check
// fails the state stays unknown and nothing is persisted.
func (a *app) resolveAuth(ctx context.Context) (syncer.Auth, *syncer.Report, error) {
	auth := syncer.SignedOut()
	if a.client != nil {
		var err error
		auth, err = a.client.Me(ctx)
		if err != nil {
			a.logger.Warn("sign-in check failed, progress will not be saved", "error", err)
			return syncer.Unknown(), nil, err
		}
	}
	report, err := a.coord.SetAuth(ctx, auth)
	if report != nil {
		flushed, remaining := report.Totals()
		if flushed > 0 || remaining > 0 {
			a.out.Notice("synced %d queued item(s), %d still pending", flushed, remaining)
		}
	}
	return auth, report, err
}

// date returns the puzzle date from --date or today in the configured zone.
func (a *app) date(opts *RootOptions) (string, error) {
	if opts.Date == "" {
		return game.DateIn(time.Now(), a.loc), nil
	}
	if !game.ValidDate(opts.Date) {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", opts.Date))
	}
	return opts.Date, nil
}

// classifier returns the Strands word checker.
func (a *app) classifier() strands.Classifier {
	if a.client == nil {
		return strands.ClassifierFunc(func(context.Context, string, string) (strands.Classification, error) {
			return strands.Classification{}, game.Unavailable(game.Strands, "no result service configured", nil)
		})
	}
	return a.client
}

// saveProgress persists a snapshot, warning instead of failing the move.
func (a *app) saveProgress(ctx context.Context, snap progress.Snapshot) {
	if err := a.coord.SaveProgress(ctx, snap); err != nil {
		a.logger.Warn("progress not saved", "kind", snap.Game(), "date", snap.Day(), "error", err)
	}
}

// loadProgress returns the saved snapshot, treating failures as absent.
func (a *app) loadProgress(ctx context.Context, kind game.Kind, date string) (progress.Snapshot, bool) {
	snap, ok, err := a.coord.LoadProgress(ctx, kind, date)
	if err != nil {
		a.logger.Warn("progress not loaded", "kind", kind, "date", date, "error", err)
		return nil, false
	}
	return snap, ok
}

// recordResult records a finished game and prints the refreshed stats.
func (a *app) recordResult(ctx context.Context, r game.Result) {
	outcome, err := a.coord.RecordResult(ctx, r)
	if err != nil {
		a.logger.Warn("result not recorded", "kind", r.Kind, "outcome", r.Outcome, "error", err)
		return
	}
	if outcome.Queued {
		a.out.Notice("result saved locally; it will sync when you sign in")
	}
	if outcome.Summary != nil && a.out.Format != "json" {
		_ = outcome.Summary.Render(a.out.Writer)
	}
}

// offlineRemote stands in for the service when none is configured. The
// coordinator never calls it while signed out.
type offlineRemote struct{}

func (offlineRemote) unavailable(kind game.Kind) error {
	return game.Unavailable(kind, "no result service configured", nil)
}

func (o offlineRemote) SaveProgress(_ context.Context, snap progress.Snapshot) error {
	return o.unavailable(snap.Game())
}

func (o offlineRemote) LoadProgress(_ context.Context, kind game.Kind, _ string) (progress.Snapshot, bool, error) {
	return nil, false, o.unavailable(kind)
}

func (o offlineRemote) RecordResult(_ context.Context, e progress.Event) error {
	return o.unavailable(e.Kind)
}

func (o offlineRemote) Stats(_ context.Context, kind game.Kind) (stats.Summary, error) {
	return stats.Summary{}, o.unavailable(kind)
}
