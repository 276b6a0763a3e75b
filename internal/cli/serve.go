package cli

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/config"
	"github.com/roach88/dailies/internal/remote"
	"github.com/roach88/dailies/internal/resultdb"
	"github.com/roach88/dailies/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr     string
	DSN      string
	Upstream string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the result service",
		Long: `Run the HTTP result service that signed-in players sync against.

Results and progress are stored in SQLite, or PostgreSQL when the dsn is
a postgres:// URL. Puzzles are proxied from the upstream feed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "result database (default from config)")
	cmd.Flags().StringVar(&opts.Upstream, "upstream", "", "puzzle feed URL template with {kind} and {date}")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions) error {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	sc := cfg.Server
	if opts.Addr != "" {
		sc.Addr = opts.Addr
	}
	if opts.DSN != "" {
		sc.DSN = opts.DSN
	}
	if opts.Upstream != "" {
		sc.Upstream = opts.Upstream
	}
	if sc.Upstream == "" {
		sc.Upstream = remote.DefaultUpstream
	}

	tokens, err := server.NewTokens(sc.JWTSecret)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid jwt secret", err)
	}

	db, err := resultdb.Open(sc.DSN)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open result database", err)
	}
	defer db.Close()

	logger := slog.Default()
	puzzles, err := remote.NewPuzzleSource([]string{sc.Upstream},
		remote.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		remote.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid upstream", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, puzzles, tokens, server.WithLogger(logger))
	if err := srv.Run(ctx, sc.Addr); err != nil {
		return WrapExitError(ExitFailure, "result service stopped", err)
	}
	return nil
}
