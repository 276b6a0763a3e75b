package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/stats"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [game]",
		Short: "Show played, won and the guess distribution",
		Long: `Show statistics for one game, or all of them.

Signed-in players see the result service's totals. Otherwise the local
counters are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runStats(cmd *cobra.Command, rootOpts *RootOptions, args []string) error {
	kinds := game.Kinds
	if len(args) == 1 {
		k, err := game.ParseKind(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid game", err)
		}
		kinds = []game.Kind{k}
	}

	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if _, _, err := a.resolveAuth(ctx); err != nil {
		return WrapExitError(ExitFailure, "cannot determine sign-in state", err)
	}

	summaries := make([]stats.Summary, 0, len(kinds))
	for _, k := range kinds {
		s, err := a.coord.Stats(ctx, k)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to load %s stats", k), err)
		}
		summaries = append(summaries, s)
	}

	return a.out.Render(summaries, func(w io.Writer) error {
		for _, s := range summaries {
			if err := s.Render(w); err != nil {
				return err
			}
		}
		return nil
	})
}
