package cli

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/game"
)

// NewPuzzleCommand creates the puzzle command.
func NewPuzzleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "puzzle <game>",
		Short: "Fetch and print a validated puzzle",
		Long: `Fetch the puzzle for a game and date and print it after validation.

The Wordle payload includes the solution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPuzzle(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runPuzzle(cmd *cobra.Command, rootOpts *RootOptions, name string) error {
	kind, err := game.ParseKind(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid game", err)
	}

	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()

	date, err := a.date(rootOpts)
	if err != nil {
		return err
	}
	raw, err := a.puzzles.Raw(cmd.Context(), kind, date)
	if err != nil {
		return puzzleError(kind, date, err)
	}

	return a.out.Render(json.RawMessage(raw), func(w io.Writer) error {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(w)
		return err
	})
}
