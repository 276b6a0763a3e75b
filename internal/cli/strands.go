package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/strands"
)

// NewStrandsCommand creates the strands command.
func NewStrandsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strands [path...]",
		Short: "Play the daily Strands puzzle",
		Long: `Trace theme words and the spangram on the letter grid.

A path is a list of zero-based row,col cells separated by spaces, each
adjacent to the one before. Paths come from the arguments or one per
line on stdin. "giveup" ends the game. Words are checked by the result
service, so Strands needs an api_url.

Examples:
  dailies strands "0,0 0,1 1,2 1,3"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrands(cmd, rootOpts, args)
		},
	}
	return cmd
}

// strandsMove is one traced path and its verdict.
type strandsMove struct {
	Path []strands.Coord `json:"path"`
	strands.SubmitResult
}

// strandsView is the JSON rendering of a board.
type strandsView struct {
	Date          string          `json:"date"`
	Clue          string          `json:"clue"`
	Board         []string        `json:"board"`
	ThemeWords    []string        `json:"themeWords"`
	SpangramFound bool            `json:"spangramFound"`
	Paths         []progress.Path `json:"paths"`
	Status        game.Outcome    `json:"status,omitempty"`
	Moves         []strandsMove   `json:"moves"`
}

func runStrands(cmd *cobra.Command, rootOpts *RootOptions, args []string) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	date, err := a.date(rootOpts)
	if err != nil {
		return err
	}
	p, err := a.puzzles.Strands(ctx, date)
	if err != nil {
		return puzzleError(game.Strands, date, err)
	}
	s, err := strands.NewSession(p, date)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot start board", err)
	}

	_, _, _ = a.resolveAuth(ctx)
	if snap, ok := a.loadProgress(ctx, game.Strands, date); ok {
		if st, ok := snap.(progress.Strands); ok {
			if err := s.Restore(st); err != nil {
				a.logger.Warn("saved board ignored", "date", date, "error", err)
			}
		}
	}

	text := a.out.Format != "json"
	if text {
		fmt.Fprintf(a.out.Writer, "Strands %s: %s\n", date, p.Clue)
		printStrandsBoard(a.out.Writer, p)
		printStrandsFound(a.out.Writer, s)
	}

	cl := a.classifier()
	moves := newMoveReader(args, cmd.InOrStdin())
	played := []strandsMove{}
	for !s.Done() {
		move, ok := moves.Next()
		if !ok {
			break
		}
		if strings.EqualFold(move, "giveup") {
			if err := s.GiveUp(); err != nil {
				a.out.Notice("%s", reason(err))
				continue
			}
			a.saveProgress(ctx, s.Snapshot(time.Now()))
			break
		}

		coords, err := parsePath(move)
		if err != nil {
			a.out.Notice("%s", reason(err))
			continue
		}
		res, err := s.SubmitPath(ctx, coords, cl)
		if err != nil {
			a.out.Notice("%s", reason(err))
			if game.IsUpstream(err) {
				break
			}
			continue
		}
		played = append(played, strandsMove{Path: coords, SubmitResult: res})
		if text {
			printStrandsMove(a.out.Writer, res)
		}
		if !res.Duplicate && res.Kind != strands.Other {
			a.saveProgress(ctx, s.Snapshot(time.Now()))
		}
	}

	if text {
		printStrandsStatus(a.out.Writer, s)
	}
	if r, ok := s.Result(); ok {
		a.recordResult(ctx, r)
	}
	if text {
		return nil
	}
	return a.out.Success(strandsView{
		Date:          date,
		Clue:          p.Clue,
		Board:         p.StartingBoard,
		ThemeWords:    s.ThemeWords(),
		SpangramFound: s.SpangramFound(),
		Paths:         s.Paths(),
		Status:        s.Status(),
		Moves:         played,
	})
}

// parsePath reads "r,c r,c ..." into coordinates. Semicolons also
// separate cells.
func parsePath(move string) ([]strands.Coord, error) {
	cells := strings.Fields(strings.ReplaceAll(move, ";", " "))
	coords := make([]strands.Coord, 0, len(cells))
	for _, cell := range cells {
		rs, cs, ok := strings.Cut(cell, ",")
		if !ok {
			return nil, game.InputInvalid(game.Strands, "cell %q must be row,col", cell)
		}
		r, err := strconv.Atoi(strings.TrimSpace(rs))
		if err != nil {
			return nil, game.InputInvalid(game.Strands, "cell %q: bad row", cell)
		}
		c, err := strconv.Atoi(strings.TrimSpace(cs))
		if err != nil {
			return nil, game.InputInvalid(game.Strands, "cell %q: bad column", cell)
		}
		coords = append(coords, strands.Coord{R: r, C: c})
	}
	return coords, nil
}

func printStrandsBoard(w io.Writer, p strands.Puzzle) {
	var header strings.Builder
	header.WriteString("   ")
	for c := 0; c < p.Cols; c++ {
		fmt.Fprintf(&header, " %d", c%10)
	}
	fmt.Fprintln(w, header.String())
	for r, row := range p.StartingBoard {
		cells := make([]string, len(row))
		for i := range row {
			cells[i] = strings.ToUpper(row[i : i+1])
		}
		fmt.Fprintf(w, "%2d  %s\n", r, strings.Join(cells, " "))
	}
}

func printStrandsFound(w io.Writer, s *strands.Session) {
	words := s.ThemeWords()
	if len(words) == 0 && !s.SpangramFound() {
		return
	}
	fmt.Fprintf(w, "Found %d/%d: %s", len(words), s.Puzzle().ThemeWordCount, strings.Join(words, ", "))
	if s.SpangramFound() {
		fmt.Fprint(w, " (spangram found)")
	}
	fmt.Fprintln(w)
}

func printStrandsMove(w io.Writer, res strands.SubmitResult) {
	switch {
	case res.Duplicate:
		fmt.Fprintf(w, "%s already found\n", res.Word)
	case res.Kind == strands.Spangram:
		fmt.Fprintf(w, "%s is the spangram!\n", res.Word)
	case res.Kind == strands.Theme:
		fmt.Fprintf(w, "%s is a theme word\n", res.Word)
	default:
		fmt.Fprintf(w, "%s is not in the theme\n", res.Word)
	}
}

func printStrandsStatus(w io.Writer, s *strands.Session) {
	switch s.Status() {
	case game.Win:
		fmt.Fprintln(w, "Solved!")
	case game.Loss:
		fmt.Fprintln(w, "Gave up")
	default:
		printStrandsFound(w, s)
	}
}
