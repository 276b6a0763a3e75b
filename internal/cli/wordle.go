package cli

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/wordle"
)

// WordleOptions holds flags for the wordle command.
type WordleOptions struct {
	Endless bool
	Length  int
	Seed    uint64
}

// NewWordleCommand creates the wordle command.
func NewWordleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WordleOptions{}

	cmd := &cobra.Command{
		Use:   "wordle [guess...]",
		Short: "Play the daily Wordle or an endless round",
		Long: `Guess the hidden word in six tries.

Guesses are taken from the arguments, or one per line from stdin. Each
row is printed with G for a correct letter, Y for a letter in the wrong
place and . for a letter not in the word.

Examples:
  dailies wordle crane slate
  dailies wordle --endless --length 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWordle(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Endless, "endless", false, "play a random word instead of the daily puzzle")
	cmd.Flags().IntVar(&opts.Length, "length", wordle.DailyLength, "word length for endless rounds")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for endless word selection")
	_ = cmd.Flags().MarkHidden("seed")

	return cmd
}

// wordleView is the JSON rendering of a board.
type wordleView struct {
	Date     string       `json:"date,omitempty"`
	Length   int          `json:"length"`
	Rows     []wordle.Row `json:"rows"`
	Status   game.Outcome `json:"status,omitempty"`
	Solution string       `json:"solution,omitempty"`
}

func runWordle(cmd *cobra.Command, rootOpts *RootOptions, opts *WordleOptions, args []string) error {
	a, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	var (
		list     *wordle.WordList
		solution string
		date     string
	)
	if opts.Endless {
		if list, err = wordle.Words(opts.Length); err != nil {
			return WrapExitError(ExitCommandError, "invalid length", err)
		}
		var r *rand.Rand
		if opts.Seed != 0 {
			r = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
		}
		solution = wordle.RandomWord(list, r)
	} else {
		if date, err = a.date(rootOpts); err != nil {
			return err
		}
		if list, err = wordle.Words(wordle.DailyLength); err != nil {
			return err
		}
		if solution, err = a.puzzles.Wordle(ctx, date); err != nil {
			return puzzleError(game.Wordle, date, err)
		}
	}

	s, err := wordle.NewSession(list, solution, date)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot start board", err)
	}

	_, _, _ = a.resolveAuth(ctx)
	if !s.Endless() {
		if snap, ok := a.loadProgress(ctx, game.Wordle, date); ok {
			if w, ok := snap.(progress.Wordle); ok {
				if err := s.Restore(w); err != nil {
					a.logger.Warn("saved board ignored", "date", date, "error", err)
				}
			}
		}
	}

	text := a.out.Format != "json"
	if text {
		printWordleHeader(a.out.Writer, s)
		for _, row := range s.Rows() {
			printWordleRow(a.out.Writer, row)
		}
	}

	moves := newMoveReader(args, cmd.InOrStdin())
	for !s.Done() {
		guess, ok := moves.Next()
		if !ok {
			break
		}
		row, err := s.Submit(guess)
		if err != nil {
			a.out.Notice("%s", reason(err))
			continue
		}
		if text {
			printWordleRow(a.out.Writer, row)
		}
		if !s.Endless() {
			a.saveProgress(ctx, s.Snapshot(time.Now()))
		}
	}

	view := wordleView{Date: s.Date(), Length: s.Cols(), Rows: s.Rows(), Status: s.Status()}
	if s.Done() {
		view.Solution = s.Solution()
	}
	if text {
		printWordleStatus(a.out.Writer, s)
	}
	if r, ok := s.Result(); ok {
		a.recordResult(ctx, r)
	}
	if text {
		return nil
	}
	if view.Rows == nil {
		view.Rows = []wordle.Row{}
	}
	return a.out.Success(view)
}

func printWordleHeader(w io.Writer, s *wordle.Session) {
	if s.Endless() {
		fmt.Fprintf(w, "Wordle (endless, %d letters)\n", s.Cols())
		return
	}
	fmt.Fprintf(w, "Wordle %s\n", s.Date())
}

func printWordleRow(w io.Writer, row wordle.Row) {
	fmt.Fprintf(w, "%s  %s\n", strings.ToUpper(row.Guess), row.Evaluation)
}

func printWordleStatus(w io.Writer, s *wordle.Session) {
	switch s.Status() {
	case game.Win:
		fmt.Fprintf(w, "Solved in %d/%d\n", len(s.Rows()), wordle.MaxRows)
	case game.Loss:
		fmt.Fprintf(w, "Out of guesses. The word was %s\n", strings.ToUpper(s.Solution()))
	default:
		fmt.Fprintf(w, "%d guess(es) left  %s\n", wordle.MaxRows-len(s.Rows()), keyboardLine(s.Keyboard()))
	}
}

// keyboardLine lists guessed letters grouped by their best state.
func keyboardLine(keys map[byte]wordle.LetterState) string {
	groups := map[wordle.LetterState][]byte{}
	for c, st := range keys {
		groups[st] = append(groups[st], c)
	}
	var parts []string
	for _, st := range []wordle.LetterState{wordle.Correct, wordle.Present, wordle.Absent} {
		letters := groups[st]
		if len(letters) == 0 {
			continue
		}
		slices.Sort(letters)
		parts = append(parts, fmt.Sprintf("%s:%s", st, strings.ToUpper(string(letters))))
	}
	return strings.Join(parts, " ")
}
