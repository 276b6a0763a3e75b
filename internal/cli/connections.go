package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dailies/internal/connections"
	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// ConnectionsOptions holds flags for the connections command.
type ConnectionsOptions struct {
	Shuffle bool
}

// NewConnectionsCommand creates the connections command.
func NewConnectionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectionsOptions{}

	cmd := &cobra.Command{
		Use:   "connections [group...]",
		Short: "Play the daily Connections puzzle",
		Long: `Sort sixteen cards into four groups of four.

Each move is four comma-separated cards, from the arguments or one per
line on stdin. "shuffle" reorders the unsolved cards. Four mistakes end
the game.

Examples:
  dailies connections "BASS,FLOUNDER,SALMON,TROUT"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnections(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Shuffle, "shuffle", false, "shuffle the board before playing")

	return cmd
}

// connectionsView is the JSON rendering of a board.
type connectionsView struct {
	Date         string                     `json:"date"`
	Board        connections.Board          `json:"board"`
	MistakesLeft int                        `json:"mistakesLeft"`
	Status       game.Outcome               `json:"status,omitempty"`
	Moves        []connections.SubmitResult `json:"moves"`
}

func runConnections(cmd *cobra.Command, rootOpts *RootOptions, opts *ConnectionsOptions, args []string) error {
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
	p, err := a.puzzles.Connections(ctx, date)
	if err != nil {
		return puzzleError(game.Connections, date, err)
	}
	s, err := connections.NewSession(p, date)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot start board", err)
	}

	_, _, _ = a.resolveAuth(ctx)
	if snap, ok := a.loadProgress(ctx, game.Connections, date); ok {
		if c, ok := snap.(progress.Connections); ok {
			if err := s.Restore(c); err != nil {
				a.logger.Warn("saved board ignored", "date", date, "error", err)
			}
		}
	}
	if opts.Shuffle {
		s.Shuffle(nil)
	}

	text := a.out.Format != "json"
	if text {
		fmt.Fprintf(a.out.Writer, "Connections %s\n", date)
		printConnectionsBoard(a.out.Writer, s)
	}

	cards := cardIndex(p)
	moves := newMoveReader(args, cmd.InOrStdin())
	results := []connections.SubmitResult{}
	for !s.Done() {
		move, ok := moves.Next()
		if !ok {
			break
		}
		if strings.EqualFold(move, "shuffle") {
			s.Shuffle(nil)
			if text {
				printConnectionsBoard(a.out.Writer, s)
			}
			continue
		}

		res, err := submitGroup(s, cards, move)
		if err != nil {
			a.out.Notice("%s", reason(err))
			continue
		}
		results = append(results, res)
		if text {
			printConnectionsMove(a.out.Writer, s, res)
		}
		a.saveProgress(ctx, s.Snapshot(time.Now()))
	}

	if text {
		printConnectionsStatus(a.out.Writer, s)
	}
	if r, ok := s.Result(); ok {
		a.recordResult(ctx, r)
	}
	if text {
		return nil
	}
	return a.out.Success(connectionsView{
		Date:         date,
		Board:        s.Board(),
		MistakesLeft: s.MistakesLeft(),
		Status:       s.Status(),
		Moves:        results,
	})
}

// cardIndex maps upper-cased card text to the card's content.
func cardIndex(p connections.Puzzle) map[string]string {
	idx := make(map[string]string)
	for _, cat := range p.Categories {
		for _, c := range cat.Cards {
			idx[strings.ToUpper(c.Content)] = c.Content
		}
	}
	return idx
}

// submitGroup selects the comma-separated cards in move and submits them.
// The selection is cleared when any card is rejected.
func submitGroup(s *connections.Session, cards map[string]string, move string) (connections.SubmitResult, error) {
	s.Deselect()
	parts := strings.Split(move, ",")
	if len(parts) != connections.GroupSize {
		return connections.SubmitResult{}, game.InputInvalid(game.Connections,
			"a group is %d comma-separated cards, got %d", connections.GroupSize, len(parts))
	}
	for _, part := range parts {
		name := strings.ToUpper(strings.TrimSpace(part))
		content, ok := cards[name]
		if !ok {
			content = name
		}
		if err := s.Toggle(content); err != nil {
			s.Deselect()
			return connections.SubmitResult{}, err
		}
	}
	if len(s.Selected()) != connections.GroupSize {
		s.Deselect()
		return connections.SubmitResult{}, game.InputInvalid(game.Connections, "a group needs %d different cards", connections.GroupSize)
	}
	res, err := s.Submit()
	s.Deselect()
	return res, err
}

func printConnectionsBoard(w io.Writer, s *connections.Session) {
	b := s.Board()
	for _, g := range b.Solved {
		printSolvedGroup(w, g)
	}
	for i := 0; i < len(b.Remaining); i += connections.GroupSize {
		end := min(i+connections.GroupSize, len(b.Remaining))
		names := make([]string, 0, connections.GroupSize)
		for _, t := range b.Remaining[i:end] {
			names = append(names, fmt.Sprintf("%-12s", t.Content))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(names, " "), " "))
	}
}

func printSolvedGroup(w io.Writer, g connections.SolvedGroup) {
	names := make([]string, len(g.Cards))
	for i, c := range g.Cards {
		names[i] = c.Content
	}
	fmt.Fprintf(w, "== %s: %s\n", g.Title, strings.Join(names, ", "))
}

func printConnectionsMove(w io.Writer, s *connections.Session, res connections.SubmitResult) {
	switch {
	case res.AlreadySolved:
		fmt.Fprintln(w, "Already found")
	case res.Match:
		for _, g := range s.Solved() {
			if g.CategoryIndex == res.CategoryIndex {
				printSolvedGroup(w, g)
			}
		}
	default:
		fmt.Fprintf(w, "Not a group. %d mistake(s) left\n", res.MistakesLeft)
	}
}

func printConnectionsStatus(w io.Writer, s *connections.Session) {
	switch s.Status() {
	case game.Win:
		fmt.Fprintf(w, "Solved with %d mistake(s)\n", connections.MaxMistakes-s.MistakesLeft())
	case game.Loss:
		fmt.Fprintln(w, "Out of mistakes. The groups were:")
		for _, cat := range s.Puzzle().Categories {
			names := make([]string, len(cat.Cards))
			for i, c := range cat.Cards {
				names[i] = c.Content
			}
			fmt.Fprintf(w, "== %s: %s\n", cat.Title, strings.Join(names, ", "))
		}
	default:
		fmt.Fprintf(w, "%d mistake(s) left\n", s.MistakesLeft())
	}
}
