package wordle

import (
	"strings"
	"time"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// MaxRows is the number of guesses allowed per board.
const MaxRows = 6

// Row is a submitted guess with its evaluation.
type Row struct {
	Guess      string     `json:"guess"`
	Evaluation Evaluation `json:"evaluation"`
}

// Session is the mutable state of one Wordle board. A session with an
// empty date is an endless round and is never persisted.
type Session struct {
	list     *WordList
	solution string
	date     string
	rows     []Row
	status   game.Outcome
	guard    game.Guard
}

// NewSession starts a board for solution. Guesses are checked against list.
func NewSession(list *WordList, solution, date string) (*Session, error) {
	solution = strings.ToLower(solution)
	if !WellFormed(solution, list.Length()) {
		return nil, game.InputInvalid(game.Wordle, "solution %q is not a %d-letter word", solution, list.Length())
	}
	return &Session{list: list, solution: solution, date: date}, nil
}

// Submit evaluates guess and appends it as the next row. Invalid guesses
// are rejected without consuming a row.
func (s *Session) Submit(guess string) (Row, error) {
	if s.Done() {
		return Row{}, game.InputInvalid(game.Wordle, "board is finished")
	}
	guess = strings.ToLower(strings.TrimSpace(guess))
	if !WellFormed(guess, s.list.Length()) {
		return Row{}, game.InputInvalid(game.Wordle, "guess %q must be %d letters", guess, s.list.Length())
	}
	if !s.list.Contains(guess) {
		return Row{}, game.InputInvalid(game.Wordle, "%q is not in the word list", guess)
	}
	return s.apply(guess)
}

func (s *Session) apply(guess string) (Row, error) {
	eval, err := Evaluate(s.solution, guess)
	if err != nil {
		return Row{}, game.InputInvalid(game.Wordle, "%v", err)
	}
	row := Row{Guess: guess, Evaluation: eval}
	s.rows = append(s.rows, row)
	switch {
	case eval.Solved():
		s.status = game.Win
	case len(s.rows) >= MaxRows:
		s.status = game.Loss
	}
	return row, nil
}

// Rows returns the submitted rows in order.
func (s *Session) Rows() []Row {
	return append([]Row(nil), s.rows...)
}

func (s *Session) Date() string     { return s.date }
func (s *Session) Endless() bool    { return s.date == "" }
func (s *Session) Cols() int        { return s.list.Length() }
func (s *Session) Solution() string { return s.solution }

// Status is the terminal outcome, or "" while the board is in play.
func (s *Session) Status() game.Outcome { return s.status }

// Done reports whether the board has reached a terminal state.
func (s *Session) Done() bool { return s.status != "" }

// Result hands out the terminal result the first time it is called on a
// finished board. Boards restored already finished never hand one out.
func (s *Session) Result() (game.Result, bool) {
	if !s.Done() || !s.guard.Fire() {
		return game.Result{}, false
	}
	r := game.Result{Kind: game.Wordle, Date: s.date, Outcome: s.status}
	if s.status == game.Win {
		r.Detail = len(s.rows)
	}
	return r, true
}

// Keyboard aggregates the best state seen for each guessed letter.
func (s *Session) Keyboard() map[byte]LetterState {
	return Keyboard(s.rows)
}

// Snapshot captures the board for persistence.
func (s *Session) Snapshot(now time.Time) progress.Wordle {
	guesses := make([]string, len(s.rows))
	for i, r := range s.rows {
		guesses[i] = r.Guess
	}
	return progress.Wordle{
		Date:      s.date,
		Guesses:   guesses,
		Cols:      s.list.Length(),
		UpdatedAt: now.UnixMilli(),
	}
}

// Restore replays a saved board onto a fresh session. Guesses are replayed
// without list membership checks so a board survives word list changes.
// A board that was already finished stays finished and will not hand out
// its result again.
func (s *Session) Restore(p progress.Wordle) error {
	if len(s.rows) > 0 {
		return game.InputInvalid(game.Wordle, "restore onto a board already in play")
	}
	if p.Date != s.date {
		return game.InputInvalid(game.Wordle, "snapshot for %s does not match board %s", p.Date, s.date)
	}
	if p.Cols != s.list.Length() {
		return game.InputInvalid(game.Wordle, "snapshot has %d columns, board has %d", p.Cols, s.list.Length())
	}
	for _, g := range p.Guesses {
		if s.Done() {
			break
		}
		g = strings.ToLower(g)
		if !WellFormed(g, s.list.Length()) {
			continue
		}
		if _, err := s.apply(g); err != nil {
			return err
		}
	}
	if s.Done() {
		s.guard.Fire()
	}
	return nil
}

// Keyboard aggregates letter states across rows. A letter keeps the best
// state it has earned: correct over present over absent.
func Keyboard(rows []Row) map[byte]LetterState {
	keys := make(map[byte]LetterState)
	for _, r := range rows {
		for i := 0; i < len(r.Guess) && i < len(r.Evaluation); i++ {
			c := r.Guess[i]
			if r.Evaluation[i].rank() > keys[c].rank() {
				keys[c] = r.Evaluation[i]
			}
		}
	}
	return keys
}
