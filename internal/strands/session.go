package strands

import (
	"context"
	"sort"
	"time"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// SubmitResult is the outcome of one traced path.
type SubmitResult struct {
	Classification
	// Duplicate is set when the word had already been found. Found state is
	// unchanged and the classifier is not consulted.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Session is the mutable state of one Strands board.
type Session struct {
	puzzle     Puzzle
	date       string
	themeWords []string
	spangram   bool
	paths      []progress.Path
	gaveUp     bool
	guard      game.Guard
}

// NewSession starts a board for a validated puzzle.
func NewSession(p Puzzle, date string) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, game.Malformed(game.Strands, "invalid puzzle", err)
	}
	return &Session{puzzle: p, date: date}, nil
}

// SubmitPath validates coords, spells the word and asks cl to classify it.
// Theme words and the spangram are recorded once each; repeat submissions
// of a found word leave found state untouched.
func (s *Session) SubmitPath(ctx context.Context, coords []Coord, cl Classifier) (SubmitResult, error) {
	if s.Done() {
		return SubmitResult{}, game.InputInvalid(game.Strands, "board is finished")
	}
	if err := ValidatePath(coords, s.puzzle.Rows, s.puzzle.Cols); err != nil {
		return SubmitResult{}, err
	}
	word, err := WordFor(s.puzzle.StartingBoard, coords)
	if err != nil {
		return SubmitResult{}, err
	}

	if p, ok := s.found(word); ok {
		return SubmitResult{Classification: Classification{Kind: Verdict(p.Kind), Word: p.Word}, Duplicate: true}, nil
	}
	if c, ok := s.cellInUse(coords); ok {
		return SubmitResult{}, game.InputInvalid(game.Strands, "cell (%d,%d) is already part of a found word", c.R, c.C)
	}

	res, err := cl.Classify(ctx, s.date, word)
	if err != nil {
		if game.CodeOf(err) != "" {
			return SubmitResult{}, err
		}
		return SubmitResult{}, game.Unavailable(game.Strands, "classify word", err)
	}
	if !res.Kind.Valid() {
		return SubmitResult{}, game.Malformed(game.Strands, "classify word", nil)
	}
	if res.Kind == Other {
		return SubmitResult{Classification: res}, nil
	}
	if w, ok := progress.NormalizeWord(res.Word); ok {
		word = w
	}
	res.Word = word

	path := progress.Path{Kind: progress.PathKind(res.Kind), Word: word, Coords: append([]Coord(nil), coords...)}
	switch res.Kind {
	case Spangram:
		if s.spangram {
			return SubmitResult{Classification: res, Duplicate: true}, nil
		}
		s.spangram = true
		s.paths = append(s.paths, path)
	case Theme:
		s.addThemeWord(word)
		s.paths = append(s.paths, path)
	}
	return SubmitResult{Classification: res}, nil
}

func (s *Session) found(word string) (progress.Path, bool) {
	for _, p := range s.paths {
		if p.Word == word {
			return p, true
		}
	}
	return progress.Path{}, false
}

func (s *Session) cellInUse(coords []Coord) (Coord, bool) {
	used := make(map[Coord]bool)
	for _, p := range s.paths {
		for _, c := range p.Coords {
			used[c] = true
		}
	}
	for _, c := range coords {
		if used[c] {
			return c, true
		}
	}
	return Coord{}, false
}

func (s *Session) addThemeWord(word string) {
	for _, w := range s.themeWords {
		if w == word {
			return
		}
	}
	s.themeWords = append(s.themeWords, word)
	sort.Strings(s.themeWords)
}

// GiveUp ends the board as a loss. It is rejected once the board is done.
func (s *Session) GiveUp() error {
	if s.Done() {
		return game.InputInvalid(game.Strands, "board is finished")
	}
	s.gaveUp = true
	return nil
}

// ThemeWords returns the found theme words in sorted order.
func (s *Session) ThemeWords() []string {
	return append([]string(nil), s.themeWords...)
}

// Paths returns the found paths in the order they were found.
func (s *Session) Paths() []progress.Path {
	return append([]progress.Path(nil), s.paths...)
}

func (s *Session) SpangramFound() bool { return s.spangram }
func (s *Session) Date() string        { return s.date }
func (s *Session) Puzzle() Puzzle      { return s.puzzle }

// Status is the terminal outcome, or "" while the board is in play. A
// puzzle that does not state how many theme words it has can only be
// given up.
func (s *Session) Status() game.Outcome {
	if s.gaveUp {
		return game.Loss
	}
	n := s.puzzle.ThemeWordCount
	if n > 0 && s.spangram && len(s.themeWords) >= n {
		return game.Win
	}
	return ""
}

// Done reports whether the board has reached a terminal state.
func (s *Session) Done() bool { return s.Status() != "" }

// Result hands out the terminal result once per finished board.
func (s *Session) Result() (game.Result, bool) {
	status := s.Status()
	if status == "" || !s.guard.Fire() {
		return game.Result{}, false
	}
	return game.Result{Kind: game.Strands, Date: s.date, Outcome: status}, true
}

// Snapshot captures the board for persistence.
func (s *Session) Snapshot(now time.Time) progress.Strands {
	words := append([]string{}, s.themeWords...)
	paths := make([]progress.Path, len(s.paths))
	for i, p := range s.paths {
		paths[i] = progress.Path{Kind: p.Kind, Word: p.Word, Coords: append([]Coord(nil), p.Coords...)}
	}
	return progress.Strands{
		Date:            s.date,
		FoundThemeWords: words,
		FoundSpangram:   s.spangram,
		FoundPaths:      paths,
		GaveUp:          s.gaveUp,
		UpdatedAt:       now.UnixMilli(),
	}
}

// Restore applies a saved board to a fresh session. Paths that do not fit
// this board are dropped. A board that was already finished will not hand
// out its result again.
func (s *Session) Restore(p progress.Strands) error {
	if len(s.paths) > 0 || len(s.themeWords) > 0 || s.spangram || s.gaveUp {
		return game.InputInvalid(game.Strands, "restore onto a board already in play")
	}
	if p.Date != s.date {
		return game.InputInvalid(game.Strands, "snapshot for %s does not match board %s", p.Date, s.date)
	}
	for _, w := range progress.NormalizeWords(p.FoundThemeWords) {
		s.addThemeWord(w)
	}
	s.spangram = p.FoundSpangram
	seen := make(map[string]bool)
	for _, path := range p.FoundPaths {
		key := string(path.Kind) + ":" + path.Word
		if seen[key] || ValidatePath(path.Coords, s.puzzle.Rows, s.puzzle.Cols) != nil {
			continue
		}
		seen[key] = true
		s.paths = append(s.paths, path)
	}
	s.gaveUp = p.GaveUp
	if s.Done() {
		s.guard.Fire()
	}
	return nil
}
