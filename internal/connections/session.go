package connections

import (
	"math/rand/v2"
	"time"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// SolvedGroup is a category the player has found.
type SolvedGroup struct {
	CategoryIndex int    `json:"categoryIndex"`
	Title         string `json:"title"`
	Cards         []Card `json:"cards"`
}

// SubmitResult describes the outcome of one submission.
type SubmitResult struct {
	Match         bool `json:"match"`
	CategoryIndex int  `json:"categoryIndex"`
	// AlreadySolved is set when the selection matched a category that was
	// solved before. Nothing changes and no mistake is charged.
	AlreadySolved bool `json:"alreadySolved,omitempty"`
	MistakesLeft  int  `json:"mistakesLeft"`
}

// Session is the mutable state of one Connections board.
type Session struct {
	puzzle       Puzzle
	date         string
	order        []Tile
	owner        map[string]int
	selected     []string
	solved       []SolvedGroup
	mistakesLeft int
	guard        game.Guard
}

// NewSession starts a board for a validated puzzle.
func NewSession(p Puzzle, date string) (*Session, error) {
	if err := Validate(p); err != nil {
		return nil, game.Malformed(game.Connections, "invalid puzzle", err)
	}
	s := &Session{
		puzzle:       p,
		date:         date,
		order:        tiles(p),
		owner:        make(map[string]int, CategoryCount*GroupSize),
		mistakesLeft: MaxMistakes,
	}
	for _, t := range s.order {
		s.owner[t.Content] = t.CategoryIndex
	}
	return s, nil
}

// Toggle adds or removes a card from the selection. Cards in solved groups
// cannot be selected and a full selection ignores further additions.
func (s *Session) Toggle(content string) error {
	idx, ok := s.owner[content]
	if !ok {
		return game.InputInvalid(game.Connections, "unknown card %q", content)
	}
	if s.isSolved(idx) {
		return game.InputInvalid(game.Connections, "card %q is already in a solved group", content)
	}
	for i, c := range s.selected {
		if c == content {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return nil
		}
	}
	if len(s.selected) >= GroupSize {
		return nil
	}
	s.selected = append(s.selected, content)
	return nil
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.selected = nil
}

// Selected returns the current selection in the order it was made.
func (s *Session) Selected() []string {
	return append([]string(nil), s.selected...)
}

// Submit checks the selection. A match solves its category and clears the
// selection; a mismatch charges one mistake and leaves the selection.
func (s *Session) Submit() (SubmitResult, error) {
	if s.Done() {
		return SubmitResult{}, game.InputInvalid(game.Connections, "board is finished")
	}
	if len(s.selected) != GroupSize {
		return SubmitResult{}, game.InputInvalid(game.Connections, "select %d cards, have %d", GroupSize, len(s.selected))
	}

	idx := s.owner[s.selected[0]]
	match := true
	for _, c := range s.selected[1:] {
		if s.owner[c] != idx {
			match = false
			break
		}
	}

	if !match {
		s.mistakesLeft = max(0, s.mistakesLeft-1)
		return SubmitResult{Match: false, CategoryIndex: -1, MistakesLeft: s.mistakesLeft}, nil
	}

	res := SubmitResult{Match: true, CategoryIndex: idx, MistakesLeft: s.mistakesLeft}
	if s.isSolved(idx) {
		res.AlreadySolved = true
	} else {
		s.solve(idx)
	}
	s.selected = nil
	return res, nil
}

func (s *Session) solve(idx int) {
	cat := s.puzzle.Categories[idx]
	s.solved = append(s.solved, SolvedGroup{
		CategoryIndex: idx,
		Title:         NormalizeTitle(cat.Title),
		Cards:         append([]Card(nil), cat.Cards...),
	})
}

func (s *Session) isSolved(idx int) bool {
	for _, g := range s.solved {
		if g.CategoryIndex == idx {
			return true
		}
	}
	return false
}

// Solved returns the solved groups in the order they were found.
func (s *Session) Solved() []SolvedGroup {
	return append([]SolvedGroup(nil), s.solved...)
}

func (s *Session) MistakesLeft() int { return s.mistakesLeft }
func (s *Session) Date() string      { return s.date }
func (s *Session) Puzzle() Puzzle    { return s.puzzle }

// Status is the terminal outcome, or "" while the board is in play.
func (s *Session) Status() game.Outcome {
	switch {
	case len(s.solved) == CategoryCount:
		return game.Win
	case s.mistakesLeft <= 0:
		return game.Loss
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
	r := game.Result{Kind: game.Connections, Date: s.date, Outcome: status}
	if status == game.Win {
		r.Detail = min(MaxMistakes, max(0, MaxMistakes-s.mistakesLeft))
	}
	return r, true
}

// Board is the display order: solved groups first, in the order they were
// found, then the remaining tiles.
type Board struct {
	Solved    []SolvedGroup `json:"solved"`
	Remaining []Tile        `json:"remaining"`
}

// Board returns the current display order.
func (s *Session) Board() Board {
	b := Board{Solved: s.Solved()}
	for _, t := range s.order {
		if !s.isSolved(t.CategoryIndex) {
			b.Remaining = append(b.Remaining, t)
		}
	}
	return b
}

// Shuffle reorders the unsolved tiles. Solved tiles keep their place.
func (s *Session) Shuffle(r *rand.Rand) {
	var solved, unsolved []Tile
	for _, t := range s.order {
		if s.isSolved(t.CategoryIndex) {
			solved = append(solved, t)
		} else {
			unsolved = append(unsolved, t)
		}
	}
	swap := func(i, j int) { unsolved[i], unsolved[j] = unsolved[j], unsolved[i] }
	if r == nil {
		rand.Shuffle(len(unsolved), swap)
	} else {
		r.Shuffle(len(unsolved), swap)
	}
	s.order = append(solved, unsolved...)
}

// Snapshot captures the board for persistence.
func (s *Session) Snapshot(now time.Time) progress.Connections {
	idx := make([]int, len(s.solved))
	for i, g := range s.solved {
		idx[i] = g.CategoryIndex
	}
	return progress.Connections{
		Date:                  s.date,
		MistakesLeft:          s.mistakesLeft,
		SolvedCategoryIndexes: progress.SortedSolved(idx),
		UpdatedAt:             now.UnixMilli(),
	}
}

// Restore applies a saved board to a fresh session. Solved groups are
// rebuilt in index order. A board that was already finished will not hand
// out its result again.
func (s *Session) Restore(p progress.Connections) error {
	if len(s.solved) > 0 || s.mistakesLeft != MaxMistakes {
		return game.InputInvalid(game.Connections, "restore onto a board already in play")
	}
	if p.Date != s.date {
		return game.InputInvalid(game.Connections, "snapshot for %s does not match board %s", p.Date, s.date)
	}
	if err := p.Validate(); err != nil {
		return game.InputInvalid(game.Connections, "invalid snapshot: %v", err)
	}
	s.mistakesLeft = p.MistakesLeft
	for _, idx := range progress.SortedSolved(p.SolvedCategoryIndexes) {
		s.solve(idx)
	}
	s.selected = nil
	if s.Done() {
		s.guard.Fire()
	}
	return nil
}
