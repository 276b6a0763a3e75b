// Package strands implements the word-search game: letters laid out on a
// grid, theme words traced as 8-directionally connected paths, and one
// spangram that spans the board.
package strands

import (
	"fmt"
	"strings"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// Coord is a zero-based (row, column) grid cell.
type Coord = progress.Coord

// MaxSide bounds the rows and columns of a board.
const MaxSide = progress.MaxCoord + 1

// Puzzle is the immutable definition for one date. The answer key is not
// part of it; words are classified by a Classifier.
type Puzzle struct {
	Status         string   `json:"status,omitempty"`
	ID             int      `json:"id,omitempty"`
	PrintDate      string   `json:"printDate"`
	Clue           string   `json:"clue"`
	StartingBoard  []string `json:"startingBoard"`
	Rows           int      `json:"rows"`
	Cols           int      `json:"cols"`
	ThemeWordCount int      `json:"themeWordCount"`
}

// Validate checks that the board is a non-empty rectangle of letters whose
// size matches Rows and Cols.
func (p Puzzle) Validate() error {
	if len(p.StartingBoard) == 0 {
		return fmt.Errorf("empty board")
	}
	if p.Rows != len(p.StartingBoard) {
		return fmt.Errorf("rows %d does not match board height %d", p.Rows, len(p.StartingBoard))
	}
	if p.Rows > MaxSide || p.Cols <= 0 || p.Cols > MaxSide {
		return fmt.Errorf("board %dx%d out of range", p.Rows, p.Cols)
	}
	for i, row := range p.StartingBoard {
		if len(row) != p.Cols {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), p.Cols)
		}
		for _, ch := range row {
			if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
				return fmt.Errorf("row %d: non-letter %q", i, ch)
			}
		}
	}
	if p.ThemeWordCount < 0 {
		return fmt.Errorf("negative themeWordCount %d", p.ThemeWordCount)
	}
	return nil
}

// IsAdjacent reports whether a and b are distinct cells at Chebyshev
// distance one.
func IsAdjacent(a, b Coord) bool {
	dr, dc := abs(a.R-b.R), abs(a.C-b.C)
	return dr <= 1 && dc <= 1 && (dr != 0 || dc != 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ValidatePath checks that coords is at least two in-bounds cells, each
// adjacent to the previous, with no cell repeated.
func ValidatePath(coords []Coord, rows, cols int) error {
	if len(coords) < progress.MinPathLen {
		return game.InputInvalid(game.Strands, "path needs at least %d cells, got %d", progress.MinPathLen, len(coords))
	}
	if len(coords) > progress.MaxPathLen {
		return game.InputInvalid(game.Strands, "path of %d cells exceeds %d", len(coords), progress.MaxPathLen)
	}
	seen := make(map[Coord]bool, len(coords))
	for i, c := range coords {
		if c.R < 0 || c.R >= rows || c.C < 0 || c.C >= cols {
			return game.InputInvalid(game.Strands, "cell (%d,%d) is off the %dx%d board", c.R, c.C, rows, cols)
		}
		if seen[c] {
			return game.InputInvalid(game.Strands, "cell (%d,%d) is used twice", c.R, c.C)
		}
		seen[c] = true
		if i > 0 && !IsAdjacent(coords[i-1], c) {
			return game.InputInvalid(game.Strands, "cell (%d,%d) is not adjacent to (%d,%d)", c.R, c.C, coords[i-1].R, coords[i-1].C)
		}
	}
	return nil
}

// WordFor spells the uppercase word traced by coords on board.
func WordFor(board []string, coords []Coord) (string, error) {
	var b strings.Builder
	for _, c := range coords {
		if c.R < 0 || c.R >= len(board) || c.C < 0 || c.C >= len(board[c.R]) {
			return "", game.InputInvalid(game.Strands, "cell (%d,%d) is off the board", c.R, c.C)
		}
		b.WriteByte(board[c.R][c.C])
	}
	word, ok := progress.NormalizeWord(b.String())
	if !ok {
		return "", game.InputInvalid(game.Strands, "path spells %q, not a word", b.String())
	}
	return word, nil
}
