// Package connections implements the grouping game: sixteen cards that
// split into four hidden categories of four.
package connections

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/dailies/internal/game"
)

const (
	// CategoryCount is the number of hidden categories.
	CategoryCount = 4
	// GroupSize is the number of cards per category and per submission.
	GroupSize = 4
	// MaxMistakes is the number of mismatches allowed before the game is lost.
	MaxMistakes = 4
)

// Card is one tile. Content identifies the card within a puzzle and
// Position is its canonical slot on the starting board.
type Card struct {
	Content  string `json:"content"`
	Position int    `json:"position"`
}

// Category is a titled group of four cards.
type Category struct {
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// Puzzle is the immutable definition for one date.
type Puzzle struct {
	Status     string     `json:"status,omitempty"`
	ID         int        `json:"id,omitempty"`
	PrintDate  string     `json:"print_date"`
	Editor     string     `json:"editor,omitempty"`
	Categories []Category `json:"categories"`
}

// Validate checks the 4x4 shape and that card contents are non-empty and
// unique across the puzzle.
func Validate(p Puzzle) error {
	if len(p.Categories) != CategoryCount {
		return fmt.Errorf("want %d categories, got %d", CategoryCount, len(p.Categories))
	}
	seen := make(map[string]bool, CategoryCount*GroupSize)
	for i, cat := range p.Categories {
		if len(cat.Cards) != GroupSize {
			return fmt.Errorf("category %d: want %d cards, got %d", i, GroupSize, len(cat.Cards))
		}
		for _, card := range cat.Cards {
			if strings.TrimSpace(card.Content) == "" {
				return fmt.Errorf("category %d: empty card", i)
			}
			if seen[card.Content] {
				return fmt.Errorf("category %d: duplicate card %q", i, card.Content)
			}
			seen[card.Content] = true
		}
	}
	if p.PrintDate != "" && !game.ValidDate(p.PrintDate) {
		return fmt.Errorf("invalid print_date %q", p.PrintDate)
	}
	return nil
}

// NormalizeTitle collapses runs of whitespace and trims the ends.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Tile is a card tagged with the category it belongs to.
type Tile struct {
	Card
	CategoryIndex int `json:"categoryIndex"`
}

// tiles lists every card in canonical board order.
func tiles(p Puzzle) []Tile {
	out := make([]Tile, 0, CategoryCount*GroupSize)
	for idx, cat := range p.Categories {
		for _, card := range cat.Cards {
			out = append(out, Tile{Card: card, CategoryIndex: idx})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
