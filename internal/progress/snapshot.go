package progress

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dailies/internal/game"
)

// Bounds applied when reading snapshots back from storage.
const (
	MaxCols       = 10
	MaxRows       = 10
	MaxMistakes   = 4
	CategoryCount = 4
	MinPathLen    = 2
	MaxPathLen    = 80
	MaxCoord      = 50
)

// Snapshot is the minimal resumable state of one puzzle date.
type Snapshot interface {
	Game() game.Kind
	Day() string
	Stamp() int64
	Validate() error
}

// Wordle is the resumable state of a Wordle board.
type Wordle struct {
	Date      string   `json:"date"`
	Guesses   []string `json:"guesses"`
	Cols      int      `json:"cols"`
	UpdatedAt int64    `json:"updatedAt"`
}

func (w Wordle) Game() game.Kind { return game.Wordle }
func (w Wordle) Day() string     { return w.Date }
func (w Wordle) Stamp() int64    { return w.UpdatedAt }

// Validate checks the date, the column count and every guess.
func (w Wordle) Validate() error {
	if !game.ValidDate(w.Date) {
		return fmt.Errorf("invalid date %q", w.Date)
	}
	if w.Cols <= 0 || w.Cols > MaxCols {
		return fmt.Errorf("cols %d out of range 1..%d", w.Cols, MaxCols)
	}
	if len(w.Guesses) > MaxRows {
		return fmt.Errorf("%d guesses, at most %d", len(w.Guesses), MaxRows)
	}
	for _, g := range w.Guesses {
		if len(g) != w.Cols || !guessRe.MatchString(g) {
			return fmt.Errorf("guess %q is not %d letters", g, w.Cols)
		}
	}
	return nil
}

// Connections is the resumable state of a Connections board.
type Connections struct {
	Date                  string `json:"date"`
	MistakesLeft          int    `json:"mistakesLeft"`
	SolvedCategoryIndexes []int  `json:"solvedCategoryIndexes"`
	UpdatedAt             int64  `json:"updatedAt"`
}

func (c Connections) Game() game.Kind { return game.Connections }
func (c Connections) Day() string     { return c.Date }
func (c Connections) Stamp() int64    { return c.UpdatedAt }

func (c Connections) Validate() error {
	if !game.ValidDate(c.Date) {
		return fmt.Errorf("invalid date %q", c.Date)
	}
	if c.MistakesLeft < 0 || c.MistakesLeft > MaxMistakes {
		return fmt.Errorf("mistakesLeft %d out of range 0..%d", c.MistakesLeft, MaxMistakes)
	}
	for _, idx := range c.SolvedCategoryIndexes {
		if idx < 0 || idx >= CategoryCount {
			return fmt.Errorf("category index %d out of range 0..%d", idx, CategoryCount-1)
		}
	}
	return nil
}

// SortedSolved returns the solved indexes de-duplicated and ascending.
func SortedSolved(indexes []int) []int {
	seen := make(map[int]bool, len(indexes))
	out := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// PathKind distinguishes theme words from the spangram.
type PathKind string

const (
	PathTheme    PathKind = "theme"
	PathSpangram PathKind = "spangram"
)

// Coord is a zero-based grid cell.
type Coord struct {
	R int `json:"r"`
	C int `json:"c"`
}

// Path is a found word together with the cells that spelled it.
type Path struct {
	Kind   PathKind `json:"kind"`
	Word   string   `json:"word"`
	Coords []Coord  `json:"coords"`
}

// Strands is the resumable state of a Strands board.
type Strands struct {
	Date            string   `json:"date"`
	FoundThemeWords []string `json:"foundThemeWords"`
	FoundSpangram   bool     `json:"foundSpangram"`
	FoundPaths      []Path   `json:"foundPaths"`
	GaveUp          bool     `json:"gaveUp"`
	UpdatedAt       int64    `json:"updatedAt"`
}

func (s Strands) Game() game.Kind { return game.Strands }
func (s Strands) Day() string     { return s.Date }
func (s Strands) Stamp() int64    { return s.UpdatedAt }

func (s Strands) Validate() error {
	if !game.ValidDate(s.Date) {
		return fmt.Errorf("invalid date %q", s.Date)
	}
	for _, w := range s.FoundThemeWords {
		if _, ok := NormalizeWord(w); !ok {
			return fmt.Errorf("invalid theme word %q", w)
		}
	}
	for _, p := range s.FoundPaths {
		if err := p.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p Path) validate() error {
	if p.Kind != PathTheme && p.Kind != PathSpangram {
		return fmt.Errorf("invalid path kind %q", p.Kind)
	}
	if _, ok := NormalizeWord(p.Word); !ok {
		return fmt.Errorf("invalid path word %q", p.Word)
	}
	if len(p.Coords) < MinPathLen || len(p.Coords) > MaxPathLen {
		return fmt.Errorf("path length %d out of range %d..%d", len(p.Coords), MinPathLen, MaxPathLen)
	}
	for _, c := range p.Coords {
		if c.R < 0 || c.R > MaxCoord || c.C < 0 || c.C > MaxCoord {
			return fmt.Errorf("coord (%d,%d) out of range 0..%d", c.R, c.C, MaxCoord)
		}
	}
	return nil
}

var (
	wordRe  = regexp.MustCompile(`^[A-Z]{2,}$`)
	guessRe = regexp.MustCompile(`^[A-Za-z]+$`)
	upper   = cases.Upper(language.Und)
)

// NormalizeWord trims, NFC-normalizes and uppercases w, and reports
// whether the result is at least two ASCII letters.
func NormalizeWord(w string) (string, bool) {
	s := upper.String(norm.NFC.String(strings.TrimSpace(w)))
	if !wordRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// strandsRecord is the permissive on-disk shape, accepting the legacy
// foundWords field written by older clients.
type strandsRecord struct {
	Date            string            `json:"date"`
	FoundThemeWords []string          `json:"foundThemeWords"`
	FoundWords      []string          `json:"foundWords"`
	FoundSpangram   bool              `json:"foundSpangram"`
	FoundPaths      []json.RawMessage `json:"foundPaths"`
	GaveUp          bool              `json:"gaveUp"`
	UpdatedAt       int64             `json:"updatedAt"`
}

// Decode parses and validates a stored snapshot for kind. Any failure is
// reported as a STORAGE_CORRUPT error.
func Decode(kind game.Kind, data []byte) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	switch kind {
	case game.Wordle:
		snap, err = decodeWordle(data)
	case game.Connections:
		snap, err = decodeConnections(data)
	case game.Strands:
		snap, err = decodeStrands(data)
	default:
		return nil, game.Corrupt(kind, "unknown game", nil)
	}
	if err != nil {
		return nil, game.Corrupt(kind, "decode snapshot", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, game.Corrupt(kind, "validate snapshot", err)
	}
	return snap, nil
}

func decodeWordle(data []byte) (Snapshot, error) {
	var w Wordle
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Guesses == nil {
		w.Guesses = []string{}
	}
	return w, nil
}

func decodeConnections(data []byte) (Snapshot, error) {
	var c Connections
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.SolvedCategoryIndexes = SortedSolved(c.SolvedCategoryIndexes)
	return c, nil
}

func decodeStrands(data []byte) (Snapshot, error) {
	var rec strandsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	words := rec.FoundThemeWords
	if words == nil {
		words = rec.FoundWords
	}
	s := Strands{
		Date:            rec.Date,
		FoundThemeWords: NormalizeWords(words),
		FoundSpangram:   rec.FoundSpangram,
		FoundPaths:      normalizePaths(rec.FoundPaths),
		GaveUp:          rec.GaveUp,
		UpdatedAt:       rec.UpdatedAt,
	}
	return s, nil
}

// NormalizeWords normalizes each word, dropping invalid ones and repeats.
func NormalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		n, ok := NormalizeWord(w)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// normalizePaths keeps the well-formed paths, first occurrence of each
// kind and word winning.
func normalizePaths(raw []json.RawMessage) []Path {
	out := make([]Path, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		var p Path
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		word, ok := NormalizeWord(p.Word)
		if !ok {
			continue
		}
		p.Word = word
		if p.validate() != nil {
			continue
		}
		key := string(p.Kind) + ":" + p.Word
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Encode serializes a snapshot for storage.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", s.Game(), err)
	}
	return data, nil
}
