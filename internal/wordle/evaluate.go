// Package wordle implements the Wordle-style guesser: the duplicate-aware
// evaluator, the embedded word lists, daily and endless word selection,
// and the per-board session.
package wordle

import (
	"fmt"
	"regexp"
	"strings"
)

// LetterState is the mark given to one position of a guess.
type LetterState string

const (
	Correct LetterState = "correct"
	Present LetterState = "present"
	Absent  LetterState = "absent"
)

// rank orders states for keyboard aggregation.
func (s LetterState) rank() int {
	switch s {
	case Correct:
		return 3
	case Present:
		return 2
	case Absent:
		return 1
	}
	return 0
}

// Evaluation holds one mark per position of a guess.
type Evaluation []LetterState

func (e Evaluation) String() string {
	var b strings.Builder
	for _, s := range e {
		switch s {
		case Correct:
			b.WriteByte('G')
		case Present:
			b.WriteByte('Y')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Solved reports whether every position is correct.
func (e Evaluation) Solved() bool {
	if len(e) == 0 {
		return false
	}
	for _, s := range e {
		if s != Correct {
			return false
		}
	}
	return true
}

// Evaluate scores guess against solution. Exact matches are marked first
// and consume their letter; the remaining positions are marked present only
// while unmatched copies of the letter are left in the solution. Both words
// are compared case-insensitively and must have the same length.
func Evaluate(solution, guess string) (Evaluation, error) {
	sol := []byte(strings.ToLower(solution))
	g := []byte(strings.ToLower(guess))
	if len(sol) != len(g) {
		return nil, fmt.Errorf("guess length %d does not match solution length %d", len(g), len(sol))
	}

	counts := make(map[byte]int, len(sol))
	for _, c := range sol {
		counts[c]++
	}

	eval := make(Evaluation, len(g))
	for i := range g {
		if g[i] == sol[i] {
			eval[i] = Correct
			counts[g[i]]--
		}
	}
	for i := range g {
		if eval[i] == Correct {
			continue
		}
		if counts[g[i]] > 0 {
			eval[i] = Present
			counts[g[i]]--
		} else {
			eval[i] = Absent
		}
	}
	return eval, nil
}

var guessRes = map[int]*regexp.Regexp{}

func guessPattern(length int) *regexp.Regexp {
	if re, ok := guessRes[length]; ok {
		return re
	}
	return regexp.MustCompile(fmt.Sprintf(`^[a-zA-Z]{%d}$`, length))
}

func init() {
	for _, n := range Lengths {
		guessRes[n] = regexp.MustCompile(fmt.Sprintf(`^[a-zA-Z]{%d}$`, n))
	}
}

// WellFormed reports whether guess is exactly length ASCII letters.
func WellFormed(guess string, length int) bool {
	return guessPattern(length).MatchString(guess)
}

// IsValidGuess reports whether guess is well formed for the list's length
// and appears in the list.
func IsValidGuess(list *WordList, guess string) bool {
	if !WellFormed(guess, list.Length()) {
		return false
	}
	return list.Contains(guess)
}
