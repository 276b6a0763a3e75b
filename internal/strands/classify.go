package strands

import (
	"context"
	"fmt"

	"github.com/roach88/dailies/internal/progress"
)

// Verdict is how a traced word was classified.
type Verdict string

const (
	Theme    Verdict = Verdict(progress.PathTheme)
	Spangram Verdict = Verdict(progress.PathSpangram)
	Other    Verdict = "other"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == Theme || v == Spangram || v == Other
}

// Classification is the word checker's answer for one word.
type Classification struct {
	Kind Verdict `json:"kind"`
	Word string  `json:"word"`
}

// Classifier decides whether a word is a theme word, the spangram, or
// neither for the puzzle of date.
type Classifier interface {
	Classify(ctx context.Context, date, word string) (Classification, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, date, word string) (Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, date, word string) (Classification, error) {
	return f(ctx, date, word)
}

// Answers is the solution for one puzzle.
type Answers struct {
	ThemeWords []string `json:"themeWords"`
	Spangram   string   `json:"spangram"`
}

// Classify checks word against the answers, ignoring case and padding.
func (a Answers) Classify(word string) Classification {
	w, ok := progress.NormalizeWord(word)
	if !ok {
		return Classification{Kind: Other, Word: word}
	}
	if s, ok := progress.NormalizeWord(a.Spangram); ok && s == w {
		return Classification{Kind: Spangram, Word: w}
	}
	for _, t := range a.ThemeWords {
		if n, ok := progress.NormalizeWord(t); ok && n == w {
			return Classification{Kind: Theme, Word: w}
		}
	}
	return Classification{Kind: Other, Word: w}
}

// AnswerKey classifies words offline from known answers, keyed by date.
type AnswerKey map[string]Answers

func (k AnswerKey) Classify(_ context.Context, date, word string) (Classification, error) {
	a, ok := k[date]
	if !ok {
		return Classification{}, fmt.Errorf("no answers for %s", date)
	}
	return a.Classify(word), nil
}
