package wordle

import (
	"bufio"
	"embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/roach88/dailies/internal/game"
)

//go:embed words/*.txt
var wordFiles embed.FS

// Lengths lists the word lengths with an embedded list. The daily board
// always uses DailyLength; endless rounds may use any of them.
var Lengths = []int{4, 5, 6}

// DailyLength is the word length of the daily board.
const DailyLength = 5

// BaseDate anchors the date-index fallback for the daily word.
var BaseDate = time.Date(2021, time.June, 19, 0, 0, 0, 0, time.UTC)

// WordList is an ordered list of lowercase words of one length.
type WordList struct {
	length int
	words  []string
	index  map[string]struct{}
}

var lists = map[int]*WordList{}

func init() {
	for _, n := range Lengths {
		list, err := loadList(n)
		if err != nil {
			panic(err)
		}
		lists[n] = list
	}
}

func loadList(length int) (*WordList, error) {
	f, err := wordFiles.Open(fmt.Sprintf("words/%d.txt", length))
	if err != nil {
		return nil, fmt.Errorf("open %d-letter list: %w", length, err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" {
			continue
		}
		if !WellFormed(w, length) {
			return nil, fmt.Errorf("%d-letter list: malformed word %q", length, w)
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %d-letter list: %w", length, err)
	}
	return NewWordList(length, words), nil
}

// NewWordList builds a list from words, keeping their order.
func NewWordList(length int, words []string) *WordList {
	l := &WordList{length: length, index: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(w)
		if _, dup := l.index[w]; dup {
			continue
		}
		l.index[w] = struct{}{}
		l.words = append(l.words, w)
	}
	return l
}

// Words returns the embedded list for length.
func Words(length int) (*WordList, error) {
	l, ok := lists[length]
	if !ok {
		return nil, game.InputInvalid(game.Wordle, "no word list for length %d (supported: %v)", length, Lengths)
	}
	return l, nil
}

func (l *WordList) Length() int { return l.length }
func (l *WordList) Len() int    { return len(l.words) }

// At returns the i-th word.
func (l *WordList) At(i int) string { return l.words[i] }

// Contains reports whether w is in the list, ignoring case.
func (l *WordList) Contains(w string) bool {
	_, ok := l.index[strings.ToLower(w)]
	return ok
}

// DailyIndex returns the list index for today: whole calendar days since
// base, wrapped into [0, n).
func DailyIndex(base, today time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	days := int(dayOf(today).Sub(dayOf(base)) / (24 * time.Hour))
	return ((days % n) + n) % n
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailyWord picks the word for a puzzle date from list.
func DailyWord(list *WordList, date string) (string, error) {
	if list.Len() == 0 {
		return "", fmt.Errorf("daily word: empty %d-letter list", list.Length())
	}
	day, err := game.ParseDate(date)
	if err != nil {
		return "", game.InputInvalid(game.Wordle, "daily word: %v", err)
	}
	return list.At(DailyIndex(BaseDate, day, list.Len())), nil
}

// RandomWord picks a word uniformly at random for an endless round.
func RandomWord(list *WordList, r *rand.Rand) string {
	if list.Len() == 0 {
		return ""
	}
	if r == nil {
		return list.At(rand.IntN(list.Len()))
	}
	return list.At(r.IntN(list.Len()))
}
