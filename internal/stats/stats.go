// Package stats derives win rate and outcome distribution from raw
// per-game counters, whether they come from local storage or from the
// Remote Result Service.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/dailies/internal/game"
)

// Distribution bucket ranges per game. Strands has none.
const (
	WordleMinBucket      = 1
	WordleMaxBucket      = 10
	ConnectionsMinBucket = 0
	ConnectionsMaxBucket = 4
)

// Counters are the raw tallies kept for one player and game.
type Counters struct {
	Played    int         `json:"played"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	Buckets   map[int]int `json:"buckets,omitempty"`
}

// Record tallies one terminal result. A win counts toward its detail
// bucket for games that have a distribution.
func (c *Counters) Record(r game.Result) {
	c.Played++
	switch r.Outcome {
	case game.Win:
		c.Completed++
		if lo, hi, ok := bucketRange(r.Kind); ok && r.Detail >= lo && r.Detail <= hi {
			if c.Buckets == nil {
				c.Buckets = make(map[int]int)
			}
			c.Buckets[r.Detail]++
		}
	case game.Loss:
		c.Failed++
	}
}

// Fields flattens the counters into named fields: played, completed,
// failed and in_N for every non-zero bucket.
func (c Counters) Fields() map[string]int {
	f := map[string]int{
		"played":    c.Played,
		"completed": c.Completed,
		"failed":    c.Failed,
	}
	for n, v := range c.Buckets {
		f["in_"+strconv.Itoa(n)] = v
	}
	return f
}

// FromFields is the inverse of Fields. Unknown names are ignored.
func FromFields(f map[string]int) Counters {
	c := Counters{Played: f["played"], Completed: f["completed"], Failed: f["failed"]}
	for name, v := range f {
		rest, ok := strings.CutPrefix(name, "in_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || v == 0 {
			continue
		}
		if c.Buckets == nil {
			c.Buckets = make(map[int]int)
		}
		c.Buckets[n] = v
	}
	return c
}

func bucketRange(kind game.Kind) (lo, hi int, ok bool) {
	switch kind {
	case game.Wordle:
		return WordleMinBucket, WordleMaxBucket, true
	case game.Connections:
		return ConnectionsMinBucket, ConnectionsMaxBucket, true
	}
	return 0, 0, false
}

// Bucket is one distribution entry.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is what the player sees after a game.
type Summary struct {
	Kind         game.Kind `json:"kind"`
	Played       int       `json:"played"`
	Completed    int       `json:"completed"`
	Failed       int       `json:"failed"`
	WinRate      int       `json:"winRate"`
	Distribution []Bucket  `json:"distribution"`
}

// Summarize computes the win rate, rounded to a whole percent and zero
// when nothing has been played, and the full distribution for kind.
func Summarize(kind game.Kind, c Counters) Summary {
	s := Summary{
		Kind:         kind,
		Played:       c.Played,
		Completed:    c.Completed,
		Failed:       c.Failed,
		Distribution: []Bucket{},
	}
	if c.Played > 0 {
		s.WinRate = int(math.Round(float64(c.Completed) / float64(c.Played) * 100))
	}
	if lo, hi, ok := bucketRange(kind); ok {
		for n := lo; n <= hi; n++ {
			s.Distribution = append(s.Distribution, Bucket{
				Key:   fmt.Sprintf("%s_in_%d", kind, n),
				Count: c.Buckets[n],
			})
		}
	}
	return s
}

// Render writes a plain-text report with a bar per bucket.
func (s Summary) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s: played %d, won %d, lost %d, win rate %d%%\n",
		s.Kind, s.Played, s.Completed, s.Failed, s.WinRate); err != nil {
		return err
	}
	peak := 0
	for _, b := range s.Distribution {
		peak = max(peak, b.Count)
	}
	for _, b := range s.Distribution {
		bar := 0
		if peak > 0 {
			bar = int(math.Ceil(float64(b.Count) / float64(peak) * 20))
		}
		line := fmt.Sprintf("  %-16s %3d %s", b.Key, b.Count, strings.Repeat("#", bar))
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}
