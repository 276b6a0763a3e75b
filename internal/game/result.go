package game

import "sync/atomic"

// Outcome is the terminal state of a finished puzzle.
type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
)

// Result is a terminal outcome ready to be recorded.
//
// Detail carries the game-specific figure that feeds the distribution:
// the guess count for a Wordle win, mistakes used for a Connections win,
// zero otherwise. Date is empty for endless Wordle rounds.
type Result struct {
	Kind    Kind
	Date    string
	Outcome Outcome
	Detail  int
}

// Guard is a one-shot latch. The first Fire returns true, every later
// call returns false. Sessions use it so a terminal result is handed out
// once per puzzle instance.
type Guard struct {
	fired atomic.Bool
}

// Fire trips the guard and reports whether this call was the first.
func (g *Guard) Fire() bool {
	return g.fired.CompareAndSwap(false, true)
}

// Fired reports whether the guard has been tripped.
func (g *Guard) Fired() bool {
	return g.fired.Load()
}
