// Package game holds the vocabulary shared by the three daily puzzles:
// game kinds, puzzle dates, terminal results and the error taxonomy.
//
// Puzzle dates are plain YYYY-MM-DD strings computed in a fixed reference
// time zone (America/New_York), so every player sees the same puzzle for a
// given calendar day regardless of where they are.
package game
