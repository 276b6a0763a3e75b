package game

import "fmt"

// Kind identifies one of the daily games.
type Kind string

const (
	Wordle      Kind = "wordle"
	Connections Kind = "connections"
	Strands     Kind = "strands"
)

// Kinds lists every game in flush order.
var Kinds = []Kind{Wordle, Connections, Strands}

// Valid reports whether k names a known game.
func (k Kind) Valid() bool {
	switch k {
	case Wordle, Connections, Strands:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a user-supplied name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown game %q: must be one of %v", s, Kinds)
	}
	return k, nil
}
