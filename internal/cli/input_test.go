package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/wordle"
)

func drain(m *moveReader) []string {
	var out []string
	for {
		move, ok := m.Next()
		if !ok {
			return out
		}
		out = append(out, move)
	}
}

func TestMoveReader(t *testing.T) {
	t.Run("args_win_over_stdin", func(t *testing.T) {
		m := newMoveReader([]string{" crane ", "crate"}, strings.NewReader("ignored\n"))
		assert.Equal(t, []string{"crane", "crate"}, drain(m))
	})

	t.Run("stdin_skips_blank_lines", func(t *testing.T) {
		m := newMoveReader(nil, strings.NewReader("crane\n\n   \ncrate\n"))
		assert.Equal(t, []string{"crane", "crate"}, drain(m))
	})

	t.Run("nothing", func(t *testing.T) {
		assert.Empty(t, drain(newMoveReader(nil, nil)))
	})
}

func TestParsePath(t *testing.T) {
	coords, err := parsePath("0,0 0,1; 1,2")
	require.NoError(t, err)
	assert.Equal(t, []strands.Coord{{R: 0, C: 0}, {R: 0, C: 1}, {R: 1, C: 2}}, coords)

	for _, bad := range []string{"0", "a,1", "1,b", "1;1"} {
		_, err := parsePath(bad)
		assert.True(t, game.IsInputInvalid(err), bad)
	}
}

func TestKeyboardLine(t *testing.T) {
	keys := map[byte]wordle.LetterState{
		'c': wordle.Correct,
		'a': wordle.Present,
		'r': wordle.Correct,
		'z': wordle.Absent,
		'q': wordle.Absent,
	}
	assert.Equal(t, "correct:CR present:A absent:QZ", keyboardLine(keys))
	assert.Empty(t, keyboardLine(nil))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "not a word", reason(game.InputInvalid(game.Wordle, "not a word")))
	assert.Equal(t, "boom", reason(errors.New("boom")))
}
