package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/roach88/dailies/internal/game"
)

// moveReader yields player moves from positional arguments, or one per
// line from in when there are none. Blank lines are skipped.
type moveReader struct {
	args    []string
	scanner *bufio.Scanner
}

func newMoveReader(args []string, in io.Reader) *moveReader {
	m := &moveReader{args: args}
	if len(args) == 0 && in != nil {
		m.scanner = bufio.NewScanner(in)
	}
	return m
}

// Next returns the next move, or false when input is exhausted.
func (m *moveReader) Next() (string, bool) {
	if m.scanner == nil {
		if len(m.args) == 0 {
			return "", false
		}
		next := m.args[0]
		m.args = m.args[1:]
		return strings.TrimSpace(next), true
	}
	for m.scanner.Scan() {
		if line := strings.TrimSpace(m.scanner.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

// reason is the player-facing part of a game error.
func reason(err error) string {
	var ge *game.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}

// puzzleError maps a puzzle fetch failure to an exit error.
func puzzleError(kind game.Kind, date string, err error) error {
	if game.IsInputInvalid(err) {
		return WrapExitError(ExitCommandError, "invalid puzzle request", err)
	}
	return WrapExitError(ExitFailure, "no "+string(kind)+" puzzle for "+date, err)
}
