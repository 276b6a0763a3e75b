package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dailies/internal/config"
	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/remote"
	"github.com/roach88/dailies/internal/resultdb"
	"github.com/roach88/dailies/internal/server"
	"github.com/roach88/dailies/internal/syncer"
)

const (
	testSecret = "cli-test-secret-0123456789"
	testDate   = "2024-03-01"
)

func connectionsPayload() string {
	var cats []string
	for i := 0; i < 4; i++ {
		var cards []string
		for j := 0; j < 4; j++ {
			cards = append(cards, fmt.Sprintf(`{"content":"C%d%d","position":%d}`, i, j, i*4+j))
		}
		cats = append(cats, fmt.Sprintf(`{"title":"Group %d","cards":[%s]}`, i, strings.Join(cards, ",")))
	}
	return fmt.Sprintf(`{"status":"OK","print_date":%q,"categories":[%s]}`, testDate, strings.Join(cats, ","))
}

const strandsPayload = `{
	"print_date": "2024-03-01",
	"clue": "Pets",
	"starting_board": ["CATS", "DOGX", "BIRD", "FISH"],
	"themeWords": ["CAT", "DOG"],
	"spangram": "FISH"
}`

// harness runs the result service against a fake upstream feed and points
// the CLI at it through DAILIES_* variables.
type harness struct {
	upstream *httptest.Server
	api      *httptest.Server
	results  *resultdb.DB
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, testDate) {
			http.NotFound(w, r)
			return
		}
		switch {
		case strings.Contains(r.URL.Path, "/wordle/"):
			fmt.Fprintf(w, `{"solution":"crate","print_date":%q}`, testDate)
		case strings.Contains(r.URL.Path, "/connections/"):
			fmt.Fprint(w, connectionsPayload())
		case strings.Contains(r.URL.Path, "/strands/"):
			fmt.Fprint(w, strandsPayload)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	dir := t.TempDir()
	results, err := resultdb.Open(filepath.Join(dir, "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	tokens, err := server.NewTokens(testSecret)
	require.NoError(t, err)
	src, err := remote.NewPuzzleSource([]string{upstream.URL + "/svc/{kind}/v2/{date}.json"})
	require.NoError(t, err)
	api := httptest.NewServer(server.New(results, src, tokens).Handler())
	t.Cleanup(api.Close)

	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvDatabase, filepath.Join(dir, "player", "dailies.db"))
	t.Setenv(config.EnvAPIURL, api.URL)
	t.Setenv(config.EnvJWTSecret, testSecret)
	t.Setenv(config.EnvSessionToken, "")
	t.Setenv(config.EnvPuzzleProxyURL, "")

	return &harness{upstream: upstream, api: api, results: results, dir: dir}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--date", testDate}, args...))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func decodeData[T any](t *testing.T, stdout string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestWordle_SignedOutKeepsResultLocally(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "wordle", "arise", "crane", "crate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Wordle 2024-03-01")
	assert.Contains(t, res.stdout, "CRATE  GGGGG")
	assert.Contains(t, res.stdout, "Solved in 3/6")
	assert.Contains(t, res.stdout, "result saved locally")
	assert.Contains(t, res.stdout, "wordle: played 1, won 1, lost 0, win rate 100%")

	res = h.run(t, "", "status", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[statusView](t, res.stdout)
	assert.Equal(t, "signed_out", view.Auth)
	require.Len(t, view.Pending, 3)
	assert.Equal(t, syncer.Pending{Kind: game.Wordle, Progress: 1, Events: 1}, view.Pending[0])
	assert.Empty(t, view.Problems)
}

func TestWordle_InvalidGuessKeepsRow(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "wordle", "zzzzz", "toolong", "crate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "not in the word list")
	assert.Contains(t, res.stdout, "must be 5 letters")
	assert.Contains(t, res.stdout, "Solved in 1/6")
}

func TestWordle_ResumesSavedBoard(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "arise\ncrane\n", "wordle")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "4 guess(es) left")

	res = h.run(t, "", "wordle", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[wordleView](t, res.stdout)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "arise", view.Rows[0].Guess)
	assert.Equal(t, "crane", view.Rows[1].Guess)
	assert.Empty(t, view.Status)
	assert.Empty(t, view.Solution)

	res = h.run(t, "", "wordle", "--format", "json", "crate")
	require.NoError(t, res.err)
	view = decodeData[wordleView](t, res.stdout)
	assert.Equal(t, game.Win, view.Status)
	assert.Equal(t, "crate", view.Solution)
	assert.Len(t, view.Rows, 3)
}

func TestWordle_Endless(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "wordle", "--endless", "--length", "4", "--seed", "7", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[wordleView](t, res.stdout)
	assert.Empty(t, view.Date)
	assert.Equal(t, 4, view.Length)

	res = h.run(t, "", "wordle", "--endless", "--length", "9")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestWordle_UnknownAuthPersistsNothing(t *testing.T) {
	h := newHarness(t)
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	t.Setenv(config.EnvAPIURL, down.URL)
	t.Setenv(config.EnvSessionToken, "stale")
	t.Setenv(config.EnvPuzzleProxyURL, h.upstream.URL+"/svc/{kind}/v2/{date}.json")

	res := h.run(t, "", "wordle", "arise", "crate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Solved in 2/6")

	t.Setenv(config.EnvSessionToken, "")
	res = h.run(t, "", "status", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[statusView](t, res.stdout)
	for _, p := range view.Pending {
		assert.Zero(t, p.Progress, p.Kind)
		assert.Zero(t, p.Events, p.Kind)
	}
}

func TestLogin_FlushesQueuedState(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "", "wordle", "crane", "crate").err)

	res := h.run(t, "", "login", "--user", "alice")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "synced 2 queued item(s), 0 still pending")
	assert.Contains(t, res.stdout, "signed in as alice")

	c, err := h.results.Counters(context.Background(), "alice", game.Wordle)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Played)
	assert.Equal(t, 1, c.Completed)
	assert.Equal(t, 1, c.Buckets[2])

	snap, ok, err := h.results.Progress(context.Background(), "alice", game.Wordle, testDate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testDate, snap.Day())

	res = h.run(t, "", "status", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[statusView](t, res.stdout)
	assert.Equal(t, "signed_in(alice)", view.Auth)
	for _, p := range view.Pending {
		assert.Zero(t, p.Progress, p.Kind)
		assert.Zero(t, p.Events, p.Kind)
	}

	res = h.run(t, "", "stats", "wordle", "--format", "json")
	require.NoError(t, res.err)
	summaries := decodeData[[]map[string]any](t, res.stdout)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 1, summaries[0]["played"])
}

func TestLogin_RejectedToken(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "login", "--token", "forged")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.ErrorIs(t, res.err, syncer.ErrSignedOut)

	res = h.run(t, "", "status", "--format", "json")
	require.NoError(t, res.err)
	assert.Equal(t, "signed_out", decodeData[statusView](t, res.stdout).Auth)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "", "login", "--user", "bob").err)
	res := h.run(t, "", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "signed out")

	res = h.run(t, "", "status", "--format", "json")
	require.NoError(t, res.err)
	assert.Equal(t, "signed_out", decodeData[statusView](t, res.stdout).Auth)
}

func TestSync(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "sync")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, syncer.ErrSignedOut)

	require.NoError(t, h.run(t, "", "login", "--user", "carol").err)
	res = h.run(t, "", "sync", "--format", "json")
	require.NoError(t, res.err)
	report := decodeData[syncer.Report](t, res.stdout)
	require.Len(t, report.Kinds, 3)
	flushed, remaining := report.Totals()
	assert.Zero(t, flushed)
	assert.Zero(t, remaining)
}

func TestConnections_PlaysToWin(t *testing.T) {
	h := newHarness(t)

	moves := "c00,c01,c02,c10\nshuffle\nC00,C01,C02,C03\nC10,C11,C12,C13\nC20,C21,C22,C23\nC30,C31,C32,C33\n"
	res := h.run(t, moves, "connections", "--format", "json")
	require.NoError(t, res.err)
	view := decodeData[connectionsView](t, res.stdout)
	assert.Equal(t, game.Win, view.Status)
	assert.Equal(t, 3, view.MistakesLeft)
	require.Len(t, view.Moves, 5)
	assert.False(t, view.Moves[0].Match)
	require.Len(t, view.Board.Solved, 4)
	assert.Equal(t, "Group 0", view.Board.Solved[0].Title)
	assert.Empty(t, view.Board.Remaining)
}

func TestConnections_BadMoves(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "connections", "C00,C01", "C00,C00,C01,C02", "NOPE,C01,C02,C03", "C00,C01,C02,C03")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "a group is 4 comma-separated cards, got 2")
	assert.Contains(t, res.stdout, "a group needs 4 different cards")
	assert.Contains(t, res.stdout, `unknown card "NOPE"`)
	assert.Contains(t, res.stdout, "== Group 0: C00, C01, C02, C03")
	assert.Contains(t, res.stdout, "4 mistake(s) left")
}

func TestStrands_SignedInWin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(t, "", "login", "--user", "dana").err)

	res := h.run(t, "", "strands", "0,0 0,1 0,2", "0,0 0,1 0,2", "1,0 1,1 1,2", "3,0 3,1 3,2 3,3")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Strands 2024-03-01: Pets")
	assert.Contains(t, res.stdout, "CAT is a theme word")
	assert.Contains(t, res.stdout, "CAT already found")
	assert.Contains(t, res.stdout, "FISH is the spangram!")
	assert.Contains(t, res.stdout, "Solved!")

	c, err := h.results.Counters(context.Background(), "dana", game.Strands)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Completed)
}

func TestStrands_BadPathAndGiveUp(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "0,0 2,2\n0;0\nbird\ngiveup\n", "strands", "--format", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "not adjacent")
	assert.Contains(t, res.stderr, "must be row,col")
	view := decodeData[strandsView](t, res.stdout)
	assert.Equal(t, game.Loss, view.Status)
	assert.Empty(t, view.ThemeWords)

	res = h.run(t, "", "stats", "strands", "--format", "json")
	require.NoError(t, res.err)
	summaries := decodeData[[]map[string]any](t, res.stdout)
	assert.EqualValues(t, 1, summaries[0]["failed"])
}

func TestPuzzle_StrandsHidesAnswers(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, "", "puzzle", "strands", "--format", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"clue":"Pets"`)
	assert.NotContains(t, res.stdout, `"CAT"`)

	res = h.run(t, "", "puzzle", "connections")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"title": "Group 3"`)
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing_puzzle", []string{"--date", "2024-03-02", "connections"}, ExitFailure},
		{"bad_date", []string{"--date", "03/01/2024", "strands"}, ExitCommandError},
		{"bad_game", []string{"stats", "sudoku"}, ExitCommandError},
		{"bad_puzzle_game", []string{"puzzle", "sudoku"}, ExitCommandError},
		{"login_needs_flag", []string{"login"}, ExitCommandError},
		{"login_both_flags", []string{"login", "--user", "x", "--token", "y"}, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.run(t, "", tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, tt.code, GetExitCode(res.err))
		})
	}
}
