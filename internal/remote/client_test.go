package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/syncer"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	cookie string
	body   []byte
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, header: r.Header.Clone(), body: body}
		if c, err := r.Cookie(SessionCookie); err == nil {
			rec.cookie = c.Value
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(url, append([]Option{WithSessionToken("tok")}, opts...)...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
	_, err = NewClient("://")
	assert.Error(t, err)
}

func TestClient_RecordResultSendsIdempotencyKey(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	c := newTestClient(t, srv.URL)

	e := progress.NewEvent("evt-1", game.Result{Kind: game.Wordle, Date: "2024-03-01", Outcome: game.Win, Detail: 3}, time.Now())
	require.NoError(t, c.RecordResult(context.Background(), e))

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/wordle/win", got.path)
	assert.Equal(t, "evt-1", got.header.Get(IdempotencyHeader))
	assert.Equal(t, "tok", got.cookie)
	assert.JSONEq(t, `{"date":"2024-03-01","guessCount":3}`, string(got.body))
}

func TestClient_RecordResultBodies(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	results := []game.Result{
		{Kind: game.Connections, Date: "2024-03-01", Outcome: game.Win, Detail: 0},
		{Kind: game.Strands, Date: "2024-03-01", Outcome: game.Loss},
		{Kind: game.Wordle, Outcome: game.Loss},
	}
	for _, r := range results {
		require.NoError(t, c.RecordResult(ctx, progress.NewEvent("id", r, time.Now())))
	}

	require.Len(t, *calls, 3)
	assert.Equal(t, "/api/connections/win", (*calls)[0].path)
	assert.JSONEq(t, `{"date":"2024-03-01","mistakesUsed":0}`, string((*calls)[0].body))
	assert.Equal(t, "/api/strands/loss", (*calls)[1].path)
	assert.JSONEq(t, `{"date":"2024-03-01"}`, string((*calls)[1].body))
	assert.Equal(t, "/api/wordle/loss", (*calls)[2].path)
	assert.JSONEq(t, `{}`, string((*calls)[2].body))
}

func TestClient_Non2xxIsUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "down"})
	})
	c := newTestClient(t, srv.URL)

	err := c.SaveProgress(context.Background(), progress.Wordle{Date: "2024-03-01", Guesses: []string{}, Cols: 5})
	require.Error(t, err)
	assert.Equal(t, game.ErrCodeUpstreamUnavailable, game.CodeOf(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "down", se.Message)
}

func TestClient_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Stats(context.Background(), game.Wordle)
	assert.True(t, game.IsUpstream(err))
}

func TestClient_LoadProgress(t *testing.T) {
	stored := progress.Connections{Date: "2024-03-01", MistakesLeft: 2, SolvedCategoryIndexes: []int{1, 3}, UpdatedAt: 9}
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2024-03-01" {
			writeJSON(w, http.StatusOK, map[string]any{"progress": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"progress": stored})
	})
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	snap, ok, err := c.LoadProgress(ctx, game.Connections, "2024-03-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, snap)
	assert.Equal(t, "/api/connections/progress", (*calls)[0].path)
	assert.Equal(t, "date=2024-03-01", (*calls)[0].query)

	_, ok, err = c.LoadProgress(ctx, game.Connections, "2024-03-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_LoadProgressMalformed(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"progress": map[string]any{"date": "2024-03-01", "mistakesLeft": 9}})
	})
	c := newTestClient(t, srv.URL)

	_, _, err := c.LoadProgress(context.Background(), game.Connections, "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestClient_Stats(t *testing.T) {
	want := stats.Summarize(game.Wordle, stats.Counters{Played: 2, Completed: 1, Failed: 1, Buckets: map[int]int{3: 1}})
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, want)
	})
	c := newTestClient(t, srv.URL)

	got, err := c.Stats(context.Background(), game.Wordle)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClient_Classify(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, strands.Classification{Kind: strands.Theme, Word: "CAT"})
	})
	c := newTestClient(t, srv.URL)

	got, err := c.Classify(context.Background(), "2024-03-01", "CAT")
	require.NoError(t, err)
	assert.Equal(t, strands.Classification{Kind: strands.Theme, Word: "CAT"}, got)
	assert.Equal(t, "/api/strands/submit", (*calls)[0].path)
	assert.JSONEq(t, `{"date":"2024-03-01","word":"CAT"}`, string((*calls)[0].body))
}

func TestClient_ClassifyUnknownVerdict(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"kind": "bonus", "word": "CAT"})
	})
	c := newTestClient(t, srv.URL)

	_, err := c.Classify(context.Background(), "2024-03-01", "CAT")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestClient_Me(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		want    syncer.Auth
		wantErr bool
	}{
		{name: "signed in", status: http.StatusOK, body: MeResponse{User: &User{ID: "u1"}}, want: syncer.SignedIn("u1")},
		{name: "no user", status: http.StatusOK, body: MeResponse{}, want: syncer.SignedOut()},
		{name: "unauthorized", status: http.StatusUnauthorized, body: ErrorResponse{Error: "no session"}, want: syncer.SignedOut()},
		{name: "server error", status: http.StatusInternalServerError, body: ErrorResponse{Error: "boom"}, want: syncer.Unknown(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			c := newTestClient(t, srv.URL)

			got, err := c.Me(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_MeWithoutTokenIsSignedOut(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	got, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syncer.SignedOut(), got)
}

func TestResultRequest_RoundTrip(t *testing.T) {
	results := []game.Result{
		{Kind: game.Wordle, Date: "2024-03-01", Outcome: game.Win, Detail: 6},
		{Kind: game.Connections, Date: "2024-03-01", Outcome: game.Win, Detail: 0},
		{Kind: game.Strands, Date: "2024-03-01", Outcome: game.Win},
		{Kind: game.Connections, Date: "2024-03-01", Outcome: game.Loss},
	}
	for _, r := range results {
		got, err := NewResultRequest(r).Result(r.Kind, r.Outcome)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ResultRequest{Date: "2024-03-01"}.Result(game.Wordle, game.Win)
	assert.Error(t, err, "wordle win needs a guess count")

	eleven := 11
	_, err = ResultRequest{Date: "2024-03-01", GuessCount: &eleven}.Result(game.Wordle, game.Win)
	assert.Error(t, err)
}
