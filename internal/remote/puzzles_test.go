package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dailies/internal/connections"
	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/wordle"
)

func connectionsJSON(categories int) string {
	var cats []string
	for i := 0; i < categories; i++ {
		var cards []string
		for j := 0; j < 4; j++ {
			cards = append(cards, fmt.Sprintf(`{"content":"C%d%d","position":%d,"image_url":null}`, i, j, i*4+j))
		}
		cats = append(cats, fmt.Sprintf(`{"title":"  Group   %d ","cards":[%s]}`, i, strings.Join(cards, ",")))
	}
	return fmt.Sprintf(`{"status":"OK","id":1,"print_date":"2024-03-01","editor":"someone","categories":[%s]}`, strings.Join(cats, ","))
}

const strandsSnake = `{
	"print_date": "2024-03-01",
	"clue": "Pets",
	"starting_board": ["CATS", "DOGX", "BIRD", "FISH"],
	"themeWords": ["CAT", "DOG"],
	"spangram": "FISH"
}`

// puzzleServer serves body for every request and counts hits.
func puzzleServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newSource(t *testing.T, endpoints ...string) *PuzzleSource {
	t.Helper()
	src, err := NewPuzzleSource(endpoints)
	require.NoError(t, err)
	return src
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://x/svc/strands/v2/2024-03-01.json", Endpoint("https://x/svc/{kind}/v2/{date}.json", game.Strands, "2024-03-01"))
	assert.Equal(t, "http://api/api/{kind}/{date}", ServiceEndpoint("http://api/"))
}

func TestPuzzleSource_Connections(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, connectionsJSON(4))
	src := newSource(t, srv.URL+"/{kind}/{date}")

	p, err := src.Connections(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.NoError(t, connections.Validate(p))
	assert.Equal(t, "Group 0", p.Categories[0].Title)
	assert.Equal(t, "C33", p.Categories[3].Cards[3].Content)
}

func TestPuzzleSource_RejectsWrongShape(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, connectionsJSON(3))
	src := newSource(t, srv.URL+"/{kind}/{date}")

	_, err := src.Connections(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestPuzzleSource_RejectsDuplicateCards(t *testing.T) {
	body := strings.Replace(connectionsJSON(4), `"C01"`, `"C00"`, 1)
	srv, _ := puzzleServer(t, http.StatusOK, body)
	src := newSource(t, srv.URL+"/{kind}/{date}")

	_, err := src.Connections(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestPuzzleSource_FallsThroughEndpoints(t *testing.T) {
	down, downHits := puzzleServer(t, http.StatusBadGateway, "")
	bad, badHits := puzzleServer(t, http.StatusOK, `{"categories":[]}`)
	good, goodHits := puzzleServer(t, http.StatusOK, connectionsJSON(4))
	src := newSource(t, down.URL+"/{date}", bad.URL+"/{date}", good.URL+"/{date}")

	_, err := src.Connections(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, int32(1), downHits.Load())
	assert.Equal(t, int32(1), badHits.Load())
	assert.Equal(t, int32(1), goodHits.Load())
}

func TestPuzzleSource_CachesAndSharesFetches(t *testing.T) {
	srv, hits := puzzleServer(t, http.StatusOK, connectionsJSON(4))
	src := newSource(t, srv.URL+"/{kind}/{date}")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Connections(ctx, "2024-03-01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err := src.Connections(ctx, "2024-03-01")
	require.NoError(t, err)

	assert.LessOrEqual(t, hits.Load(), int32(8))
	before := hits.Load()
	_, err = src.Connections(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "cached definitions are not refetched")
}

func TestPuzzleSource_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		_, _ = w.Write([]byte(connectionsJSON(4)))
	}))
	t.Cleanup(srv.Close)
	src := newSource(t, srv.URL+"/{kind}/{date}")

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := src.Connections(first, "2024-03-01")
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := src.Connections(context.Background(), "2024-03-01")
		secondErr <- err
	}()

	cancel()
	err := <-firstErr
	require.Error(t, err)
	assert.True(t, game.IsUpstream(err))

	close(release)
	require.NoError(t, <-secondErr)
}

func TestPuzzleSource_AllEndpointsDown(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusInternalServerError, "")
	src := newSource(t, srv.URL+"/{date}")

	_, err := src.Connections(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamUnavailable, game.CodeOf(err))

	_, err = newSource(t).Strands(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamUnavailable, game.CodeOf(err))
}

func TestPuzzleSource_InvalidDate(t *testing.T) {
	src := newSource(t)
	_, err := src.Connections(context.Background(), "03/01/2024")
	assert.True(t, game.IsInputInvalid(err))
}

func TestPuzzleSource_StrandsNormalizesFieldNames(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, strandsSnake)
	src := newSource(t, srv.URL+"/{date}")
	ctx := context.Background()

	p, err := src.Strands(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, strands.Puzzle{
		PrintDate:      "2024-03-01",
		Clue:           "Pets",
		StartingBoard:  []string{"CATS", "DOGX", "BIRD", "FISH"},
		Rows:           4,
		Cols:           4,
		ThemeWordCount: 2,
	}, p)

	answers, err := src.StrandsAnswers(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, strands.Theme, answers.Classify("dog").Kind)
	assert.Equal(t, strands.Spangram, answers.Classify("fish").Kind)
}

func TestPuzzleSource_StrandsWithoutAnswers(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, `{"printDate":"2024-03-01","clue":"x","startingBoard":["AB","CD"],"themeWordCount":1}`)
	src := newSource(t, srv.URL+"/{date}")

	p, err := src.Strands(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ThemeWordCount)

	_, err = src.StrandsAnswers(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestPuzzleSource_StrandsRaggedBoard(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, `{"clue":"x","startingBoard":["ABC","DE"],"themeWordCount":1}`)
	src := newSource(t, srv.URL+"/{date}")

	_, err := src.Strands(context.Background(), "2024-03-01")
	assert.Equal(t, game.ErrCodeUpstreamMalformed, game.CodeOf(err))
}

func TestPuzzleSource_WordleFromFeed(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, `{"id":7,"solution":"CRATE","print_date":"2024-03-01","days_since_launch":1000}`)
	src := newSource(t, srv.URL+"/{date}")

	word, err := src.Wordle(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "crate", word)
}

func TestPuzzleSource_WordleFallsBackToDateIndex(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusServiceUnavailable, "")
	src := newSource(t, srv.URL+"/{date}")

	word, err := src.Wordle(context.Background(), "2024-03-01")
	require.NoError(t, err)

	list, err := wordle.Words(wordle.DailyLength)
	require.NoError(t, err)
	want, err := wordle.DailyWord(list, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, want, word)
}

func TestPuzzleSource_WordleWrongLengthFallsBack(t *testing.T) {
	srv, _ := puzzleServer(t, http.StatusOK, `{"solution":"cart"}`)
	src := newSource(t, srv.URL+"/{date}")

	word, err := src.Wordle(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.Len(t, word, wordle.DailyLength)
}
