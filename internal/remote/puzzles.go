package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/dailies/internal/connections"
	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/strands"
	"github.com/roach88/dailies/internal/wordle"
)

// DefaultUpstream is the public daily puzzle feed.
const DefaultUpstream = "https://www.nytimes.com/svc/{kind}/v2/{date}.json"

// Endpoint expands the {kind} and {date} placeholders of tmpl.
func Endpoint(tmpl string, kind game.Kind, date string) string {
	return strings.NewReplacer("{kind}", string(kind), "{date}", date).Replace(tmpl)
}

// ServiceEndpoint is the puzzle proxy template of the Result Service at base.
func ServiceEndpoint(base string) string {
	return strings.TrimRight(base, "/") + "/api/{kind}/{date}"
}

// PuzzleSource fetches and validates puzzle definitions. Definitions are
// immutable per date, so a validated payload is cached for the life of
// the source and concurrent fetches of the same puzzle share one request.
type PuzzleSource struct {
	endpoints []string
	opts      options
	schema    *schema

	mu    sync.Mutex
	cache map[string][]byte
	group singleflight.Group
}

// NewPuzzleSource returns a source that tries endpoints in order. Each
// endpoint is a URL template; see Endpoint.
func NewPuzzleSource(endpoints []string, opts ...Option) (*PuzzleSource, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	var eps []string
	for _, e := range endpoints {
		if e = strings.TrimSpace(e); e != "" {
			eps = append(eps, e)
		}
	}
	return &PuzzleSource{
		endpoints: eps,
		opts:      buildOptions(opts),
		schema:    s,
		cache:     make(map[string][]byte),
	}, nil
}

// Wordle returns the daily solution for date. When no endpoint yields a
// valid payload the word is picked from the embedded list by date index.
func (p *PuzzleSource) Wordle(ctx context.Context, date string) (string, error) {
	data, err := p.fetch(ctx, game.Wordle, date)
	if err == nil {
		var w wordlePayload
		if err := json.Unmarshal(data, &w); err == nil && len(w.Solution) == wordle.DailyLength {
			return strings.ToLower(w.Solution), nil
		}
		err = game.Malformed(game.Wordle, "solution is not a daily-length word", nil)
	}
	if !game.IsUpstream(err) {
		return "", err
	}
	list, lerr := wordle.Words(wordle.DailyLength)
	if lerr != nil {
		return "", lerr
	}
	word, werr := wordle.DailyWord(list, date)
	if werr != nil {
		return "", werr
	}
	p.opts.logger.Warn("daily word source unavailable, using date index", "date", date, "error", err)
	return word, nil
}

// Connections returns the validated Connections puzzle for date.
func (p *PuzzleSource) Connections(ctx context.Context, date string) (connections.Puzzle, error) {
	data, err := p.fetch(ctx, game.Connections, date)
	if err != nil {
		return connections.Puzzle{}, err
	}
	var puzzle connections.Puzzle
	if err := json.Unmarshal(data, &puzzle); err != nil {
		return connections.Puzzle{}, game.Malformed(game.Connections, "decode puzzle", err)
	}
	for i := range puzzle.Categories {
		puzzle.Categories[i].Title = connections.NormalizeTitle(puzzle.Categories[i].Title)
	}
	return puzzle, nil
}

// Strands returns the Strands board for date without its answers.
func (p *PuzzleSource) Strands(ctx context.Context, date string) (strands.Puzzle, error) {
	sp, err := p.strands(ctx, date)
	if err != nil {
		return strands.Puzzle{}, err
	}
	return sp.Puzzle, nil
}

// StrandsAnswers returns the answer key for date when the payload carries
// one.
func (p *PuzzleSource) StrandsAnswers(ctx context.Context, date string) (strands.Answers, error) {
	sp, err := p.strands(ctx, date)
	if err != nil {
		return strands.Answers{}, err
	}
	if sp.Answers.Spangram == "" && len(sp.Answers.ThemeWords) == 0 {
		return strands.Answers{}, game.Malformed(game.Strands, "payload carries no answers", nil)
	}
	return sp.Answers, nil
}

func (p *PuzzleSource) strands(ctx context.Context, date string) (strandsPayload, error) {
	data, err := p.fetch(ctx, game.Strands, date)
	if err != nil {
		return strandsPayload{}, err
	}
	var sp strandsPayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return strandsPayload{}, game.Malformed(game.Strands, "decode puzzle", err)
	}
	return sp, nil
}

// Raw returns the validated, normalized payload for kind and date.
func (p *PuzzleSource) Raw(ctx context.Context, kind game.Kind, date string) ([]byte, error) {
	return p.fetch(ctx, kind, date)
}

func (p *PuzzleSource) fetch(ctx context.Context, kind game.Kind, date string) ([]byte, error) {
	if !kind.Valid() {
		return nil, game.InputInvalid(kind, "unknown game %q", kind)
	}
	if !game.ValidDate(date) {
		return nil, game.InputInvalid(kind, "invalid date %q", date)
	}
	key := string(kind) + "/" + date

	p.mu.Lock()
	if data, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return data, nil
	}
	p.mu.Unlock()

	// The shared fetch outlives any one caller; each waiter still stops on
	// its own ctx.
	ch := p.group.DoChan(key, func() (any, error) {
		data, err := p.fetchUncached(context.WithoutCancel(ctx), kind, date)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[key] = data
		p.mu.Unlock()
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, game.Unavailable(kind, "fetch puzzle", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// fetchUncached tries every endpoint and returns the first payload that
// passes validation. The last failure is returned when none does.
func (p *PuzzleSource) fetchUncached(ctx context.Context, kind game.Kind, date string) ([]byte, error) {
	if len(p.endpoints) == 0 {
		return nil, game.Unavailable(kind, "no puzzle source configured", nil)
	}
	var lastErr error
	for _, tmpl := range p.endpoints {
		url := Endpoint(tmpl, kind, date)
		data, err := p.get(ctx, kind, url)
		if err == nil {
			data, err = p.normalize(kind, data)
		}
		if err != nil {
			p.opts.logger.Debug("puzzle endpoint failed", "kind", kind, "date", date, "url", url, "error", err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

func (p *PuzzleSource) get(ctx context.Context, kind game.Kind, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, game.Unavailable(kind, "build puzzle request", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.opts.httpClient.Do(req)
	if err != nil {
		return nil, game.Unavailable(kind, "fetch puzzle", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, game.Unavailable(kind, "fetch puzzle", &StatusError{Code: resp.StatusCode})
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, game.Unavailable(kind, "read puzzle", err)
	}
	return data, nil
}

// normalize validates data for kind and returns the canonical encoding.
func (p *PuzzleSource) normalize(kind game.Kind, data []byte) ([]byte, error) {
	if kind == game.Strands {
		sp, err := decodeStrands(data)
		if err != nil {
			return nil, game.Malformed(kind, "decode puzzle", err)
		}
		if data, err = json.Marshal(sp); err != nil {
			return nil, fmt.Errorf("encode strands: %w", err)
		}
	}
	if err := p.schema.validate(kind, data); err != nil {
		return nil, game.Malformed(kind, "validate puzzle", err)
	}
	if kind == game.Connections {
		var puzzle connections.Puzzle
		if err := json.Unmarshal(data, &puzzle); err != nil {
			return nil, game.Malformed(kind, "decode puzzle", err)
		}
		if err := connections.Validate(puzzle); err != nil {
			return nil, game.Malformed(kind, "validate puzzle", err)
		}
	}
	if kind == game.Strands {
		var sp strandsPayload
		if err := json.Unmarshal(data, &sp); err != nil {
			return nil, game.Malformed(kind, "decode puzzle", err)
		}
		if err := sp.Puzzle.Validate(); err != nil {
			return nil, game.Malformed(kind, "validate puzzle", err)
		}
	}
	return data, nil
}

type wordlePayload struct {
	Solution  string `json:"solution"`
	PrintDate string `json:"print_date,omitempty"`
}

// strandsPayload is a board plus its answers, in canonical field names.
type strandsPayload struct {
	strands.Puzzle
	Answers strands.Answers `json:"-"`
}

func (sp strandsPayload) MarshalJSON() ([]byte, error) {
	type wire struct {
		strands.Puzzle
		ThemeWords []string `json:"themeWords,omitempty"`
		Spangram   string   `json:"spangram,omitempty"`
	}
	return json.Marshal(wire{Puzzle: sp.Puzzle, ThemeWords: sp.Answers.ThemeWords, Spangram: sp.Answers.Spangram})
}

func (sp *strandsPayload) UnmarshalJSON(data []byte) error {
	type wire struct {
		strands.Puzzle
		ThemeWords []string `json:"themeWords"`
		Spangram   string   `json:"spangram"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sp.Puzzle = w.Puzzle
	sp.Answers = strands.Answers{ThemeWords: w.ThemeWords, Spangram: w.Spangram}
	return nil
}

// decodeStrands accepts both camelCase and snake_case upstream field
// names and fills in the board size and theme word count when absent.
func decodeStrands(data []byte) (strandsPayload, error) {
	var raw struct {
		Status          string   `json:"status"`
		ID              int      `json:"id"`
		PrintDate       string   `json:"printDate"`
		PrintDateSnake  string   `json:"print_date"`
		Clue            string   `json:"clue"`
		StartingBoard   []string `json:"startingBoard"`
		StartingSnake   []string `json:"starting_board"`
		ThemeWordCount  *int     `json:"themeWordCount"`
		ThemeCountSnake *int     `json:"theme_word_count"`
		ThemeWords      []string `json:"themeWords"`
		Spangram        string   `json:"spangram"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return strandsPayload{}, err
	}

	sp := strandsPayload{
		Puzzle: strands.Puzzle{
			Status:        raw.Status,
			ID:            raw.ID,
			PrintDate:     raw.PrintDate,
			Clue:          raw.Clue,
			StartingBoard: raw.StartingBoard,
		},
		Answers: strands.Answers{ThemeWords: raw.ThemeWords, Spangram: raw.Spangram},
	}
	if sp.PrintDate == "" {
		sp.PrintDate = raw.PrintDateSnake
	}
	if len(sp.StartingBoard) == 0 {
		sp.StartingBoard = raw.StartingSnake
	}
	switch {
	case raw.ThemeWordCount != nil:
		sp.ThemeWordCount = *raw.ThemeWordCount
	case raw.ThemeCountSnake != nil:
		sp.ThemeWordCount = *raw.ThemeCountSnake
	default:
		sp.ThemeWordCount = len(raw.ThemeWords)
	}
	sp.Rows = len(sp.StartingBoard)
	if sp.Rows > 0 {
		sp.Cols = len(sp.StartingBoard[0])
	}
	return sp, nil
}
