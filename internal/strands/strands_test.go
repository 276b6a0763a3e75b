package strands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

const testDate = "2024-03-01"

func testPuzzle() Puzzle {
	return Puzzle{
		Status:         "OK",
		ID:             7,
		PrintDate:      testDate,
		Clue:           "Animal house",
		StartingBoard:  []string{"CATS", "DOGX", "BIRD", "FISH"},
		Rows:           4,
		Cols:           4,
		ThemeWordCount: 2,
	}
}

var testAnswers = Answers{ThemeWords: []string{"cat", "dog"}, Spangram: "fish"}

var (
	catPath  = []Coord{{R: 0, C: 0}, {R: 0, C: 1}, {R: 0, C: 2}}
	dogPath  = []Coord{{R: 1, C: 0}, {R: 1, C: 1}, {R: 1, C: 2}}
	fishPath = []Coord{{R: 3, C: 0}, {R: 3, C: 1}, {R: 3, C: 2}, {R: 3, C: 3}}
	birdPath = []Coord{{R: 2, C: 0}, {R: 2, C: 1}, {R: 2, C: 2}, {R: 2, C: 3}}
)

// countingClassifier wraps the test answers and counts calls.
type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Classify(_ context.Context, _, word string) (Classification, error) {
	c.calls++
	if c.err != nil {
		return Classification{}, c.err
	}
	return testAnswers.Classify(word), nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testPuzzle(), testDate)
	require.NoError(t, err)
	return s
}

func TestIsAdjacent(t *testing.T) {
	center := Coord{R: 2, C: 2}
	for dr := -2; dr <= 2; dr++ {
		for dc := -2; dc <= 2; dc++ {
			other := Coord{R: 2 + dr, C: 2 + dc}
			want := abs(dr) <= 1 && abs(dc) <= 1 && (dr != 0 || dc != 0)
			assert.Equal(t, want, IsAdjacent(center, other), "%v", other)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		coords  []Coord
		wantErr bool
	}{
		{"horizontal", catPath, false},
		{"diagonal", []Coord{{R: 0, C: 0}, {R: 1, C: 1}, {R: 2, C: 2}, {R: 3, C: 3}}, false},
		{"zigzag", []Coord{{R: 0, C: 0}, {R: 1, C: 0}, {R: 0, C: 1}}, false},
		{"empty", nil, true},
		{"single cell", []Coord{{R: 0, C: 0}}, true},
		{"gap", []Coord{{R: 0, C: 0}, {R: 0, C: 2}}, true},
		{"repeated cell", []Coord{{R: 0, C: 0}, {R: 0, C: 1}, {R: 0, C: 0}}, true},
		{"off board", []Coord{{R: 3, C: 3}, {R: 4, C: 4}}, true},
		{"negative", []Coord{{R: 0, C: 0}, {R: -1, C: 0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.coords, 4, 4)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, game.IsInputInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWordFor(t *testing.T) {
	w, err := WordFor([]string{"cats", "dogx"}, []Coord{{R: 1, C: 0}, {R: 1, C: 1}, {R: 1, C: 2}})
	require.NoError(t, err)
	assert.Equal(t, "DOG", w)

	_, err = WordFor([]string{"cats"}, []Coord{{R: 0, C: 0}, {R: 1, C: 0}})
	assert.True(t, game.IsInputInvalid(err))
}

func TestPuzzleValidate(t *testing.T) {
	require.NoError(t, testPuzzle().Validate())

	p := testPuzzle()
	p.StartingBoard = []string{"CATS", "DOG", "BIRD", "FISH"}
	assert.Error(t, p.Validate(), "ragged")

	p = testPuzzle()
	p.Rows = 5
	assert.Error(t, p.Validate(), "rows mismatch")

	p = testPuzzle()
	p.StartingBoard[1] = "DO G"
	assert.Error(t, p.Validate(), "non-letter")

	p = testPuzzle()
	p.StartingBoard = nil
	p.Rows = 0
	assert.Error(t, p.Validate(), "empty")
}

func TestAnswersClassify(t *testing.T) {
	assert.Equal(t, Classification{Kind: Theme, Word: "CAT"}, testAnswers.Classify(" cat"))
	assert.Equal(t, Classification{Kind: Spangram, Word: "FISH"}, testAnswers.Classify("FISH"))
	assert.Equal(t, Classification{Kind: Other, Word: "BIRD"}, testAnswers.Classify("bird"))

	key := AnswerKey{testDate: testAnswers}
	c, err := key.Classify(context.Background(), testDate, "DOG")
	require.NoError(t, err)
	assert.Equal(t, Theme, c.Kind)

	_, err = key.Classify(context.Background(), "2024-03-02", "DOG")
	assert.Error(t, err)
}

func TestSubmitPath_SamePathTwiceRecordsOnce(t *testing.T) {
	s := newTestSession(t)
	cl := &countingClassifier{}

	res, err := s.SubmitPath(context.Background(), catPath, cl)
	require.NoError(t, err)
	assert.Equal(t, Theme, res.Kind)
	assert.False(t, res.Duplicate)

	res, err = s.SubmitPath(context.Background(), catPath, cl)
	require.NoError(t, err)
	assert.Equal(t, Theme, res.Kind)
	assert.True(t, res.Duplicate)

	assert.Len(t, s.Paths(), 1)
	assert.Equal(t, []string{"CAT"}, s.ThemeWords())
	assert.Equal(t, 1, cl.calls)
}

func TestSubmitPath_InvalidPathNeverClassified(t *testing.T) {
	s := newTestSession(t)
	cl := &countingClassifier{}

	for _, coords := range [][]Coord{
		{{R: 0, C: 0}},
		{{R: 0, C: 0}, {R: 0, C: 2}},
		{{R: 0, C: 0}, {R: 0, C: 1}, {R: 0, C: 0}},
		{{R: 3, C: 3}, {R: 4, C: 4}},
	} {
		_, err := s.SubmitPath(context.Background(), coords, cl)
		require.Error(t, err)
		assert.True(t, game.IsInputInvalid(err))
	}
	assert.Zero(t, cl.calls)
	assert.Empty(t, s.Paths())
}

func TestSubmitPath_FoundCellsCannotBeReused(t *testing.T) {
	s := newTestSession(t)
	cl := &countingClassifier{}

	_, err := s.SubmitPath(context.Background(), catPath, cl)
	require.NoError(t, err)

	_, err = s.SubmitPath(context.Background(), []Coord{{R: 0, C: 1}, {R: 0, C: 2}, {R: 0, C: 3}}, cl)
	require.Error(t, err)
	assert.True(t, game.IsInputInvalid(err))
	assert.Equal(t, 1, cl.calls)
}

func TestSubmitPath_OtherWordsAreNotRecorded(t *testing.T) {
	s := newTestSession(t)

	res, err := s.SubmitPath(context.Background(), birdPath, &countingClassifier{})
	require.NoError(t, err)
	assert.Equal(t, Other, res.Kind)
	assert.Empty(t, s.Paths())
}

func TestSubmitPath_ClassifierFailureIsUpstream(t *testing.T) {
	s := newTestSession(t)

	_, err := s.SubmitPath(context.Background(), catPath, &countingClassifier{err: errors.New("connection refused")})
	require.Error(t, err)
	assert.True(t, game.IsUpstream(err))
	assert.Empty(t, s.Paths())

	bad := ClassifierFunc(func(context.Context, string, string) (Classification, error) {
		return Classification{Kind: "bonus", Word: "CAT"}, nil
	})
	_, err = s.SubmitPath(context.Background(), catPath, bad)
	assert.True(t, game.IsUpstream(err))
}

func TestSession_Win(t *testing.T) {
	s := newTestSession(t)
	cl := &countingClassifier{}

	for _, p := range [][]Coord{catPath, fishPath} {
		_, err := s.SubmitPath(context.Background(), p, cl)
		require.NoError(t, err)
		assert.False(t, s.Done())
	}

	res, err := s.SubmitPath(context.Background(), dogPath, cl)
	require.NoError(t, err)
	assert.Equal(t, Theme, res.Kind)
	assert.True(t, s.SpangramFound())
	assert.Equal(t, game.Win, s.Status())

	r, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, game.Result{Kind: game.Strands, Date: testDate, Outcome: game.Win}, r)
	_, ok = s.Result()
	assert.False(t, ok)

	_, err = s.SubmitPath(context.Background(), birdPath, cl)
	assert.True(t, game.IsInputInvalid(err))
	assert.True(t, game.IsInputInvalid(s.GiveUp()), "cannot give up a finished board")
	assert.Equal(t, game.Win, s.Status())
}

func TestSession_GiveUp(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.GiveUp())
	assert.Equal(t, game.Loss, s.Status())
	assert.Error(t, s.GiveUp())

	r, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, game.Loss, r.Outcome)
}

func TestSession_ZeroThemeWordCountNeverWins(t *testing.T) {
	p := testPuzzle()
	p.ThemeWordCount = 0
	s, err := NewSession(p, testDate)
	require.NoError(t, err)

	_, err = s.SubmitPath(context.Background(), fishPath, &countingClassifier{})
	require.NoError(t, err)
	assert.False(t, s.Done())
}

func TestSnapshotRestore(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	s := newTestSession(t)
	cl := &countingClassifier{}
	_, err := s.SubmitPath(context.Background(), dogPath, cl)
	require.NoError(t, err)
	_, err = s.SubmitPath(context.Background(), fishPath, cl)
	require.NoError(t, err)

	snap := s.Snapshot(now)
	assert.Equal(t, progress.Strands{
		Date:            testDate,
		FoundThemeWords: []string{"DOG"},
		FoundSpangram:   true,
		FoundPaths: []progress.Path{
			{Kind: progress.PathTheme, Word: "DOG", Coords: dogPath},
			{Kind: progress.PathSpangram, Word: "FISH", Coords: fishPath},
		},
		UpdatedAt: 1700000000000,
	}, snap)

	resumed := newTestSession(t)
	require.NoError(t, resumed.Restore(snap))
	assert.Equal(t, s.Paths(), resumed.Paths())
	assert.Equal(t, s.ThemeWords(), resumed.ThemeWords())
	assert.False(t, resumed.Done())

	_, err = resumed.SubmitPath(context.Background(), catPath, cl)
	require.NoError(t, err)
	assert.Equal(t, game.Win, resumed.Status())
}

func TestRestore_FinishedBoardDoesNotRecordAgain(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Restore(progress.Strands{Date: testDate, GaveUp: true}))

	assert.Equal(t, game.Loss, s.Status())
	_, ok := s.Result()
	assert.False(t, ok)
}
