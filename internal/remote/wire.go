package remote

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
)

// SessionCookie carries the session credential on every request.
const SessionCookie = "session"

// IdempotencyHeader names the header that carries a result's event id.
const IdempotencyHeader = "Idempotency-Key"

// ResultRequest is the body of a win or loss post.
type ResultRequest struct {
	Date         string `json:"date,omitempty"`
	GuessCount   *int   `json:"guessCount,omitempty"`
	MistakesUsed *int   `json:"mistakesUsed,omitempty"`
}

// NewResultRequest builds the wire body for a result.
func NewResultRequest(r game.Result) ResultRequest {
	req := ResultRequest{Date: r.Date}
	if r.Outcome != game.Win {
		return req
	}
	n := r.Detail
	switch r.Kind {
	case game.Wordle:
		req.GuessCount = &n
	case game.Connections:
		req.MistakesUsed = &n
	}
	return req
}

// Result converts the body back into a validated result.
func (r ResultRequest) Result(kind game.Kind, outcome game.Outcome) (game.Result, error) {
	res := game.Result{Kind: kind, Date: r.Date, Outcome: outcome}
	if outcome == game.Win {
		switch kind {
		case game.Wordle:
			if r.GuessCount == nil {
				return game.Result{}, fmt.Errorf("guessCount is required")
			}
			res.Detail = *r.GuessCount
		case game.Connections:
			if r.MistakesUsed == nil {
				return game.Result{}, fmt.Errorf("mistakesUsed is required")
			}
			res.Detail = *r.MistakesUsed
		}
	}
	if err := progress.ValidateResult(res); err != nil {
		return game.Result{}, err
	}
	return res, nil
}

// ProgressResponse wraps a stored snapshot; Progress is null when nothing
// has been saved for the date.
type ProgressResponse struct {
	Progress json.RawMessage `json:"progress"`
}

// SubmitRequest asks for a Strands word to be classified.
type SubmitRequest struct {
	Date string `json:"date"`
	Word string `json:"word"`
}

// User is the signed-in identity.
type User struct {
	ID string `json:"id"`
}

// MeResponse is the sign-in check's answer.
type MeResponse struct {
	User *User `json:"user"`
}

// ErrorResponse is the body of every non-2xx response from the service.
type ErrorResponse struct {
	Error string `json:"error"`
}
