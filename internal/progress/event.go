package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/dailies/internal/game"
)

// Limits on the outcome detail carried by a win.
const (
	MaxGuessCount   = 10
	MaxMistakesUsed = 4
)

// Event is a terminal result waiting to be delivered to the remote
// service. ID doubles as the idempotency key for the delivery.
type Event struct {
	ID        string       `json:"id,omitempty"`
	Kind      game.Kind    `json:"kind"`
	Type      game.Outcome `json:"type"`
	Date      string       `json:"date,omitempty"`
	Detail    int          `json:"detail,omitempty"`
	CreatedAt int64        `json:"createdAt"`
}

// NewEvent builds a pending event for a terminal result.
func NewEvent(id string, r game.Result, at time.Time) Event {
	return Event{
		ID:        id,
		Kind:      r.Kind,
		Type:      r.Outcome,
		Date:      r.Date,
		Detail:    r.Detail,
		CreatedAt: at.UnixMilli(),
	}
}

// Result converts the event back into the result it records.
func (e Event) Result() game.Result {
	return game.Result{Kind: e.Kind, Date: e.Date, Outcome: e.Type, Detail: e.Detail}
}

// Validate checks the event against the rules for its game.
func (e Event) Validate() error {
	return ValidateResult(e.Result())
}

// ValidateResult checks a result against the rules for its game. Wordle
// results may be undated (endless rounds); the other games require a date.
func ValidateResult(r game.Result) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown game %q", r.Kind)
	}
	if r.Outcome != game.Win && r.Outcome != game.Loss {
		return fmt.Errorf("invalid outcome %q", r.Outcome)
	}
	if r.Date != "" && !game.ValidDate(r.Date) {
		return fmt.Errorf("invalid date %q", r.Date)
	}
	if r.Date == "" && r.Kind != game.Wordle {
		return fmt.Errorf("%s result requires a date", r.Kind)
	}
	if r.Outcome == game.Loss {
		return nil
	}
	switch r.Kind {
	case game.Wordle:
		if r.Detail < 1 || r.Detail > MaxGuessCount {
			return fmt.Errorf("guess count %d out of range 1..%d", r.Detail, MaxGuessCount)
		}
	case game.Connections:
		if r.Detail < 0 || r.Detail > MaxMistakesUsed {
			return fmt.Errorf("mistakes used %d out of range 0..%d", r.Detail, MaxMistakesUsed)
		}
	}
	return nil
}

// DecodeEvents parses a stored queue, dropping entries that are malformed
// or belong to another game. A queue that is not a JSON array is corrupt.
func DecodeEvents(kind game.Kind, data []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, game.Corrupt(kind, "decode event queue", err)
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var e Event
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		if e.Kind == "" {
			e.Kind = kind
		}
		if e.Kind != kind || e.Validate() != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// EncodeEvents serializes a queue for storage.
func EncodeEvents(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode event queue: %w", err)
	}
	return data, nil
}
