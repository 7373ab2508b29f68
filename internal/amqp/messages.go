package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"kegelkladde/internal/core"
)

// EventType is the routing-independent name of a domain event.
type EventType string

const (
	EventGamedayCreated EventType = "gameday.created"
	EventStatusChanged  EventType = "gameday.status_changed"
	EventRoundWon       EventType = "round.won"
)

// Event is the single envelope published for every domain event. Consumers
// re-read whatever they need from the database; the payload only carries ids
// and the facts that triggered the event.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	GamedayID   int64  `json:"gameday_id,omitempty"`
	GamedayDate string `json:"gameday_date,omitempty"`

	// gameday.status_changed
	FromStatus core.Status `json:"from_status,omitempty"`
	ToStatus   core.Status `json:"to_status,omitempty"`

	// round.won
	RankingType    core.RankingType `json:"ranking_type,omitempty"`
	RoundNumber    int              `json:"round_number,omitempty"`
	WinnerMemberID int64            `json:"winner_member_id,omitempty"`
	WinningScore   int              `json:"winning_score,omitempty"`
}

func newEvent(t EventType) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
	}
}

func NewGamedayCreatedEvent(g core.Gameday) *Event {
	e := newEvent(EventGamedayCreated)
	e.GamedayID = g.ID
	e.GamedayDate = g.Date.String()
	return e
}

func NewStatusChangedEvent(gamedayID int64, from, to core.Status) *Event {
	e := newEvent(EventStatusChanged)
	e.GamedayID = gamedayID
	e.FromStatus = from
	e.ToStatus = to
	return e
}

func NewRoundWonEvent(rw core.RoundWin) *Event {
	e := newEvent(EventRoundWon)
	e.GamedayID = rw.GamedayID
	e.GamedayDate = rw.GamedayDate.String()
	e.RankingType = rw.Type
	e.RoundNumber = rw.RoundNumber
	e.WinnerMemberID = rw.WinnerMemberID
	e.WinningScore = rw.WinningScore
	return e
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event, rejecting unknown event types.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventGamedayCreated, EventStatusChanged, EventRoundWon:
	default:
		return nil, &core.ValidationError{Field: "type", Reason: "unknown event type " + string(e.Type)}
	}
	return &e, nil
}
