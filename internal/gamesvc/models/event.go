package models

import "time"

type EventType string

const (
	EventGameCreated   EventType = "game-created"
	EventGameJoined    EventType = "game-joined"
	EventMoveMade      EventType = "move-made"
	EventGameEnded     EventType = "game-ended"
	EventGameCancelled EventType = "game-cancelled"
)

// GameEvent carries the game snapshot after a committed state change.
type GameEvent struct {
	Type       EventType `json:"type"`
	Game       *Game     `json:"game"`
	Move       *GameMove `json:"move,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
