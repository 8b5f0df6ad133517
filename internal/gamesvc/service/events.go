package service

import (
	"context"

	"github.com/avvvet/draught-services/internal/gamesvc/models"
)

// EventPublisher delivers committed game events to subscribers.
type EventPublisher interface {
	PublishGameEvent(ctx context.Context, ev models.GameEvent) error
}
