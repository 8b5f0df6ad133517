package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Publisher fans committed game events out to the socket gateway.
type Publisher struct {
	Conn  *nats.Conn
	Topic string
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{Conn: nc, Topic: comm.GameServiceTopic}
}

func (p *Publisher) PublishGameEvent(ctx context.Context, ev models.GameEvent) error {
	msgs, err := eventMessages(ev)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := p.Conn.Publish(p.Topic, payload); err != nil {
			return fmt.Errorf("publish %s to %s: %w", ev.Type, msg.Room, err)
		}
	}
	log.Debugf("published %s for game %s", ev.Type, ev.Game.Code)
	return nil
}

// eventMessages builds one broadcast for the game room and, when the set of
// open games changed, one for the lobby.
func eventMessages(ev models.GameEvent) ([]*comm.WSMessage, error) {
	if ev.Game == nil {
		return nil, fmt.Errorf("event %s has no game", ev.Type)
	}

	msg, err := comm.NewMessage(string(ev.Type), comm.GameData{Game: ev.Game, Move: ev.Move})
	if err != nil {
		return nil, err
	}
	msg.Room = comm.GameRoom(ev.Game.ID)
	msgs := []*comm.WSMessage{msg}

	switch ev.Type {
	case models.EventGameCreated, models.EventGameJoined, models.EventGameCancelled:
		lobby := *msg
		lobby.Room = comm.LobbyRoom
		msgs = append(msgs, &lobby)
	}
	return msgs, nil
}
