package broker

import (
	"encoding/json"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn           *nats.Conn
	Send           func(socketId string, m *comm.WSMessage) bool
	GetRoomSockets func(room string) []string
	JoinRoom       func(socketId, room string)
}

func NewBroker(conn *nats.Conn, fncSend func(string, *comm.WSMessage) bool,
	fncGetRoomSockets func(string) []string, fncJoinRoom func(string, string)) *Broker {
	return &Broker{
		Conn:           conn,
		Send:           fncSend,
		GetRoomSockets: fncGetRoomSockets,
		JoinRoom:       fncJoinRoom,
	}
}

// consume message from game service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish client requests for the game and payment services
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receive message from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.route(message)
}

// route delivers room broadcasts to every member and responses to their socket.
func (b *Broker) route(m *comm.WSMessage) {
	if m.Room != "" {
		for _, socketId := range b.GetRoomSockets(m.Room) {
			b.Send(socketId, m)
		}
		return
	}
	if m.SocketId == "" {
		log.Warnf("dropping %s with no room or socket", m.Type)
		return
	}

	// players follow their own games without an explicit subscribe
	switch m.Type {
	case "create-game-response", "join-game-response":
		var data comm.GameData
		if err := json.Unmarshal(m.Data, &data); err == nil && data.Game != nil {
			b.JoinRoom(m.SocketId, comm.GameRoom(data.Game.ID))
		}
	}

	b.Send(m.SocketId, m)
}
