package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic string
	msg   comm.WSMessage
}

type fakePublisher struct {
	mu  sync.Mutex
	out []published
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	var m comm.WSMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, published{topic: topic, msg: m})
	return nil
}

func newTestWs() (*Ws, *fakePublisher) {
	pub := &fakePublisher{}
	s := NewWs()
	s.Broker = pub
	s.StoreConnection("sock-a", 7, nil)
	s.StoreConnection("sock-b", 8, nil)
	return s, pub
}

func TestSocketMessageStampsVerifiedUser(t *testing.T) {
	s, pub := newTestWs()

	s.SocketMessage("sock-a", &comm.WSMessage{
		Type:   "make-move",
		Data:   json.RawMessage(`{"game_id":3}`),
		UserId: 99,
		Room:   "game.3",
	})

	require.Len(t, pub.out, 1)
	assert.Equal(t, comm.SocketServiceTopic, pub.out[0].topic)
	assert.Equal(t, int64(7), pub.out[0].msg.UserId)
	assert.Equal(t, "sock-a", pub.out[0].msg.SocketId)
	assert.Empty(t, pub.out[0].msg.Room)
}

func TestSocketMessageRouting(t *testing.T) {
	s, pub := newTestWs()

	s.SocketMessage("sock-a", &comm.WSMessage{Type: "deposit", Data: json.RawMessage(`{"amount":"100"}`)})
	s.SocketMessage("sock-a", &comm.WSMessage{Type: "unknown-command", Data: json.RawMessage(`{}`)})
	s.SocketMessage("unknown-socket", &comm.WSMessage{Type: "get-balance", Data: json.RawMessage(`{}`)})

	require.Len(t, pub.out, 1)
	assert.Equal(t, comm.PaymentServiceTopic, pub.out[0].topic)
}

func TestSubscriptions(t *testing.T) {
	s, pub := newTestWs()

	s.SocketMessage("sock-a", &comm.WSMessage{Type: "subscribe-game", Data: json.RawMessage(`{"game_id":3}`)})
	s.SocketMessage("sock-b", &comm.WSMessage{Type: "subscribe-game", Data: json.RawMessage(`{"game_id":3}`)})
	s.SocketMessage("sock-b", &comm.WSMessage{Type: "subscribe-lobby", Data: json.RawMessage(`{}`)})

	assert.ElementsMatch(t, []string{"sock-a", "sock-b"}, s.GetRoomSockets(comm.GameRoom(3)))
	assert.Equal(t, []string{"sock-b"}, s.GetRoomSockets(comm.LobbyRoom))

	require.Len(t, pub.out, 3)
	assert.Equal(t, "get-game", pub.out[0].msg.Type)
	assert.Equal(t, "get-lobby", pub.out[2].msg.Type)

	s.SocketMessage("sock-a", &comm.WSMessage{Type: "unsubscribe-game", Data: json.RawMessage(`{"game_id":3}`)})
	assert.Equal(t, []string{"sock-b"}, s.GetRoomSockets(comm.GameRoom(3)))

	s.HandleDisconnect("sock-b")
	assert.Empty(t, s.GetRoomSockets(comm.GameRoom(3)))
	assert.Empty(t, s.GetRoomSockets(comm.LobbyRoom))

	// a bad subscribe is ignored
	s.SocketMessage("sock-a", &comm.WSMessage{Type: "subscribe-game", Data: json.RawMessage(`{"game_id":0}`)})
	assert.Len(t, pub.out, 3)
}

func TestSendToMissingSocket(t *testing.T) {
	s, _ := newTestWs()
	assert.False(t, s.Send("gone", &comm.WSMessage{Type: "x"}))
	assert.False(t, s.Send("sock-a", &comm.WSMessage{Type: "x"}), "no live connection")
}
