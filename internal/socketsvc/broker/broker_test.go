package broker

import (
	"encoding/json"
	"testing"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHub struct {
	sent   map[string][]string // socket -> message types
	rooms  map[string][]string
	joined []string
}

func newFakeHub() *fakeHub {
	return &fakeHub{sent: map[string][]string{}, rooms: map[string][]string{}}
}

func (h *fakeHub) broker() *Broker {
	return NewBroker(nil,
		func(socketId string, m *comm.WSMessage) bool {
			h.sent[socketId] = append(h.sent[socketId], m.Type)
			return true
		},
		func(room string) []string { return h.rooms[room] },
		func(socketId, room string) { h.joined = append(h.joined, socketId+"@"+room) },
	)
}

func natsMsg(t *testing.T, m *comm.WSMessage) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return &nats.Msg{Data: data}
}

func TestRoomBroadcast(t *testing.T) {
	hub := newFakeHub()
	hub.rooms["game.5"] = []string{"a", "b"}
	b := hub.broker()

	b.handleMessages(natsMsg(t, &comm.WSMessage{Type: "move-made", Room: "game.5", Data: json.RawMessage(`{}`)}))

	assert.Equal(t, []string{"move-made"}, hub.sent["a"])
	assert.Equal(t, []string{"move-made"}, hub.sent["b"])
}

func TestResponseJoinsGameRoom(t *testing.T) {
	hub := newFakeHub()
	b := hub.broker()

	data, err := json.Marshal(comm.GameData{Game: &models.Game{ID: 9}})
	require.NoError(t, err)
	b.handleMessages(natsMsg(t, &comm.WSMessage{Type: "join-game-response", SocketId: "a", Data: data}))
	b.handleMessages(natsMsg(t, &comm.WSMessage{Type: "get-balance-response", SocketId: "a", Data: json.RawMessage(`{}`)}))
	b.handleMessages(natsMsg(t, &comm.WSMessage{Type: "orphan", Data: json.RawMessage(`{}`)}))

	assert.Equal(t, []string{"a@game.9"}, hub.joined)
	assert.Equal(t, []string{"join-game-response", "get-balance-response"}, hub.sent["a"])
}
