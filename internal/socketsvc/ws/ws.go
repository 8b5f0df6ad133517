package ws

import (
	"encoding/json"
	"sync"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher forwards client requests onto the bus.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type client struct {
	conn   *websocket.Conn
	userID int64
	wmu    sync.Mutex // gorilla connections allow one writer at a time
}

type Ws struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{} // room -> socket ids

	Broker Publisher
}

func NewWs() *Ws {
	return &Ws{
		clients: map[string]*client{},
		rooms:   map[string]map[string]struct{}{},
	}
}

// requests answered by the game service
var gameRequests = map[string]bool{
	"init":        true,
	"get-balance": true,
	"create-game": true,
	"join-game":   true,
	"make-move":   true,
	"resign-game": true,
	"cancel-game": true,
	"get-game":    true,
	"get-lobby":   true,
}

// requests answered by the payment service
var paymentRequests = map[string]bool{
	"deposit":        true,
	"withdraw":       true,
	"get-withdrawal": true,
	"list-banks":     true,
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	c, ok := s.client(socketId)
	if !ok {
		return
	}
	// the user id always comes from the verified token
	message.SocketId = socketId
	message.UserId = c.userID
	message.Room = ""

	switch {
	case message.Type == "subscribe-game":
		s.subscribeGame(socketId, message)
	case message.Type == "unsubscribe-game":
		var req comm.GameRequest
		if err := json.Unmarshal(message.Data, &req); err != nil {
			log.Warnf("Malformed unsubscribe-game from %s: %s", socketId, err)
			return
		}
		s.LeaveRoom(socketId, comm.GameRoom(req.GameID))
	case message.Type == "subscribe-lobby":
		s.JoinRoom(socketId, comm.LobbyRoom)
		message.Type = "get-lobby"
		s.forward(comm.SocketServiceTopic, message)
	case message.Type == "unsubscribe-lobby":
		s.LeaveRoom(socketId, comm.LobbyRoom)
	case gameRequests[message.Type]:
		s.forward(comm.SocketServiceTopic, message)
	case paymentRequests[message.Type]:
		s.forward(comm.PaymentServiceTopic, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// subscribeGame adds the socket to the game room and asks for the current snapshot.
func (s *Ws) subscribeGame(socketId string, message *comm.WSMessage) {
	var req comm.GameRequest
	if err := json.Unmarshal(message.Data, &req); err != nil || req.GameID <= 0 {
		log.Warnf("Malformed subscribe-game from %s", socketId)
		return
	}
	s.JoinRoom(socketId, comm.GameRoom(req.GameID))

	message.Type = "get-game"
	s.forward(comm.SocketServiceTopic, message)
}

func (s *Ws) forward(topic string, message *comm.WSMessage) {
	bytes, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}
	log.Debugf("Published %s for user %d to topic %s", message.Type, message.UserId, topic)
}

func (s *Ws) StoreConnection(socketId string, userID int64, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[socketId] = &client{conn: conn, userID: userID}
}

func (s *Ws) client(socketId string) (*client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[socketId]
	return c, ok
}

// Send writes m to one socket. It reports false when the socket is gone or the write failed.
func (s *Ws) Send(socketId string, m *comm.WSMessage) bool {
	c, ok := s.client(socketId)
	if !ok || c.conn == nil {
		return false
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.WriteJSON(m); err != nil {
		log.Warnf("write to socket %s failed: %s", socketId, err)
		return false
	}
	return true
}

func (s *Ws) JoinRoom(socketId, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[socketId]; !ok {
		return
	}
	members, ok := s.rooms[room]
	if !ok {
		members = map[string]struct{}{}
		s.rooms[room] = members
	}
	members[socketId] = struct{}{}
}

func (s *Ws) LeaveRoom(socketId, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leave(socketId, room)
}

func (s *Ws) leave(socketId, room string) {
	members := s.rooms[room]
	delete(members, socketId)
	if len(members) == 0 {
		delete(s.rooms, room)
	}
}

func (s *Ws) GetRoomSockets(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sockets := make([]string, 0, len(s.rooms[room]))
	for id := range s.rooms[room] {
		sockets = append(sockets, id)
	}
	return sockets
}

// HandleDisconnect forgets the socket and removes it from every room.
func (s *Ws) HandleDisconnect(socketId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, socketId)
	for room := range s.rooms {
		s.leave(socketId, room)
	}
}
