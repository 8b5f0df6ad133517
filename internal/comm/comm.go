package comm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/shopspring/decimal"
)

const (
	// socket gateway -> game service
	SocketServiceTopic = "socket.service"
	// game service -> socket gateway, responses and room broadcasts
	GameServiceTopic = "game.service"
	// payment requests from the socket gateway
	PaymentServiceTopic = "payment.service"

	LobbyRoom = "lobby"
)

// GameRoom is the socket room every watcher of a game is subscribed to.
func GameRoom(gameID int64) string {
	return fmt.Sprintf("game.%d", gameID)
}

// WSMessage is the envelope shared by websocket clients and every NATS topic.
// Responses address a single socket; broadcasts set Room instead.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "create-game", "move-made"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
	UserId   int64           `json:"userid,omitempty"` // stamped by the socket gateway, never trusted from clients
	Room     string          `json:"room,omitempty"`
}

func NewMessage(msgType string, v any) (*WSMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msgType, err)
	}
	return &WSMessage{Type: msgType, Data: data}, nil
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type PlayerData struct {
	Name    string `json:"name"`
	UserId  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

type ErrorData struct {
	Request string `json:"request"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateGameRequest struct {
	BetAmount decimal.Decimal `json:"bet_amount"`
}

type JoinGameRequest struct {
	GameCode string `json:"game_code"`
}

type GameRequest struct {
	GameID int64 `json:"game_id"`
}

type MoveRequest struct {
	GameID int64 `json:"game_id"`
	draughts.Move
}

type GameData struct {
	Game *models.Game     `json:"game"`
	Move *models.GameMove `json:"move,omitempty"`
}

type LobbyData struct {
	Games []*models.Game `json:"games"`
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Email  string          `json:"email"`
}

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	models.PayoutAccount
}

type WithdrawalLookup struct {
	Reference string `json:"reference"`
}

type BanksData struct {
	Banks []payment.Bank `json:"banks"`
}

// NewErrorMessage reports a failed request to its socket. Internal failures are not described.
func NewErrorMessage(request string, err error) *WSMessage {
	msg := err.Error()
	if errors.Is(err, models.ErrInternal) {
		msg = "something went wrong"
	}
	data, _ := json.Marshal(ErrorData{Request: request, Code: models.ErrorCode(err), Message: msg})
	return &WSMessage{Type: "error", Data: data}
}
