package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

type Broker struct {
	Conn           *nats.Conn
	UserService    *service.UserService
	BalanceService *service.BalanceService
	GameService    *service.GameService
}

func NewBroker(nc *nats.Conn, userService *service.UserService,
	balanceService *service.BalanceService, gameService *service.GameService) *Broker {
	return &Broker{
		Conn:           nc,
		UserService:    userService,
		BalanceService: balanceService,
		GameService:    gameService,
	}
}

var errUnauthenticated = fmt.Errorf("%w: request carries no user", models.ErrValidation)

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp := b.dispatch(ctx, msg)
	if resp == nil {
		return
	}
	resp.SocketId = msg.SocketId
	resp.UserId = msg.UserId

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.Publish(comm.GameServiceTopic, payload)
}

// dispatch runs one socket request and returns the response addressed to its socket.
func (b *Broker) dispatch(ctx context.Context, msg *comm.WSMessage) *comm.WSMessage {
	if msg.UserId <= 0 {
		return comm.NewErrorMessage(msg.Type, errUnauthenticated)
	}

	var (
		data any
		err  error
	)
	switch msg.Type {
	case "init":
		data, err = b.initUser(ctx, msg)
	case "get-balance":
		data, err = b.balance(ctx, msg.UserId, "")
	case "create-game":
		var req comm.CreateGameRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.CreateGame(ctx, msg.UserId, req.BetAmount))
		}
	case "join-game":
		var req comm.JoinGameRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.JoinGame(ctx, msg.UserId, req.GameCode))
		}
	case "make-move":
		var req comm.MoveRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.MakeMove(ctx, req.GameID, msg.UserId, req.Move))
		}
	case "resign-game":
		var req comm.GameRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.ResignGame(ctx, req.GameID, msg.UserId))
		}
	case "cancel-game":
		var req comm.GameRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.CancelGame(ctx, req.GameID, msg.UserId))
		}
	case "get-game":
		var req comm.GameRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = gameData(b.GameService.GetGame(ctx, req.GameID))
		}
	case "get-lobby":
		games, lerr := b.GameService.Lobby(ctx)
		data, err = comm.LobbyData{Games: games}, lerr
	default:
		log.Errorf("Unknown message %q from socket %s", msg.Type, msg.SocketId)
		return nil
	}

	if err != nil {
		if errors.Is(err, models.ErrInternal) {
			log.Errorf("Error [%s] user %d: %s", msg.Type, msg.UserId, err)
		}
		return comm.NewErrorMessage(msg.Type, err)
	}

	resp, err := comm.NewMessage(msg.Type+"-response", data)
	if err != nil {
		log.Errorf("Error %s", err)
		return comm.NewErrorMessage(msg.Type, fmt.Errorf("%w: %w", models.ErrInternal, err))
	}
	return resp
}

func (b *Broker) initUser(ctx context.Context, msg *comm.WSMessage) (*comm.PlayerData, error) {
	userInfo := models.User{}
	if len(msg.Data) > 0 {
		if err := decode(msg.Data, &userInfo); err != nil {
			return nil, err
		}
	}
	// the id comes from the verified token only
	userInfo.UserId = msg.UserId

	user, err := b.UserService.GetOrCreateUser(ctx, userInfo)
	if err != nil {
		return nil, err
	}
	return b.balance(ctx, user.UserId, user.Name)
}

func (b *Broker) balance(ctx context.Context, userID int64, name string) (*comm.PlayerData, error) {
	balance, err := b.BalanceService.GetUserBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &comm.PlayerData{Name: name, UserId: userID, Balance: balance.StringFixed(2)}, nil
}

func gameData(g *models.Game, err error) (*comm.GameData, error) {
	if err != nil {
		return nil, err
	}
	return &comm.GameData{Game: g}, nil
}

func decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

// QueueSubscribSocketService shares socket requests between game service instances.
func (b *Broker) QueueSubscribSocketService(topic, queueGroup string) (*nats.Subscription, error) {
	return b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
