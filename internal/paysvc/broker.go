// Package paysvc serves wallet deposits and withdrawals: socket requests over
// NATS and the payment provider's webhook.
package paysvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 30 * time.Second

type Broker struct {
	Conn     *nats.Conn
	Balances *service.BalanceService
}

func NewBroker(nc *nats.Conn, balances *service.BalanceService) *Broker {
	return &Broker{Conn: nc, Balances: balances}
}

// QueueSubscribe shares payment requests between pay service instances.
func (b *Broker) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	return b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
}

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
	resp.SocketId, resp.UserId = msg.SocketId, msg.UserId

	payload, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	if err := b.Conn.Publish(comm.GameServiceTopic, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.GameServiceTopic, err)
	}
}

func (b *Broker) dispatch(ctx context.Context, msg *comm.WSMessage) *comm.WSMessage {
	if msg.UserId <= 0 {
		return comm.NewErrorMessage(msg.Type, fmt.Errorf("%w: request carries no user", models.ErrValidation))
	}

	var (
		data any
		err  error
	)
	switch msg.Type {
	case "deposit":
		var req comm.DepositRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = b.Balances.InitializeDeposit(ctx, msg.UserId, req.Email, req.Amount)
		}
	case "withdraw":
		var req comm.WithdrawalRequest
		if err = decode(msg.Data, &req); err == nil {
			data, err = b.Balances.RequestWithdrawal(ctx, msg.UserId, req.Amount, req.PayoutAccount)
		}
	case "get-withdrawal":
		var req comm.WithdrawalLookup
		if err = decode(msg.Data, &req); err == nil {
			data, err = b.Balances.Withdrawal(ctx, msg.UserId, req.Reference)
		}
	case "list-banks":
		var banks []payment.Bank
		if banks, err = b.Balances.ListBanks(ctx); err == nil {
			data = comm.BanksData{Banks: banks}
		}
	default:
		log.Errorf("Unknown message %q", msg.Type)
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
		return comm.NewErrorMessage(msg.Type, fmt.Errorf("%w: %w", models.ErrInternal, err))
	}
	return resp
}

func decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}
