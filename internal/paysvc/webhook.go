package paysvc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/gamesvc/models"
	"github.com/avvvet/draught-services/internal/gamesvc/service"
	"github.com/avvvet/draught-services/internal/payment"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

// Webhook applies the provider's charge and transfer notifications to the
// ledger and serves the provider's bank list.
type Webhook struct {
	secret   string
	balances *service.BalanceService
}

func NewWebhook(secret string, balances *service.BalanceService) *Webhook {
	return &Webhook{secret: secret, balances: balances}
}

func (h *Webhook) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/paystack/webhook", h.ServeHTTP)
		r.Get("/wallet/withdraw/banks", h.Banks)
	})
}

func (h *Webhook) Banks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.balances.ListBanks(r.Context())
	if err != nil {
		log.Errorf("Error listing banks: %s", err)
		http.Error(w, "failed to fetch banks", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comm.BanksData{Banks: banks})
}

// ServeHTTP answers 200 for anything that must not be retried and 500 when the
// provider should deliver the event again.
func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if !payment.VerifySignature(h.secret, body, r.Header.Get("x-paystack-signature")) {
		log.Warnf("webhook with bad signature from %s", r.RemoteAddr)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var ev payment.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ref := ev.Data.Reference
	switch ev.Event {
	case "charge.success":
		_, err = h.balances.ConfirmDeposit(ctx, ref)
	case "transfer.success":
		err = h.balances.CompleteWithdrawal(ctx, ref)
	case "transfer.failed", "transfer.reversed":
		err = h.balances.FailWithdrawal(ctx, ref)
	default:
		log.Debugf("ignoring webhook event %s", ev.Event)
	}

	switch {
	case err == nil:
	case errors.Is(err, models.ErrInternal):
		log.Errorf("webhook %s for %s failed: %s", ev.Event, ref, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	default:
		log.Warnf("webhook %s for %s not applied: %s", ev.Event, ref, err)
	}
	w.WriteHeader(http.StatusOK)
}
