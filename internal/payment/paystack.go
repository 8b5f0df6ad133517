package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultPaystackURL = "https://api.paystack.co"

// minor units per major unit (kobo, pesewas, cents)
var minorUnits = decimal.NewFromInt(100)

type Paystack struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*Paystack)(nil)

func NewPaystack(secretKey, baseURL string) *Paystack {
	if baseURL == "" {
		baseURL = DefaultPaystackURL
	}
	if secretKey == "" {
		log.Warn("paystack secret key is not set")
	}
	return &Paystack{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitRequest) (*Checkout, error) {
	body := map[string]any{
		"email":     req.Email,
		"amount":    req.Amount.Mul(minorUnits).IntPart(),
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var checkout Checkout
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &checkout); err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	if checkout.Reference == "" {
		checkout.Reference = req.Reference
	}
	return &checkout, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	}
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	return &Verification{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    decimal.NewFromInt(data.Amount).Div(minorUnits),
	}, nil
}

func (p *Paystack) ListBanks(ctx context.Context) ([]Bank, error) {
	var data []struct {
		Bank
		Active bool `json:"active"`
	}
	if err := p.do(ctx, http.MethodGet, "/bank", nil, &data); err != nil {
		return nil, fmt.Errorf("paystack list banks: %w", err)
	}

	banks := make([]Bank, 0, len(data))
	for _, b := range data {
		if b.Active {
			banks = append(banks, b.Bank)
		}
	}
	return banks, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, raw)
	}
	if resp.StatusCode/100 != 2 || !env.Status {
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, env.Message)
	}
	return json.Unmarshal(env.Data, out)
}

// VerifySignature checks the x-paystack-signature header of a webhook body.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// WebhookEvent is the body Paystack posts to the webhook endpoint.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}
