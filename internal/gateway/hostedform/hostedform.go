// Package hostedform implements the payment contract against a generic
// hosted-payment-page provider: registration opens a transaction over a
// signed form POST, the shopper pays on the provider's page and the
// provider reports the outcome through a signed server-to-server
// callback.
package hostedform

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/models"
)

// Identifier is the registry id of the hosted-form provider.
const Identifier = 1

var (
	ErrConfigInvalid    = errors.New("hostedform config invalid")
	ErrSignatureInvalid = errors.New("hostedform signature invalid")
)

// Config is the merchant account configuration.
type Config struct {
	GatewayURL  string `json:"gateway_url"`
	MerchantID  string `json:"merchant_id"`
	MerchantKey string `json:"merchant_key"`
	APIPath     string `json:"api_path"`
	NotifyURL   string `json:"notify_url"`
	ReturnURL   string `json:"return_url"`
	// Preauth asks the provider to reserve rather than capture.
	Preauth bool `json:"preauth"`
	// Moto allows merchant-keyed transactions on this account.
	Moto bool `json:"moto"`
}

func (c *Config) normalize() {
	if c.APIPath == "" {
		c.APIPath = "/api/transaction"
	}
}

// Validate checks the required account fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GatewayURL) == "" {
		return fmt.Errorf("%w: gateway_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantID) == "" {
		return fmt.Errorf("%w: merchant_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.MerchantKey) == "" {
		return fmt.Errorf("%w: merchant_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.NotifyURL) == "" {
		return fmt.Errorf("%w: notify_url is required", ErrConfigInvalid)
	}
	return nil
}

// Gateway talks to the hosted payment page provider.
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New creates the provider from its merchant configuration.
func New(cfg Config) (*Gateway, error) {
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Identifier returns the registry id.
func (g *Gateway) Identifier() int { return Identifier }

// Name returns the provider name.
func (g *Gateway) Name() string { return "hostedform" }

// CanMoto reports whether merchant-keyed orders are accepted.
func (g *Gateway) CanMoto() bool { return g.cfg.Moto }

// HasPreauth reports deferred capture support.
func (g *Gateway) HasPreauth() bool { return g.cfg.Preauth }

// HasCancel reports cancellation support.
func (g *Gateway) HasCancel() bool { return true }

// HasFulfilment reports fulfilment notification support.
func (g *Gateway) HasFulfilment() bool { return false }

// Register opens a transaction and returns the hosted page redirect.
func (g *Gateway) Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.RegisterResult, error) {
	if req.OrderRef == "" || req.Amount.IsNegative() {
		return nil, gateway.ErrRegistrationFailed
	}
	params := map[string]string{
		"merchant":  g.cfg.MerchantID,
		"order_ref": req.OrderRef,
		"idem_key":  req.IdempotencyKey,
		"amount":    req.Amount.String(),
		"currency":  req.Currency,
		"subject":   req.Description,
		"email":     req.CustomerEmail,
		"client_ip": req.ClientIP,
		"notify":    g.cfg.NotifyURL,
		"return":    g.cfg.ReturnURL,
		"action":    "register",
	}
	if req.Preauth && g.cfg.Preauth {
		params["capture"] = "deferred"
	}
	if req.Moto && g.cfg.Moto {
		params["moto"] = "1"
	}
	body, err := g.post(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status        string `json:"status"`
		Message       string `json:"message"`
		TransactionID string `json:"transaction_id"`
		RedirectURL   string `json:"redirect_url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrRegistrationFailed, err)
	}
	switch resp.Status {
	case "ok":
	case "declined":
		return nil, gateway.ErrDeclined
	default:
		return nil, fmt.Errorf("%w: %s", gateway.ErrRegistrationFailed, resp.Message)
	}
	if resp.TransactionID == "" || resp.RedirectURL == "" {
		return nil, gateway.ErrRegistrationFailed
	}
	return &gateway.RegisterResult{
		TransactionID: resp.TransactionID,
		RedirectURL:   resp.RedirectURL,
		Preauth:       req.Preauth && g.cfg.Preauth,
		Details: map[string]interface{}{
			"provider":       "hostedform",
			"transaction_id": resp.TransactionID,
			"merchant":       g.cfg.MerchantID,
		},
	}, nil
}

// ParseCallback verifies a provider notification's signature and maps
// its result code onto a transaction state.
func (g *Gateway) ParseCallback(payload map[string]string) (*gateway.CallbackOutcome, error) {
	if payload == nil {
		return nil, gateway.ErrCallbackInvalid
	}
	sign := payload["sign"]
	if sign == "" || !verifySign(payload, g.cfg.MerchantKey, sign) {
		return nil, ErrSignatureInvalid
	}
	orderRef := payload["order_ref"]
	if orderRef == "" {
		return nil, gateway.ErrCallbackInvalid
	}

	var state string
	switch payload["result"] {
	case "authorised", "captured":
		state = constants.TxnStateAuthorised
	case "declined":
		state = constants.TxnStateDeclined
	default:
		state = constants.TxnStateError
	}
	return &gateway.CallbackOutcome{
		OrderRef:      orderRef,
		TransactionID: payload["transaction_id"],
		State:         state,
		Preauth:       payload["capture"] == "deferred",
		Details: map[string]interface{}{
			"result":         payload["result"],
			"transaction_id": payload["transaction_id"],
		},
	}, nil
}

// Settle captures a previously reserved amount.
func (g *Gateway) Settle(ctx context.Context, transactionID string, amount models.Money) error {
	return g.action(ctx, "settle", transactionID, map[string]string{"amount": amount.String()})
}

// Abort releases a previously reserved amount.
func (g *Gateway) Abort(ctx context.Context, transactionID string) error {
	return g.action(ctx, "abort", transactionID, nil)
}

// Cancel voids a captured transaction.
func (g *Gateway) Cancel(ctx context.Context, transactionID string) error {
	return g.action(ctx, "cancel", transactionID, nil)
}

// Fulfil is not supported by this provider.
func (g *Gateway) Fulfil(ctx context.Context, transactionID string) error {
	return gateway.ErrCapability
}

func (g *Gateway) action(ctx context.Context, action, transactionID string, extra map[string]string) error {
	if transactionID == "" {
		return gateway.ErrTransport
	}
	params := map[string]string{
		"merchant":       g.cfg.MerchantID,
		"action":         action,
		"transaction_id": transactionID,
	}
	for k, v := range extra {
		params[k] = v
	}
	body, err := g.post(ctx, params)
	if err != nil {
		return err
	}
	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: %s %s", gateway.ErrDeclined, action, resp.Message)
	}
	return nil
}

func (g *Gateway) post(ctx context.Context, params map[string]string) ([]byte, error) {
	params["sign"] = buildSign(params, g.cfg.MerchantKey)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	endpoint := strings.TrimRight(g.cfg.GatewayURL, "/") + g.cfg.APIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", gateway.ErrTransport, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrTransport, err)
	}
	return body, nil
}

// buildSign hashes the sorted key=value pairs with the merchant key.
// Empty values and the signature field itself are excluded.
func buildSign(params map[string]string, key string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	b.WriteString(key)
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func verifySign(params map[string]string, key, sign string) bool {
	expected := buildSign(params, key)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sign)))
}
