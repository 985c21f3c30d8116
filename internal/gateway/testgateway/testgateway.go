package testgateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/models"
)

// Identifier is the registry id of the test provider.
const Identifier = 0

// Gateway is an in-process provider used in shop test mode and by the
// test suite. It authorises everything by default; Outcome and Fail
// switch the behaviour per scenario. Every capability is supported so
// all coordinator paths stay reachable against it.
type Gateway struct {
	mu sync.Mutex

	// Outcome is the state reported by callbacks, authorised unless set.
	Outcome string
	// Preauth makes registrations defer capture.
	Preauth bool
	// FailRegister forces Register to report a transport failure.
	FailRegister bool
	// FailRegisterOnce forces a single transport failure, then recovers.
	FailRegisterOnce bool
	// FailSettle forces Settle to report a transport failure.
	FailSettle bool

	seq       int
	Registers []gateway.RegisterRequest
	Settles   []string
	Aborts    []string
	Cancels   []string
	Fulfils   []string
}

// New creates a test provider that authorises all payments.
func New() *Gateway {
	return &Gateway{}
}

// Identifier returns the registry id.
func (g *Gateway) Identifier() int { return Identifier }

// Name returns the provider name.
func (g *Gateway) Name() string { return "test" }

// CanMoto reports merchant-keyed phone orders are accepted.
func (g *Gateway) CanMoto() bool { return true }

// HasPreauth reports deferred capture support.
func (g *Gateway) HasPreauth() bool { return true }

// HasCancel reports cancellation support.
func (g *Gateway) HasCancel() bool { return true }

// HasFulfilment reports fulfilment notification support.
func (g *Gateway) HasFulfilment() bool { return true }

// Register opens a pending transaction.
func (g *Gateway) Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.RegisterResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRegister {
		return nil, gateway.ErrTransport
	}
	if g.FailRegisterOnce {
		g.FailRegisterOnce = false
		return nil, gateway.ErrTransport
	}
	g.seq++
	g.Registers = append(g.Registers, req)
	txn := fmt.Sprintf("test-%s-%d", req.OrderRef, g.seq)
	return &gateway.RegisterResult{
		TransactionID: txn,
		RedirectURL:   "/shop/test-payment/" + req.OrderRef,
		Preauth:       req.Preauth || g.Preauth,
		Details: map[string]interface{}{
			"provider":       "test",
			"transaction_id": txn,
		},
	}, nil
}

// ParseCallback fabricates the configured outcome for an order.
func (g *Gateway) ParseCallback(payload map[string]string) (*gateway.CallbackOutcome, error) {
	orderRef := payload["order_ref"]
	if orderRef == "" {
		return nil, gateway.ErrCallbackInvalid
	}
	g.mu.Lock()
	state := g.Outcome
	preauth := g.Preauth
	g.mu.Unlock()
	if state == "" {
		state = constants.TxnStateAuthorised
	}
	if s, ok := payload["state"]; ok && s != "" {
		state = s
	}
	return &gateway.CallbackOutcome{
		OrderRef:      orderRef,
		TransactionID: payload["transaction_id"],
		State:         state,
		Preauth:       preauth,
	}, nil
}

// Settle captures a preauthorised amount.
func (g *Gateway) Settle(ctx context.Context, transactionID string, amount models.Money) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailSettle {
		return gateway.ErrTransport
	}
	g.Settles = append(g.Settles, transactionID)
	return nil
}

// Abort releases a preauthorised amount.
func (g *Gateway) Abort(ctx context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Aborts = append(g.Aborts, transactionID)
	return nil
}

// Cancel voids a captured transaction.
func (g *Gateway) Cancel(ctx context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Cancels = append(g.Cancels, transactionID)
	return nil
}

// Fulfil notifies the provider that goods shipped.
func (g *Gateway) Fulfil(ctx context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Fulfils = append(g.Fulfils, transactionID)
	return nil
}
