package gateway

import (
	"context"
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/models"
)

var (
	ErrRegistrationFailed = errors.New("gateway registration failed")
	ErrDeclined           = errors.New("gateway declined the payment")
	ErrTransport          = errors.New("gateway transport failure")
	ErrCapability         = errors.New("gateway does not support this operation")
	ErrCallbackInvalid    = errors.New("gateway callback payload invalid")
)

// RegisterRequest carries everything a provider needs to open a
// transaction. IdempotencyKey is the public order reference so a retry
// after a transport failure cannot double-charge.
type RegisterRequest struct {
	OrderRef       string
	IdempotencyKey string
	Amount         models.Money
	Currency       string
	Description    string
	Preauth        bool
	Moto           bool
	CustomerEmail  string
	ReturnURL      string
	NotifyURL      string
	ClientIP       string
}

// RegisterResult is the provider's pending transaction.
type RegisterResult struct {
	TransactionID string
	RedirectURL   string
	Preauth       bool
	Details       map[string]interface{}
}

// CallbackOutcome is the parsed result of an asynchronous provider
// notification.
type CallbackOutcome struct {
	OrderRef      string
	TransactionID string
	State         string // constants.TxnState*
	Preauth       bool
	Details       map[string]interface{}
}

// Gateway is the provider contract. Capability coverage is uneven
// across providers; callers query the has/can methods before invoking
// the corresponding operation.
type Gateway interface {
	Identifier() int
	Name() string

	CanMoto() bool
	HasPreauth() bool
	HasCancel() bool
	HasFulfilment() bool

	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	ParseCallback(payload map[string]string) (*CallbackOutcome, error)
	Settle(ctx context.Context, transactionID string, amount models.Money) error
	Abort(ctx context.Context, transactionID string) error
	Cancel(ctx context.Context, transactionID string) error
	Fulfil(ctx context.Context, transactionID string) error
}
