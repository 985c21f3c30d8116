package service

import "errors"

// Service-level errors. Basket-scoped errors live in the basket
// package; handlers map both families onto HTTP responses.
var (
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyBasket            = errors.New("basket is empty")
	ErrAddressIncomplete      = errors.New("address is incomplete")
	ErrCollectionOnlyRequired = errors.New("basket requires collection at the shop")
	ErrFinanceNotAvailable    = errors.New("finance options are not enabled")
	ErrAlreadyRegistered      = errors.New("payment already registered for this order")
	ErrIllegalStateTransition = errors.New("illegal order state transition")
	ErrApprovalNotWaiting     = errors.New("order is not awaiting approval")
	ErrInconsistentCallback   = errors.New("gateway callback inconsistent with order state")
	ErrCancelNotAllowed       = errors.New("order cannot be cancelled")
	ErrFulfilNotAllowed       = errors.New("order cannot be fulfilled")
	ErrOrderNotEditable       = errors.New("order is no longer editable")
	ErrCustomerExists         = errors.New("customer email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")

	ErrEmailServiceDisabled      = errors.New("email service is disabled")
	ErrEmailServiceNotConfigured = errors.New("email service is not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("recipient address rejected by mail server")
)
