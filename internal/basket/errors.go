package basket

import "errors"

// Domain errors raised by basket mutations. Handlers map these onto
// response codes; services wrap them with context where useful.
var (
	ErrBasketFrozen              = errors.New("basket is frozen")
	ErrLineNotFound              = errors.New("basket line not found")
	ErrProductUnavailable        = errors.New("product is not available for purchase")
	ErrInvalidVarietySelection   = errors.New("variety selection is invalid for this product")
	ErrSKUNotFound               = errors.New("no SKU matches the selected options")
	ErrQuantityExceedsCap        = errors.New("quantity exceeds the maximum allowed")
	ErrVoucherNotFound           = errors.New("voucher not found")
	ErrVoucherExpired            = errors.New("voucher is outside its validity window")
	ErrVoucherExhausted          = errors.New("voucher has reached its usage limit")
	ErrVoucherCountryMismatch    = errors.New("voucher does not apply to the delivery country")
	ErrVoucherCategoryMismatch   = errors.New("voucher does not apply to any product in the basket")
	ErrDeliveryOptionUnavailable = errors.New("delivery option is not available")
	ErrFinanceOptionUnavailable  = errors.New("finance option is not available for this basket")
	ErrInvalidLoanDeposit        = errors.New("loan deposit percentage is out of range")
)
