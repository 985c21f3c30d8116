package public

import (
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/service"
	"github.com/cubaneorg/cubane-sub000/internal/session"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError maps a business error onto an API error response.
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var basketCommonErrorRules = []mappedHandlerError{
	{target: basket.ErrBasketFrozen, code: response.CodeConflict, msg: "basket is frozen"},
	{target: basket.ErrLineNotFound, code: response.CodeNotFound, msg: "basket line not found"},
	{target: basket.ErrProductUnavailable, code: response.CodeBadRequest, msg: "product is unavailable"},
	{target: basket.ErrInvalidVarietySelection, code: response.CodeBadRequest, msg: "invalid option selection"},
	{target: basket.ErrSKUNotFound, code: response.CodeBadRequest, msg: "no variant matches the selected options"},
	{target: basket.ErrQuantityExceedsCap, code: response.CodeBadRequest, msg: "quantity exceeds the per-line maximum"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "product not found"},
	{target: session.ErrLockTimeout, code: response.CodeTooManyRequests, msg: "basket is busy, try again"},
}

var basketVoucherErrorRules = []mappedHandlerError{
	{target: basket.ErrVoucherNotFound, code: response.CodeBadRequest, msg: "voucher code not recognised"},
	{target: basket.ErrVoucherExpired, code: response.CodeBadRequest, msg: "voucher is not currently valid"},
	{target: basket.ErrVoucherExhausted, code: response.CodeBadRequest, msg: "voucher has reached its usage limit"},
	{target: basket.ErrVoucherCountryMismatch, code: response.CodeBadRequest, msg: "voucher is not valid for the delivery country"},
	{target: basket.ErrVoucherCategoryMismatch, code: response.CodeBadRequest, msg: "voucher does not apply to these items"},
}

var basketSelectionErrorRules = []mappedHandlerError{
	{target: basket.ErrDeliveryOptionUnavailable, code: response.CodeBadRequest, msg: "delivery option is not available"},
	{target: basket.ErrFinanceOptionUnavailable, code: response.CodeBadRequest, msg: "finance option is not available"},
	{target: basket.ErrInvalidLoanDeposit, code: response.CodeBadRequest, msg: "loan deposit is out of range"},
	{target: service.ErrFinanceNotAvailable, code: response.CodeBadRequest, msg: "finance options are not enabled"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrEmptyBasket, code: response.CodeBadRequest, msg: "basket is empty"},
	{target: service.ErrAddressIncomplete, code: response.CodeBadRequest, msg: "address is incomplete"},
	{target: service.ErrCollectionOnlyRequired, code: response.CodeBadRequest, msg: "these items are collection only"},
	{target: gateway.ErrUnknownGateway, code: response.CodeInternal, msg: "no payment gateway available"},
	{target: session.ErrLockTimeout, code: response.CodeTooManyRequests, msg: "basket is busy, try again"},
}

var paymentErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrAlreadyRegistered, code: response.CodeConflict, msg: "payment already in progress"},
	{target: service.ErrIllegalStateTransition, code: response.CodeConflict, msg: "order does not take a payment"},
	{target: gateway.ErrRegistrationFailed, code: response.CodeBadRequest, msg: "payment could not be started"},
	{target: gateway.ErrUnknownGateway, code: response.CodeNotFound, msg: "unknown payment gateway"},
	{target: service.ErrCancelNotAllowed, code: response.CodeConflict, msg: "order cannot be cancelled"},
}

var callbackErrorRules = []mappedHandlerError{
	{target: gateway.ErrUnknownGateway, code: response.CodeNotFound, msg: "unknown payment gateway"},
	{target: gateway.ErrCallbackInvalid, code: response.CodeBadRequest, msg: "invalid callback"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrInconsistentCallback, code: response.CodeConflict, msg: "callback does not match order state"},
}

var accountErrorRules = []mappedHandlerError{
	{target: service.ErrCustomerExists, code: response.CodeConflict, msg: "email already registered"},
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, msg: "invalid email or password"},
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, msg: "invalid email address"},
}

func respondBasketError(c *gin.Context, err error) {
	rules := concatMappedHandlerErrors(basketCommonErrorRules, basketVoucherErrorRules, basketSelectionErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, "basket update failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	rules := concatMappedHandlerErrors(checkoutErrorRules, basketCommonErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, "checkout failed")
}

func respondPaymentError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentErrorRules, response.CodeInternal, "payment failed")
}

func respondCallbackError(c *gin.Context, err error) {
	respondWithMappedError(c, err, callbackErrorRules, response.CodeInternal, "payment callback failed")
}

func respondAccountError(c *gin.Context, err error) {
	respondWithMappedError(c, err, accountErrorRules, response.CodeInternal, "account operation failed")
}
