package public

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	callbackAckOK   = "success"
	callbackAckFail = "fail"
)

// PaymentCallback receives a gateway server-to-server notification. The
// gateway id is part of the URL; the provider verifies the signature and
// the coordinator re-validates the order before changing state. The
// plain-text acknowledgement is what hosted payment pages expect.
func (h *Handler) PaymentCallback(c *gin.Context) {
	log := requestLog(c)
	log.Infow("payment_callback_received",
		"method", c.Request.Method,
		"gateway", c.Param("gateway"),
		"client_ip", c.ClientIP(),
	)

	gatewayID, err := strconv.Atoi(strings.TrimSpace(c.Param("gateway")))
	if err != nil {
		log.Warnw("payment_callback_gateway_invalid", "gateway", c.Param("gateway"))
		c.String(http.StatusBadRequest, callbackAckFail)
		return
	}

	payload, err := collectCallbackPayload(c)
	if err != nil {
		log.Warnw("payment_callback_form_parse_failed", "error", err)
		c.String(http.StatusBadRequest, callbackAckFail)
		return
	}

	order, err := h.PaymentService.Confirm(gatewayID, payload)
	if err != nil {
		log.Warnw("payment_callback_rejected", "gateway_id", gatewayID, "error", err)
		c.String(http.StatusOK, callbackAckFail)
		return
	}
	log.Infow("payment_callback_applied",
		"gateway_id", gatewayID,
		"order_ref", order.OrderID,
		"status", order.Status,
	)
	c.String(http.StatusOK, callbackAckOK)
}

// GetPaymentGateways lists the configured gateways and their
// capabilities, for the checkout page.
func (h *Handler) GetPaymentGateways(c *gin.Context) {
	gateways := h.Gateways.List()
	views := make([]gin.H, 0, len(gateways))
	for _, gw := range gateways {
		views = append(views, gin.H{
			"id":             gw.Identifier(),
			"name":           gw.Name(),
			"has_preauth":    gw.HasPreauth(),
			"has_cancel":     gw.HasCancel(),
			"has_fulfilment": gw.HasFulfilment(),
		})
	}
	response.Success(c, gin.H{"gateways": views})
}

// collectCallbackPayload flattens form and query parameters into the
// single-valued map the gateway contract consumes.
func collectCallbackPayload(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, gateway.ErrCallbackInvalid
	}
	payload := make(map[string]string, len(c.Request.Form))
	for key, values := range c.Request.Form {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	return payload, nil
}
