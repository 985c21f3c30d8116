package public

import (
	"strconv"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/service"
	"github.com/cubaneorg/cubane-sub000/internal/session"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest carries the contact details for placing an order.
type CheckoutRequest struct {
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
}

// Checkout snapshots the session basket into an order. Invoice and
// zero-amount baskets are placed immediately; everything else starts
// payment registration and returns the gateway redirect.
func (h *Handler) Checkout(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	var customer *models.Customer
	if cid, authed := customerID(c); authed {
		found, err := h.CustomerService.GetByID(cid)
		if err != nil {
			respondError(c, response.CodeInternal, "checkout failed", err)
			return
		}
		customer = found
	}
	email := strings.TrimSpace(req.Email)
	if email == "" && customer != nil {
		email = customer.Email
	}
	if email == "" {
		respondError(c, response.CodeBadRequest, "email is required", nil)
		return
	}

	b, err := h.BasketService.Get(c.Request.Context(), sid, session.DefaultPrefix)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	order, err := h.OrderService.FromBasket(service.FromBasketInput{
		Basket:    b,
		Customer:  customer,
		Email:     email,
		Telephone: strings.TrimSpace(req.Telephone),
	})
	if err != nil {
		// The session basket is untouched so the customer can correct
		// whatever failed and check out again.
		respondCheckoutError(c, err)
		return
	}

	// The order is stored; only now does the originating basket freeze.
	if err := h.BasketService.Freeze(c.Request.Context(), sid, session.DefaultPrefix); err != nil {
		requestLog(c).Warnw("checkout_basket_freeze_failed", "session_id", sid, "error", err)
	}
	if err := h.BasketService.Clear(c.Request.Context(), sid, session.DefaultPrefix); err != nil {
		requestLog(c).Warnw("checkout_basket_clear_failed", "session_id", sid, "error", err)
	}

	// Invoice and zero-amount orders skip the gateway entirely.
	if order.Invoice || order.Total.IsZero() {
		placed, err := h.OrderService.Place(order.ID)
		if err != nil {
			respondCheckoutError(c, err)
			return
		}
		response.Success(c, gin.H{
			"order":     orderView(placed),
			"secret_id": placed.SecretID,
		})
		return
	}

	result, err := h.PaymentService.Register(c.Request.Context(), order.ID, c.ClientIP())
	if err != nil {
		// The order is parked in a payment failure state; hand back the
		// secret id so the customer can retry.
		respondError(c, response.CodeBadRequest, "payment could not be started", err)
		return
	}
	response.Success(c, gin.H{
		"order":        orderView(result.Order),
		"secret_id":    result.Order.SecretID,
		"redirect_url": result.RedirectURL,
	})
}

// orderView shapes an order for API responses: the stored snapshot plus
// the restored basket lines and the remaining balance.
func (h *Handler) orderLines(order *models.Order) interface{} {
	b, err := h.OrderService.RestoreBasket(order)
	if err != nil || b == nil {
		return nil
	}
	return b.Items
}

func orderView(order *models.Order) gin.H {
	return gin.H{
		"order":             order,
		"remaining_balance": order.RemainingBalance(),
	}
}

// GetOrderBySecretID returns the order status page payload. The secret
// id in the URL is the only credential.
func (h *Handler) GetOrderBySecretID(c *gin.Context) {
	order, ok := h.lookupOrder(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"order":             order,
		"lines":             h.orderLines(order),
		"remaining_balance": order.RemainingBalance(),
	})
}

// PayOrder restarts payment registration for an order that is not yet
// paid, such as after a declined or errored attempt.
func (h *Handler) PayOrder(c *gin.Context) {
	order, ok := h.lookupOrder(c)
	if !ok {
		return
	}
	result, err := h.PaymentService.Register(c.Request.Context(), order.ID, c.ClientIP())
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, gin.H{
		"order":        orderView(result.Order),
		"redirect_url": result.RedirectURL,
	})
}

// CancelOrder abandons an order stuck awaiting payment.
func (h *Handler) CancelOrder(c *gin.Context) {
	order, ok := h.lookupOrder(c)
	if !ok {
		return
	}
	cancelled, err := h.PaymentService.CancelAwaiting(order.ID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	response.Success(c, orderView(cancelled))
}

// ListMyOrders pages the authenticated customer's orders, newest first.
func (h *Handler) ListMyOrders(c *gin.Context) {
	cid, ok := requireCustomerID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListForCustomer(cid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "order listing failed", err)
		return
	}
	totalPage := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPage++
	}
	response.SuccessWithPage(c, gin.H{"orders": orders}, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

func (h *Handler) lookupOrder(c *gin.Context) (*models.Order, bool) {
	secret := strings.TrimSpace(c.Param("secret_id"))
	if secret == "" {
		respondError(c, response.CodeBadRequest, "missing order reference", nil)
		return nil, false
	}
	order, err := h.OrderService.GetBySecretID(secret)
	if err != nil {
		respondPaymentError(c, err)
		return nil, false
	}
	return order, true
}
