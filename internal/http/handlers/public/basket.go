package public

import (
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/service"
	"github.com/cubaneorg/cubane-sub000/internal/session"

	"github.com/gin-gonic/gin"
)

func basketView(b *basket.Basket) gin.H {
	return gin.H{
		"basket": b,
		"totals": b.Totals(),
	}
}

// GetBasket returns the session basket with its computed totals.
func (h *Handler) GetBasket(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	b, err := h.BasketService.Get(c.Request.Context(), sid, session.DefaultPrefix)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// AddBasketItemRequest is one add-to-basket request.
type AddBasketItemRequest struct {
	ProductID uint              `json:"product_id"`
	Slug      string            `json:"slug"`
	Quantity  int               `json:"quantity" binding:"required"`
	OptionIDs []uint            `json:"option_ids"`
	Labels    map[uint]string   `json:"labels"`
	Custom    map[string]string `json:"custom"`
}

// AddBasketItem adds a product line to the basket.
func (h *Handler) AddBasketItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req AddBasketItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if req.ProductID == 0 && strings.TrimSpace(req.Slug) == "" {
		respondError(c, response.CodeBadRequest, "product_id or slug is required", nil)
		return
	}
	b, err := h.BasketService.AddItem(c.Request.Context(), sid, session.DefaultPrefix, service.AddItemInput{
		ProductID: req.ProductID,
		Slug:      strings.TrimSpace(req.Slug),
		Quantity:  req.Quantity,
		OptionIDs: req.OptionIDs,
		Labels:    req.Labels,
		Custom:    req.Custom,
	})
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// UpdateBasketItemRequest changes a line quantity.
type UpdateBasketItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateBasketItem changes the quantity of a basket line. Quantities
// below one remove the line.
func (h *Handler) UpdateBasketItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req UpdateBasketItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.UpdateQuantity(c.Request.Context(), sid, session.DefaultPrefix, c.Param("line_id"), req.Quantity)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// DeleteBasketItem removes a basket line.
func (h *Handler) DeleteBasketItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	b, err := h.BasketService.RemoveItem(c.Request.Context(), sid, session.DefaultPrefix, c.Param("line_id"))
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// AddressRequest carries a checkout address.
type AddressRequest struct {
	Title     string `json:"title"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Company   string `json:"company"`
	Line1     string `json:"line1" binding:"required"`
	Line2     string `json:"line2"`
	Line3     string `json:"line3"`
	City      string `json:"city" binding:"required"`
	County    string `json:"county"`
	State     string `json:"state"`
	Postcode  string `json:"postcode" binding:"required"`
	Country   string `json:"country" binding:"required"`
}

func (r AddressRequest) toAddress() models.Address {
	return models.Address{
		Title:     r.Title,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Company:   r.Company,
		Line1:     strings.TrimSpace(r.Line1),
		Line2:     r.Line2,
		Line3:     r.Line3,
		City:      strings.TrimSpace(r.City),
		County:    r.County,
		State:     r.State,
		Postcode:  strings.TrimSpace(r.Postcode),
		Country:   strings.ToUpper(strings.TrimSpace(r.Country)),
	}
}

// SetBillingAddress stores the billing address on the basket.
func (h *Handler) SetBillingAddress(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetBillingAddress(c.Request.Context(), sid, session.DefaultPrefix, req.toAddress())
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// SetDeliveryAddress stores the delivery address. Changing country may
// drop a delivery option or voucher that no longer applies.
func (h *Handler) SetDeliveryAddress(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetDeliveryAddress(c.Request.Context(), sid, session.DefaultPrefix, req.toAddress())
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// ClickAndCollectRequest toggles store collection.
type ClickAndCollectRequest struct {
	Enabled bool `json:"enabled"`
}

// SetClickAndCollect toggles click and collect for the basket.
func (h *Handler) SetClickAndCollect(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req ClickAndCollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetClickAndCollect(c.Request.Context(), sid, session.DefaultPrefix, req.Enabled)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// DeliveryOptionRequest selects a delivery option.
type DeliveryOptionRequest struct {
	OptionID uint `json:"option_id" binding:"required"`
}

// SetDeliveryOption selects a delivery option for the basket.
func (h *Handler) SetDeliveryOption(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req DeliveryOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetDeliveryOption(c.Request.Context(), sid, session.DefaultPrefix, req.OptionID)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// VoucherRequest applies a voucher code.
type VoucherRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyVoucher validates and attaches a voucher code.
func (h *Handler) ApplyVoucher(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.ApplyVoucher(c.Request.Context(), sid, session.DefaultPrefix, req.Code)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// RemoveVoucher detaches the voucher from the basket.
func (h *Handler) RemoveVoucher(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	b, err := h.BasketService.RemoveVoucher(c.Request.Context(), sid, session.DefaultPrefix)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// FinanceOptionRequest selects a finance option with a deposit.
type FinanceOptionRequest struct {
	OptionID       uint `json:"option_id" binding:"required"`
	DepositPercent int  `json:"deposit_percent"`
}

// ApplyFinanceOption attaches a finance option to the basket. The
// endpoint answers only when finance is switched on for the shop.
func (h *Handler) ApplyFinanceOption(c *gin.Context) {
	if !h.Config.Shop.LoanEnabled {
		respondBasketError(c, service.ErrFinanceNotAvailable)
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req FinanceOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.ApplyFinanceOption(c.Request.Context(), sid, session.DefaultPrefix, req.OptionID, req.DepositPercent)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// SurveyRequest stores the "how did you hear about us" answer.
type SurveyRequest struct {
	Survey string `json:"survey"`
}

// SetSurvey stores the survey answer on the basket.
func (h *Handler) SetSurvey(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req SurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetSurvey(c.Request.Context(), sid, session.DefaultPrefix, req.Survey)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}

// SpecialRequirementsRequest stores free-text delivery notes.
type SpecialRequirementsRequest struct {
	Text string `json:"text"`
}

// SetSpecialRequirements stores special requirement notes on the basket.
func (h *Handler) SetSpecialRequirements(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req SpecialRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	b, err := h.BasketService.SetSpecialRequirements(c.Request.Context(), sid, session.DefaultPrefix, req.Text)
	if err != nil {
		respondBasketError(c, err)
		return
	}
	response.Success(c, basketView(b))
}
