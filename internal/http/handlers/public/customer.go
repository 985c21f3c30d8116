package public

import (
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest creates a customer account.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Telephone string `json:"telephone"`
}

// RegisterCustomer creates a customer account and returns a token.
func (h *Handler) RegisterCustomer(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	customer, err := h.CustomerService.Register(service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Telephone: strings.TrimSpace(req.Telephone),
	})
	if err != nil {
		respondAccountError(c, err)
		return
	}
	_, token, expiresAt, err := h.CustomerService.Login(req.Email, req.Password)
	if err != nil {
		respondAccountError(c, err)
		return
	}
	response.Success(c, gin.H{
		"customer":   customer,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// LoginRequest authenticates a customer.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginCustomer authenticates a customer and returns a token.
func (h *Handler) LoginCustomer(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	customer, token, expiresAt, err := h.CustomerService.Login(req.Email, req.Password)
	if err != nil {
		respondAccountError(c, err)
		return
	}
	response.Success(c, gin.H{
		"customer":   customer,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// GetCurrentCustomer returns the authenticated customer's profile.
func (h *Handler) GetCurrentCustomer(c *gin.Context) {
	cid, ok := requireCustomerID(c)
	if !ok {
		return
	}
	customer, err := h.CustomerService.GetByID(cid)
	if err != nil {
		respondError(c, response.CodeInternal, "profile fetch failed", err)
		return
	}
	if customer == nil {
		response.Unauthorized(c, "account no longer exists")
		return
	}
	response.Success(c, gin.H{"customer": customer})
}
