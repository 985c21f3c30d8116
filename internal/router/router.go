package router

import (
	"fmt"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/cache"
	"github.com/cubaneorg/cubane-sub000/internal/config"
	publichandlers "github.com/cubaneorg/cubane-sub000/internal/http/handlers/public"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the storefront routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "shop"
	}
	redisClient := cache.Client()
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		Message:       "too many checkout attempts",
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "too many login attempts",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	shop := r.Group("/shop")
	shop.Use(SessionMiddleware())
	shop.Use(CustomerAuthMiddleware(c.CustomerService, false))
	{
		shop.GET("/products", publicHandler.GetProducts)
		shop.GET("/products/:slug", publicHandler.GetProductBySlug)
		shop.GET("/categories", publicHandler.GetCategories)
		shop.GET("/delivery-options", publicHandler.GetDeliveryOptions)
		shop.GET("/payment-gateways", publicHandler.GetPaymentGateways)

		basket := shop.Group("/basket")
		{
			basket.GET("", publicHandler.GetBasket)
			basket.POST("/items", publicHandler.AddBasketItem)
			basket.PUT("/items/:line_id", publicHandler.UpdateBasketItem)
			basket.DELETE("/items/:line_id", publicHandler.DeleteBasketItem)
			basket.PUT("/billing-address", publicHandler.SetBillingAddress)
			basket.PUT("/delivery-address", publicHandler.SetDeliveryAddress)
			basket.PUT("/click-and-collect", publicHandler.SetClickAndCollect)
			basket.PUT("/delivery-option", publicHandler.SetDeliveryOption)
			basket.POST("/voucher", publicHandler.ApplyVoucher)
			basket.DELETE("/voucher", publicHandler.RemoveVoucher)
			basket.POST("/finance-option", publicHandler.ApplyFinanceOption)
			basket.PUT("/survey", publicHandler.SetSurvey)
			basket.PUT("/special-requirements", publicHandler.SetSpecialRequirements)
		}

		shop.POST("/checkout", RateLimitMiddleware(redisClient, checkoutRule, KeyBySession), publicHandler.Checkout)
		shop.POST("/order/:secret_id/pay", RateLimitMiddleware(redisClient, checkoutRule, KeyBySession), publicHandler.PayOrder)
		shop.POST("/order/:secret_id/cancel", publicHandler.CancelOrder)
		shop.GET("/order/:secret_id", publicHandler.GetOrderBySecretID)

		account := shop.Group("/account")
		{
			account.POST("/register", publicHandler.RegisterCustomer)
			account.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.LoginCustomer)

			authed := account.Group("")
			authed.Use(CustomerAuthMiddleware(c.CustomerService, true))
			{
				authed.GET("/me", publicHandler.GetCurrentCustomer)
				authed.GET("/orders", publicHandler.ListMyOrders)
			}
		}
	}

	// Gateway notifications carry no session or token.
	r.POST("/shop/payment/callback/:gateway", publicHandler.PaymentCallback)
	r.GET("/shop/payment/callback/:gateway", publicHandler.PaymentCallback)

	// The status page URL customers get by email.
	r.GET("/order/:secret_id", SessionMiddleware(), publicHandler.GetOrderBySecretID)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
