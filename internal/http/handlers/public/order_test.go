package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/gateway/testgateway"
	"github.com/cubaneorg/cubane-sub000/internal/http/response"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/provider"
	"github.com/cubaneorg/cubane-sub000/internal/repository"
	"github.com/cubaneorg/cubane-sub000/internal/service"
	"github.com/cubaneorg/cubane-sub000/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type handlerTestEnv struct {
	db      *gorm.DB
	gw      *testgateway.Gateway
	handler *Handler
}

func handlerShopConfig() config.ShopConfig {
	return config.ShopConfig{
		MaxQuantity:      100,
		Currency:         "GBP",
		DefaultCountry:   "GB",
		ApprovalTTLHours: 48,
		OrderID:          config.OrderIDConfig{Format: constants.OrderIDFormatNumeric},
	}
}

func setupHandlerTest(t *testing.T, shop config.ShopConfig) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Variety{},
		&models.VarietyOption{},
		&models.VarietyAssignment{},
		&models.Product{},
		&models.RelatedProduct{},
		&models.ProductSKU{},
		&models.DeliveryOption{},
		&models.Voucher{},
		&models.FinanceOption{},
		&models.Customer{},
		&models.Order{},
		&models.OrderEvent{},
		&models.OrderCounter{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	gw := testgateway.New()
	registry := gateway.NewRegistry()
	registry.Add(gw)

	productRepo := repository.NewProductRepository(db)
	skuRepo := repository.NewProductSKURepository(db)
	deliveryRepo := repository.NewDeliveryOptionRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	financeRepo := repository.NewFinanceOptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	store := session.NewMemoryStore(shop.MaxQuantity, shop.DefaultCountry)
	adjuster := service.NewStockAdjuster(productRepo, skuRepo, orderRepo, nil, shop.MaxQuantity, shop.DefaultCountry)

	container := &provider.Container{
		Config:             &config.Config{Shop: shop},
		SessionStore:       store,
		Gateways:           registry,
		ProductRepo:        productRepo,
		ProductSKURepo:     skuRepo,
		DeliveryOptionRepo: deliveryRepo,
		VoucherRepo:        voucherRepo,
		FinanceOptionRepo:  financeRepo,
		OrderRepo:          orderRepo,
		CustomerRepo:       customerRepo,
		BasketService:      service.NewBasketService(store, productRepo, deliveryRepo, voucherRepo, financeRepo),
		StockAdjuster:      adjuster,
		OrderService:       service.NewOrderService(orderRepo, customerRepo, adjuster, registry, nil, shop),
		PaymentService:     service.NewPaymentService(orderRepo, registry, adjuster, nil, shop),
	}

	return &handlerTestEnv{db: db, gw: gw, handler: New(container)}
}

func createHandlerProduct(t *testing.T, db *gorm.DB, slug, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:        slug,
		Title:       slug,
		CategoryID:  1,
		Price:       models.Money{Decimal: decimal.RequireFromString(price)},
		StockPolicy: constants.StockPolicyAvailable,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func handlerAddress() models.Address {
	return models.Address{
		FirstName: "Jane",
		LastName:  "Doe",
		Line1:     "1 High Street",
		City:      "London",
		Postcode:  "N1 1AA",
		Country:   "GB",
	}
}

// invokeJSON runs a handler against a JSON body, standing in for the
// session middleware, and decodes the response envelope.
func invokeJSON(t *testing.T, fn gin.HandlerFunc, sid, body string) response.Response {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("session_id", sid)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	fn(c)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response failed: %v (%s)", err, w.Body.String())
	}
	return envelope
}

func TestCheckoutFailureLeavesBasketUsable(t *testing.T) {
	env := setupHandlerTest(t, handlerShopConfig())
	product := createHandlerProduct(t, env.db, "armchair", "250.00")
	ctx := context.Background()
	const sid = "sess-checkout"

	_, err := env.handler.BasketService.AddItem(ctx, sid, session.DefaultPrefix, service.AddItemInput{
		ProductID: product.ID,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	// No addresses yet: checkout must refuse without any side effects.
	envelope := invokeJSON(t, env.handler.Checkout, sid, `{"email":"jane@example.com"}`)
	if envelope.StatusCode != response.CodeBadRequest {
		t.Fatalf("expected bad request envelope, got %d %q", envelope.StatusCode, envelope.Msg)
	}
	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order after failed checkout, got %d", count)
	}

	// The customer corrects the addresses on the same basket.
	if _, err := env.handler.BasketService.SetBillingAddress(ctx, sid, session.DefaultPrefix, handlerAddress()); err != nil {
		t.Fatalf("basket rejected mutation after failed checkout: %v", err)
	}
	if _, err := env.handler.BasketService.SetDeliveryAddress(ctx, sid, session.DefaultPrefix, handlerAddress()); err != nil {
		t.Fatalf("set delivery address failed: %v", err)
	}

	envelope = invokeJSON(t, env.handler.Checkout, sid, `{"email":"jane@example.com"}`)
	if envelope.StatusCode != response.CodeOK {
		t.Fatalf("expected checkout to succeed, got %d %q", envelope.StatusCode, envelope.Msg)
	}
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one order, got %d", count)
	}

	// The session basket is retired only after the order exists.
	b, err := env.handler.BasketService.Get(ctx, sid, session.DefaultPrefix)
	if err != nil {
		t.Fatalf("load basket failed: %v", err)
	}
	if !b.IsEmpty() {
		t.Errorf("expected session basket cleared after checkout")
	}
}

func TestApplyFinanceOptionRequiresLoanEnabled(t *testing.T) {
	env := setupHandlerTest(t, handlerShopConfig())
	option := &models.FinanceOption{Code: "V12", Title: "12 months interest free", Enabled: true}
	if err := env.db.Create(option).Error; err != nil {
		t.Fatalf("create finance option failed: %v", err)
	}
	product := createHandlerProduct(t, env.db, "sofa", "800.00")
	ctx := context.Background()
	const sid = "sess-finance"

	_, err := env.handler.BasketService.AddItem(ctx, sid, session.DefaultPrefix, service.AddItemInput{
		ProductID: product.ID,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	body := fmt.Sprintf(`{"option_id":%d,"deposit_percent":20}`, option.ID)
	envelope := invokeJSON(t, env.handler.ApplyFinanceOption, sid, body)
	if envelope.StatusCode != response.CodeBadRequest {
		t.Fatalf("expected finance refused while disabled, got %d %q", envelope.StatusCode, envelope.Msg)
	}
	b, err := env.handler.BasketService.Get(ctx, sid, session.DefaultPrefix)
	if err != nil {
		t.Fatalf("load basket failed: %v", err)
	}
	if b.FinanceOptionID != nil {
		t.Errorf("expected no finance option on the basket while disabled")
	}

	env.handler.Config.Shop.LoanEnabled = true
	envelope = invokeJSON(t, env.handler.ApplyFinanceOption, sid, body)
	if envelope.StatusCode != response.CodeOK {
		t.Fatalf("expected finance applied when enabled, got %d %q", envelope.StatusCode, envelope.Msg)
	}
	b, err = env.handler.BasketService.Get(ctx, sid, session.DefaultPrefix)
	if err != nil {
		t.Fatalf("load basket failed: %v", err)
	}
	if b.FinanceOptionID == nil || *b.FinanceOptionID != option.ID {
		t.Errorf("expected finance option %d attached, got %v", option.ID, b.FinanceOptionID)
	}
}
