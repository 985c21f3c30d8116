package service

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/gateway/testgateway"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type checkoutTestEnv struct {
	db          *gorm.DB
	gw          *testgateway.Gateway
	registry    *gateway.Registry
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	skuRepo     repository.ProductSKURepository
	adjuster    *StockAdjuster
	orders      *OrderService
	payments    *PaymentService
}

func defaultShopConfig() config.ShopConfig {
	return config.ShopConfig{
		MaxQuantity:      100,
		Currency:         "GBP",
		DefaultCountry:   "GB",
		ApprovalTTLHours: 48,
		OrderID:          config.OrderIDConfig{Format: constants.OrderIDFormatNumeric},
	}
}

func setupCheckoutTest(t *testing.T, shopCfg config.ShopConfig) *checkoutTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	skuRepo := repository.NewProductSKURepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	adjuster := NewStockAdjuster(productRepo, skuRepo, orderRepo, nil, shopCfg.MaxQuantity, shopCfg.DefaultCountry)

	return &checkoutTestEnv{
		db:          db,
		gw:          gw,
		registry:    registry,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		skuRepo:     skuRepo,
		adjuster:    adjuster,
		orders:      NewOrderService(orderRepo, customerRepo, adjuster, registry, nil, shopCfg),
		payments:    NewPaymentService(orderRepo, registry, adjuster, nil, shopCfg),
	}
}

func createCheckoutProduct(t *testing.T, db *gorm.DB, slug, price, stockPolicy string, stockLevel int) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:        slug,
		Title:       slug,
		CategoryID:  1,
		Price:       models.Money{Decimal: decimal.RequireFromString(price)},
		StockPolicy: stockPolicy,
		StockLevel:  stockLevel,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func checkoutAddress() models.Address {
	return models.Address{
		FirstName: "Jane",
		LastName:  "Doe",
		Line1:     "1 High Street",
		City:      "London",
		Postcode:  "N1 1AA",
		Country:   "GB",
	}
}

// checkoutBasket builds a ready-to-place basket over the given product.
func checkoutBasket(t *testing.T, product *models.Product, quantity int) *basket.Basket {
	t.Helper()
	b := basket.New(100, "GB")
	if _, err := b.Add(product, quantity, nil, nil, nil); err != nil {
		t.Fatalf("basket add failed: %v", err)
	}
	if err := b.SetBillingAddress(checkoutAddress()); err != nil {
		t.Fatalf("set billing failed: %v", err)
	}
	if err := b.SetDeliveryAddress(checkoutAddress()); err != nil {
		t.Fatalf("set delivery failed: %v", err)
	}
	return b
}

// manualLine fabricates a basket line without going through the catalog
// validation, for exercising stock adjustment against SKU lines.
func manualLine(productID uint, skuID *uint, quantity int, price string) *basket.Item {
	return &basket.Item{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		SKUID:     skuID,
		UnitPrice: models.Money{Decimal: decimal.RequireFromString(price)},
	}
}

func placeOrder(t *testing.T, env *checkoutTestEnv, b *basket.Basket) *models.Order {
	t.Helper()
	order, err := env.orders.FromBasket(FromBasketInput{Basket: b, Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("from basket failed: %v", err)
	}
	return order
}

func TestFromBasketSnapshotsTotalsAndAddresses(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	b := checkoutBasket(t, product, 2)

	order := placeOrder(t, env, b)

	if order.Status != constants.OrderStatusCheckout {
		t.Errorf("expected status checkout, got %s", order.Status)
	}
	if order.ApprovalStatus != constants.ApprovalStatusNone {
		t.Errorf("expected approval status none, got %s", order.ApprovalStatus)
	}
	if order.SubTotal.String() != "500.00" || order.Total.String() != "500.00" {
		t.Errorf("totals not snapshotted: sub=%s total=%s", order.SubTotal, order.Total)
	}
	if order.FullName != "Jane Doe" || order.Billing.City != "London" {
		t.Errorf("billing snapshot wrong: %+v", order.Billing)
	}
	if order.Email != "jane@example.com" || order.GuestEmail != "jane@example.com" {
		t.Errorf("guest email not recorded: %q / %q", order.Email, order.GuestEmail)
	}
	if order.BasketJSON == "" {
		t.Errorf("expected serialised basket stored")
	}
	if order.GatewayID != testgateway.Identifier {
		t.Errorf("expected test gateway selected, got %d", order.GatewayID)
	}

	restored, err := env.orders.RestoreBasket(order)
	if err != nil {
		t.Fatalf("restore basket failed: %v", err)
	}
	if len(restored.Items) != 1 || restored.Items[0].Quantity != 2 {
		t.Errorf("stored basket does not match: %+v", restored.Items)
	}
}

func TestFromBasketValidation(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	if _, err := env.orders.FromBasket(FromBasketInput{Basket: basket.New(100, "GB"), Email: "a@b.c"}); !errors.Is(err, ErrEmptyBasket) {
		t.Errorf("expected ErrEmptyBasket, got %v", err)
	}

	b := basket.New(100, "GB")
	if _, err := b.Add(product, 1, nil, nil, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := env.orders.FromBasket(FromBasketInput{Basket: b, Email: "a@b.c"}); !errors.Is(err, ErrAddressIncomplete) {
		t.Errorf("expected ErrAddressIncomplete, got %v", err)
	}
}

func TestFromBasketClickAndCollectSkipsDeliveryAddress(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	b := basket.New(100, "GB")
	if _, err := b.Add(product, 1, nil, nil, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.SetBillingAddress(checkoutAddress()); err != nil {
		t.Fatalf("set billing failed: %v", err)
	}
	if err := b.SetClickAndCollect(true); err != nil {
		t.Fatalf("set click and collect failed: %v", err)
	}

	order := placeOrder(t, env, b)
	if !order.ClickAndCollect {
		t.Errorf("expected click and collect recorded")
	}
}

func TestFromBasketUSStateFoldedIntoCounty(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	b := checkoutBasket(t, product, 1)
	address := checkoutAddress()
	address.Country = "US"
	address.State = "NY"
	if err := b.SetBillingAddress(address); err != nil {
		t.Fatalf("set billing failed: %v", err)
	}

	order := placeOrder(t, env, b)
	if order.Billing.County != "NY" || order.Billing.State != "" {
		t.Errorf("expected state folded into county, got county=%q state=%q", order.Billing.County, order.Billing.State)
	}
}

func TestFromBasketInvoiceAndZeroAmountStatuses(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	free := createCheckoutProduct(t, env.db, "freebie", "0.00", constants.StockPolicyAvailable, 0)

	invoiceBasket := checkoutBasket(t, product, 1)
	invoiceBasket.Invoice = true
	invoiceOrder := placeOrder(t, env, invoiceBasket)
	if invoiceOrder.Status != constants.OrderStatusCheckoutInvoice {
		t.Errorf("expected checkout_invoice, got %s", invoiceOrder.Status)
	}

	zeroOrder := placeOrder(t, env, checkoutBasket(t, free, 1))
	if zeroOrder.Status != constants.OrderStatusCheckoutZeroAmount {
		t.Errorf("expected checkout_zero_amount, got %s", zeroOrder.Status)
	}
}

func TestPlaceInvoiceOrderAdjustsStock(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 10)

	b := checkoutBasket(t, product, 3)
	b.Invoice = true
	order := placeOrder(t, env, b)

	placed, err := env.orders.Place(order.ID)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if placed.Status != constants.OrderStatusPlacedInvoice {
		t.Errorf("expected placed_invoice, got %s", placed.Status)
	}

	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.StockLevel != 7 {
		t.Errorf("expected stock 7 after placement, got %d", reloaded.StockLevel)
	}

	// Placing twice is an illegal transition.
	if _, err := env.orders.Place(order.ID); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition on second place, got %v", err)
	}
}

func TestAdvanceFollowsShippingFork(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	b := checkoutBasket(t, product, 1)
	b.Invoice = true
	order := placeOrder(t, env, b)
	if _, err := env.orders.Place(order.ID); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	steps := []string{
		constants.OrderStatusProcessing,
		constants.OrderStatusPartiallyShipped,
		constants.OrderStatusShipped,
	}
	for _, target := range steps {
		advanced, err := env.orders.Advance(order.ID, target)
		if err != nil {
			t.Fatalf("advance to %s failed: %v", target, err)
		}
		if advanced.Status != target {
			t.Errorf("expected %s, got %s", target, advanced.Status)
		}
	}

	// Shipped is terminal.
	if _, err := env.orders.Advance(order.ID, constants.OrderStatusProcessing); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition from shipped, got %v", err)
	}
}

func TestAdvanceClickAndCollectFork(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	b := basket.New(100, "GB")
	if _, err := b.Add(product, 1, nil, nil, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.SetBillingAddress(checkoutAddress()); err != nil {
		t.Fatalf("set billing failed: %v", err)
	}
	if err := b.SetClickAndCollect(true); err != nil {
		t.Fatalf("set click and collect failed: %v", err)
	}
	b.Invoice = true

	order := placeOrder(t, env, b)
	if _, err := env.orders.Place(order.ID); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if _, err := env.orders.Advance(order.ID, constants.OrderStatusProcessing); err != nil {
		t.Fatalf("advance to processing failed: %v", err)
	}

	// A collection order never ships.
	if _, err := env.orders.Advance(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition for shipped, got %v", err)
	}
	if _, err := env.orders.Advance(order.ID, constants.OrderStatusReadyToCollect); err != nil {
		t.Fatalf("advance to ready_to_collect failed: %v", err)
	}
	advanced, err := env.orders.Advance(order.ID, constants.OrderStatusCollected)
	if err != nil {
		t.Fatalf("advance to collected failed: %v", err)
	}
	if advanced.Status != constants.OrderStatusCollected {
		t.Errorf("expected collected, got %s", advanced.Status)
	}
}

func TestAdvanceRejectsIllegalJump(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	// Straight from checkout to processing skips payment entirely.
	if _, err := env.orders.Advance(order.ID, constants.OrderStatusProcessing); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition, got %v", err)
	}
}

func TestRejectedApprovalBlocksTransitions(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	b := checkoutBasket(t, product, 1)
	b.Invoice = true
	order := placeOrder(t, env, b)
	if _, err := env.orders.Place(order.ID); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	err := env.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"approval_status": constants.ApprovalStatusRejected,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if _, err := env.orders.Advance(order.ID, constants.OrderStatusProcessing); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition for rejected order, got %v", err)
	}
}

func TestCreateEmptyCustomerNotPresent(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())

	order, err := env.orders.CreateEmptyCustomerNotPresent()
	if err != nil {
		t.Fatalf("create empty failed: %v", err)
	}
	if order.Status != constants.OrderStatusNewOrder {
		t.Errorf("expected new_order, got %s", order.Status)
	}
	if order.OrderID == "" || order.SecretID == "" {
		t.Errorf("expected references generated")
	}
	if !order.Editable() {
		t.Errorf("expected backend order editable")
	}
}

func TestUpdateFromBasketOnlyWhileEditable(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	order, err := env.orders.CreateEmptyCustomerNotPresent()
	if err != nil {
		t.Fatalf("create empty failed: %v", err)
	}

	b := checkoutBasket(t, product, 2)
	updated, err := env.orders.UpdateFromBasket(order.ID, b)
	if err != nil {
		t.Fatalf("update from basket failed: %v", err)
	}
	if updated.Total.String() != "500.00" {
		t.Errorf("expected total 500.00, got %s", updated.Total)
	}

	// A customer checkout order is never editable.
	placed := placeOrder(t, env, checkoutBasket(t, product, 1))
	if _, err := env.orders.UpdateFromBasket(placed.ID, b); !errors.Is(err, ErrOrderNotEditable) {
		t.Errorf("expected ErrOrderNotEditable, got %v", err)
	}
}

func TestSecretIDsAreUniqueAndOpaque(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		order := placeOrder(t, env, checkoutBasket(t, product, 1))
		if len(order.SecretID) != 22 {
			t.Errorf("expected 22-char token, got %q", order.SecretID)
		}
		if seen[order.SecretID] {
			t.Fatalf("secret id collision: %s", order.SecretID)
		}
		seen[order.SecretID] = true

		found, err := env.orders.GetBySecretID(order.SecretID)
		if err != nil {
			t.Fatalf("get by secret failed: %v", err)
		}
		if found.ID != order.ID {
			t.Errorf("secret lookup returned wrong order")
		}
	}

	if _, err := env.orders.GetBySecretID("no-such-token"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRefNumericFormat(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	first := placeOrder(t, env, checkoutBasket(t, product, 1))
	second := placeOrder(t, env, checkoutBasket(t, product, 1))

	pattern := regexp.MustCompile(`^` + time.Now().Format("0601") + `\d{5}$`)
	if !pattern.MatchString(first.OrderID) {
		t.Errorf("numeric ref %q does not match YYMM+counter", first.OrderID)
	}
	if first.OrderID >= second.OrderID {
		t.Errorf("expected monotonic refs, got %s then %s", first.OrderID, second.OrderID)
	}
}

func TestOrderRefSeqFormatWithPrefixSuffix(t *testing.T) {
	cfg := defaultShopConfig()
	cfg.OrderID = config.OrderIDConfig{Format: constants.OrderIDFormatSeq, Prefix: "WEB-", Suffix: "-UK"}
	env := setupCheckoutTest(t, cfg)
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	first := placeOrder(t, env, checkoutBasket(t, product, 1))
	second := placeOrder(t, env, checkoutBasket(t, product, 1))

	if first.OrderID != "WEB-1-UK" || second.OrderID != "WEB-2-UK" {
		t.Errorf("unexpected seq refs: %s, %s", first.OrderID, second.OrderID)
	}
}

func TestOrderRefAlphaFormat(t *testing.T) {
	cfg := defaultShopConfig()
	cfg.OrderID = config.OrderIDConfig{Format: constants.OrderIDFormatAlpha}
	env := setupCheckoutTest(t, cfg)
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	if matched := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{8}$`).MatchString(order.OrderID); !matched {
		t.Errorf("alpha ref %q outside the unambiguous alphabet", order.OrderID)
	}
}

func TestSetTrackingValidatesProvider(t *testing.T) {
	cfg := defaultShopConfig()
	cfg.Tracking = []config.TrackingProvider{{Name: "dpd", URL: "https://track.example/%s"}}
	env := setupCheckoutTest(t, cfg)
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	if _, err := env.orders.SetTracking(order.ID, "carrier-nobody-knows", "X1"); err == nil {
		t.Errorf("expected error for unknown provider")
	}

	updated, err := env.orders.SetTracking(order.ID, "dpd", "X1")
	if err != nil {
		t.Fatalf("set tracking failed: %v", err)
	}
	if updated.TrackingProvider != "dpd" || updated.TrackingCode != "X1" {
		t.Errorf("tracking not stored: %+v", updated)
	}
}

func TestListForCustomer(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)

	customer := &models.Customer{Email: "jane@example.com", PasswordHash: "hash"}
	if err := env.db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	b := checkoutBasket(t, product, 1)
	if _, err := env.orders.FromBasket(FromBasketInput{Basket: b, Customer: customer, Email: "jane@example.com"}); err != nil {
		t.Fatalf("from basket failed: %v", err)
	}
	// A guest order for the same email stays invisible to the account.
	placeOrder(t, env, checkoutBasket(t, product, 1))

	orders, total, err := env.orders.ListForCustomer(customer.ID, 1, 20)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Errorf("expected 1 customer order, got %d (%d rows)", total, len(orders))
	}
	if orders[0].CustomerID == nil || *orders[0].CustomerID != customer.ID {
		t.Errorf("order not linked to customer")
	}
}

func TestFromBasketCollectionOnlyRequiresClickAndCollect(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := &models.Product{
		Slug:           "showroom-piano",
		Title:          "showroom-piano",
		CategoryID:     1,
		Price:          models.Money{Decimal: decimal.RequireFromString("1200.00")},
		StockPolicy:    constants.StockPolicyAvailable,
		CollectionOnly: true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	// A postal delivery address does not make this a deliverable order.
	b := checkoutBasket(t, product, 1)
	if _, err := env.orders.FromBasket(FromBasketInput{Basket: b, Email: "jane@example.com"}); !errors.Is(err, ErrCollectionOnlyRequired) {
		t.Fatalf("expected ErrCollectionOnlyRequired, got %v", err)
	}
	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no order, got %d", count)
	}

	// Switching to collection at the shop makes it placeable.
	b = checkoutBasket(t, product, 1)
	if err := b.SetClickAndCollect(true); err != nil {
		t.Fatalf("set click and collect failed: %v", err)
	}
	order := placeOrder(t, env, b)
	if !order.ClickAndCollect {
		t.Errorf("expected click and collect order")
	}
}

func TestFromBasketFreezesStoredSnapshot(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	restored, err := env.orders.RestoreBasket(order)
	if err != nil {
		t.Fatalf("restore basket failed: %v", err)
	}
	if !restored.Frozen {
		t.Errorf("expected the order snapshot to be frozen")
	}
}
