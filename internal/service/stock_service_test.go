package service

import (
	"testing"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// adjustOrder runs the adjuster against a fabricated order whose basket
// holds the given lines.
func adjustOrder(t *testing.T, env *checkoutTestEnv, lines ...*basket.Item) *models.Order {
	t.Helper()
	b := basket.New(100, "GB")
	b.Items = append(b.Items, lines...)
	basketJSON, err := b.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	order := &models.Order{
		OrderID:    "T-1",
		SecretID:   "secret-t-1",
		Status:     constants.OrderStatusPaymentConfirmed,
		BasketJSON: basketJSON,
	}
	if err := env.db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.adjuster.AdjustForOrder(tx, order)
	})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	return order
}

func TestAdjustForOrderDecrementsAutoStock(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 10)

	adjustOrder(t, env, manualLine(product.ID, nil, 4, "250.00"))

	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.StockLevel != 6 {
		t.Errorf("expected stock 6, got %d", reloaded.StockLevel)
	}
}

func TestAdjustForOrderSkipsNonAutoPolicies(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	available := createCheckoutProduct(t, env.db, "lamp", "60.00", constants.StockPolicyAvailable, 3)
	madeToOrder := createCheckoutProduct(t, env.db, "table", "900.00", constants.StockPolicyMadeToOrder, 0)

	adjustOrder(t, env,
		manualLine(available.ID, nil, 2, "60.00"),
		manualLine(madeToOrder.ID, nil, 1, "900.00"),
	)

	reloaded, err := env.productRepo.GetByID(available.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.StockLevel != 3 {
		t.Errorf("available-policy stock changed: %d", reloaded.StockLevel)
	}
}

func TestAdjustForOrderDecrementsSKULevel(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 10)
	sku := &models.ProductSKU{ProductID: product.ID, SKU: "SOFA-OAK", StockLevel: 5, Enabled: true}
	if err := env.db.Create(sku).Error; err != nil {
		t.Fatalf("create sku failed: %v", err)
	}

	skuID := sku.ID
	adjustOrder(t, env, manualLine(product.ID, &skuID, 2, "250.00"))

	reloadedSKU, err := env.skuRepo.GetByID(sku.ID)
	if err != nil {
		t.Fatalf("reload sku failed: %v", err)
	}
	if reloadedSKU.StockLevel != 3 {
		t.Errorf("expected SKU stock 3, got %d", reloadedSKU.StockLevel)
	}

	// The product-level counter stays untouched for SKU lines.
	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.StockLevel != 10 {
		t.Errorf("expected product stock 10, got %d", reloaded.StockLevel)
	}
}

func TestAdjustForOrderOversellClampsAndRecordsEvent(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 1)

	order := adjustOrder(t, env, manualLine(product.ID, nil, 3, "250.00"))

	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.StockLevel != 0 {
		t.Errorf("expected stock clamped at 0, got %d", reloaded.StockLevel)
	}

	events, err := env.orderRepo.ListEvents(order.ID)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != constants.OrderEventOversellAttempt {
		t.Fatalf("expected oversell_attempt event, got %+v", events)
	}
	detail := events[0].Detail
	if detail["requested"] != float64(3) || detail["applied"] != float64(1) {
		t.Errorf("unexpected event detail: %+v", detail)
	}
}

func TestAdjustForOrderIgnoresDeletedProducts(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())

	// A line whose product has since been removed is left alone.
	adjustOrder(t, env, manualLine(999, nil, 2, "10.00"))
}
