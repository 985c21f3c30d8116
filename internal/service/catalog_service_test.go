package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCatalogServiceTest(t *testing.T, defaultOrdering string) (*CatalogService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.FinanceOption{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewCatalogService(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
		defaultOrdering,
	), db
}

func createCatalogProduct(t *testing.T, db *gorm.DB, slug string, categoryID uint, price string, seq int, draft bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:        slug,
		Title:       slug,
		CategoryID:  categoryID,
		Price:       models.Money{Decimal: decimal.RequireFromString(price)},
		StockPolicy: constants.StockPolicyAvailable,
		Seq:         seq,
		Draft:       draft,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestResolveListingOrderPrecedence(t *testing.T) {
	service, _ := setupCatalogServiceTest(t, constants.OrderByDateAdded)
	category := &models.Category{OrderingDefault: constants.OrderByName}

	// Customer choice wins when allowed.
	if got := service.ResolveListingOrder(constants.OrderByPriceLowHigh, category); got != constants.OrderByPriceLowHigh {
		t.Errorf("expected customer choice, got %s", got)
	}
	// Unknown choice falls through to the category default.
	if got := service.ResolveListingOrder("cheapest-first", category); got != constants.OrderByName {
		t.Errorf("expected category default, got %s", got)
	}
	// No category default falls through to the global default.
	if got := service.ResolveListingOrder("", &models.Category{}); got != constants.OrderByDateAdded {
		t.Errorf("expected global default, got %s", got)
	}
	if got := service.ResolveListingOrder("", nil); got != constants.OrderByDateAdded {
		t.Errorf("expected global default without category, got %s", got)
	}
}

func TestResolveListingOrderFallsBackToRelevance(t *testing.T) {
	service, _ := setupCatalogServiceTest(t, "")
	if got := service.ResolveListingOrder("", nil); got != constants.OrderByRelevance {
		t.Errorf("expected relevance fallback, got %s", got)
	}
}

func TestListProductsAppliesCategoryAndOrdering(t *testing.T) {
	service, db := setupCatalogServiceTest(t, constants.OrderByRelevance)

	category := &models.Category{Slug: "sofas", Title: "Sofas", Enabled: true, OrderingDefault: constants.OrderByPriceLowHigh}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	other := &models.Category{Slug: "lamps", Title: "Lamps", Enabled: true}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}

	createCatalogProduct(t, db, "expensive", category.ID, "900.00", 1, false)
	createCatalogProduct(t, db, "cheap", category.ID, "100.00", 2, false)
	createCatalogProduct(t, db, "hidden-draft", category.ID, "50.00", 3, true)
	createCatalogProduct(t, db, "elsewhere", other.ID, "10.00", 1, false)

	result, err := service.ListProducts(ListProductsInput{CategorySlug: "sofas", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("expected 2 visible products in category, got %d", result.Total)
	}
	if result.OrderBy != constants.OrderByPriceLowHigh {
		t.Errorf("expected category ordering applied, got %s", result.OrderBy)
	}
	if len(result.Products) != 2 || result.Products[0].Slug != "cheap" {
		t.Errorf("expected cheap first, got %+v", result.Products)
	}
	if result.Category == nil || result.Category.Slug != "sofas" {
		t.Errorf("expected category attached")
	}
}

func TestGetProductBySlugHidesDrafts(t *testing.T) {
	service, db := setupCatalogServiceTest(t, constants.OrderByRelevance)
	createCatalogProduct(t, db, "visible", 1, "100.00", 1, false)
	createCatalogProduct(t, db, "draft", 1, "100.00", 2, true)

	if _, err := service.GetProductBySlug("visible"); err != nil {
		t.Errorf("expected visible product found, got %v", err)
	}
	if _, err := service.GetProductBySlug("draft"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound for draft, got %v", err)
	}
	if _, err := service.GetProductBySlug("missing"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCategoryPathRootFirst(t *testing.T) {
	service, db := setupCatalogServiceTest(t, constants.OrderByRelevance)

	root := &models.Category{Slug: "furniture", Title: "Furniture", Enabled: true}
	if err := db.Create(root).Error; err != nil {
		t.Fatalf("create root failed: %v", err)
	}
	child := &models.Category{Slug: "sofas", Title: "Sofas", Enabled: true, ParentID: &root.ID}
	if err := db.Create(child).Error; err != nil {
		t.Fatalf("create child failed: %v", err)
	}

	path, err := service.CategoryPath(child.ID)
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if len(path) != 2 || path[0].Slug != "furniture" || path[1].Slug != "sofas" {
		t.Errorf("expected root-first path, got %+v", path)
	}
}

func TestRelatedProductsKeepOrder(t *testing.T) {
	service, db := setupCatalogServiceTest(t, constants.OrderByRelevance)

	main := createCatalogProduct(t, db, "sofa", 1, "900.00", 1, false)
	first := createCatalogProduct(t, db, "cushion", 1, "20.00", 2, false)
	second := createCatalogProduct(t, db, "throw", 1, "30.00", 3, false)

	links := []models.RelatedProduct{
		{ProductID: main.ID, RelatedID: first.ID, Seq: 1},
		{ProductID: main.ID, RelatedID: second.ID, Seq: 2},
	}
	for i := range links {
		if err := db.Create(&links[i]).Error; err != nil {
			t.Fatalf("create link failed: %v", err)
		}
	}

	loaded, err := service.GetProductBySlug("sofa")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	related, err := service.RelatedProducts(loaded)
	if err != nil {
		t.Fatalf("related failed: %v", err)
	}
	if len(related) != 2 {
		t.Errorf("expected 2 related products, got %d", len(related))
	}
}
