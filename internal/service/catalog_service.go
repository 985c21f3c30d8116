package service

import (
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/repository"
)

// allowedOrderings are the customer-selectable listing orders.
var allowedOrderings = map[string]bool{
	constants.OrderByRelevance:    true,
	constants.OrderByDateAdded:    true,
	constants.OrderByPriceLowHigh: true,
	constants.OrderByPriceHighLow: true,
	constants.OrderByName:         true,
}

// CatalogService serves the read side of the shop: products, categories
// and the listing order resolution for category pages.
type CatalogService struct {
	productRepo     repository.ProductRepository
	categoryRepo    repository.CategoryRepository
	defaultOrdering string
}

// NewCatalogService creates the catalog service.
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, defaultOrdering string) *CatalogService {
	return &CatalogService{
		productRepo:     productRepo,
		categoryRepo:    categoryRepo,
		defaultOrdering: defaultOrdering,
	}
}

// GetProductBySlug fetches a visible product with its purchase data.
func (s *CatalogService) GetProductBySlug(slug string) (*models.Product, error) {
	product, err := s.productRepo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetProductByID fetches a product by id, drafts included.
func (s *CatalogService) GetProductByID(id uint) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListProductsInput selects a category page.
type ListProductsInput struct {
	CategorySlug string
	OrderBy      string // customer choice from the query string, may be empty
	Search       string
	Page         int
	PageSize     int
}

// ListProductsResult is one category page plus the ordering that was
// actually applied.
type ListProductsResult struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Category *models.Category `json:"category,omitempty"`
	OrderBy  string           `json:"order_by"`
}

// ListProducts returns a category page ordered per the listing order
// resolution.
func (s *CatalogService) ListProducts(input ListProductsInput) (*ListProductsResult, error) {
	var category *models.Category
	if input.CategorySlug != "" {
		found, err := s.categoryRepo.GetBySlug(input.CategorySlug)
		if err != nil {
			return nil, err
		}
		category = found
	}

	orderBy := s.ResolveListingOrder(input.OrderBy, category)
	filter := repository.ProductListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		Search:      input.Search,
		OrderBy:     orderBy,
		OnlyVisible: true,
	}
	if category != nil {
		filter.CategoryID = category.ID
	}
	products, total, err := s.productRepo.List(filter)
	if err != nil {
		return nil, err
	}
	return &ListProductsResult{
		Products: products,
		Total:    total,
		Category: category,
		OrderBy:  orderBy,
	}, nil
}

// ResolveListingOrder picks the product ordering for a category page.
// Precedence: explicit customer choice when it is an allowed option,
// then the category default, then the global default, then relevance.
func (s *CatalogService) ResolveListingOrder(requested string, category *models.Category) string {
	requested = strings.TrimSpace(requested)
	if requested != "" && allowedOrderings[requested] {
		return requested
	}
	if category != nil && allowedOrderings[category.OrderingDefault] {
		return category.OrderingDefault
	}
	if allowedOrderings[s.defaultOrdering] {
		return s.defaultOrdering
	}
	return constants.OrderByRelevance
}

// ListCategories returns the enabled categories ordered by seq.
func (s *CatalogService) ListCategories() ([]models.Category, error) {
	return s.categoryRepo.List(true)
}

// CategoryPath returns the root-first ancestor chain for breadcrumbs.
func (s *CatalogService) CategoryPath(categoryID uint) ([]models.Category, error) {
	return s.categoryRepo.Path(categoryID)
}

// RelatedProducts returns the ordered cross-sell list for a product.
func (s *CatalogService) RelatedProducts(product *models.Product) ([]models.Product, error) {
	if product == nil || len(product.Related) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(product.Related))
	for _, rel := range product.Related {
		ids = append(ids, rel.RelatedID)
	}
	return s.productRepo.ListByIDs(ids)
}
