package repository

import (
	"errors"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is the product data access interface.
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	GetBySlug(slug string, onlyVisible bool) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Save(product *models.Product) error
	Delete(id uint) error
	AdjustStock(id uint, delta int) (int, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository is the GORM implementation.
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository.
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormProductRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func (r *GormProductRepository) withAssociations(query *gorm.DB) *gorm.DB {
	return query.
		Preload("AdditionalCategories").
		Preload("DeliveryOptions").
		Preload("FinanceOptions").
		Preload("VarietyAssignments", func(db *gorm.DB) *gorm.DB {
			return db.Where("enabled = ?", true).Order("seq ASC, id ASC")
		}).
		Preload("VarietyAssignments.VarietyOption").
		Preload("VarietyAssignments.VarietyOption.Variety").
		Preload("SKUs", func(db *gorm.DB) *gorm.DB {
			return db.Where("enabled = ?", true).Order("id ASC")
		}).
		Preload("SKUs.Options")
}

// List returns products for a category page, applying the resolved
// listing order.
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product

	query := r.db.Model(&models.Product{})
	if filter.OnlyVisible {
		query = query.Where("draft = ?", false)
	}
	if filter.CategoryID != 0 {
		query = query.Where(
			"category_id = ? OR id IN (SELECT product_id FROM product_categories WHERE category_id = ?)",
			filter.CategoryID, filter.CategoryID,
		)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR slug LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	query = query.Order(listingOrderClause(filter.OrderBy))

	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func listingOrderClause(orderBy string) string {
	switch orderBy {
	case constants.OrderByDateAdded:
		return "created_at DESC, id DESC"
	case constants.OrderByPriceLowHigh:
		return "price ASC, id ASC"
	case constants.OrderByPriceHighLow:
		return "price DESC, id ASC"
	case constants.OrderByName:
		return "title ASC, id ASC"
	default: // relevance
		return "seq ASC, id ASC"
	}
}

// GetByID fetches a product with its purchase associations.
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.withAssociations(r.db).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetBySlug fetches a product by slug.
func (r *GormProductRepository) GetBySlug(slug string, onlyVisible bool) (*models.Product, error) {
	var product models.Product
	query := r.withAssociations(r.db).Where("slug = ?", strings.TrimSpace(slug))
	if onlyVisible {
		query = query.Where("draft = ?", false)
	}
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs fetches products by id set.
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	if err := r.withAssociations(r.db).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product.
func (r *GormProductRepository) Save(product *models.Product) error {
	return r.db.Save(product).Error
}

// Delete soft-deletes a product. Baskets keep referencing it weakly and
// treat the line as frozen.
func (r *GormProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

// AdjustStock changes the product stock level by delta under a row
// lock, flooring at zero. It returns the signed change actually
// applied, which is smaller than delta when the floor was hit.
func (r *GormProductRepository) AdjustStock(id uint, delta int) (int, error) {
	var applied int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			return err
		}
		level := product.StockLevel + delta
		if level < 0 {
			level = 0
		}
		applied = level - product.StockLevel
		return tx.Model(&models.Product{}).Where("id = ?", id).
			Update("stock_level", level).Error
	})
	return applied, err
}
