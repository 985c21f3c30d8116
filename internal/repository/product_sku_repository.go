package repository

import (
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductSKURepository is the SKU data access interface.
type ProductSKURepository interface {
	GetByID(id uint) (*models.ProductSKU, error)
	ListByProduct(productID uint, onlyEnabled bool) ([]models.ProductSKU, error)
	FindByOptions(productID uint, optionIDs []uint) (*models.ProductSKU, error)
	Save(sku *models.ProductSKU) error
	Delete(id uint) error
	AdjustStock(id uint, delta int) (int, error)
	WithTx(tx *gorm.DB) ProductSKURepository
}

// GormProductSKURepository is the GORM implementation.
type GormProductSKURepository struct {
	db *gorm.DB
}

// NewProductSKURepository creates a SKU repository.
func NewProductSKURepository(db *gorm.DB) *GormProductSKURepository {
	return &GormProductSKURepository{db: db}
}

// WithTx binds a transaction.
func (r *GormProductSKURepository) WithTx(tx *gorm.DB) ProductSKURepository {
	if tx == nil {
		return r
	}
	return &GormProductSKURepository{db: tx}
}

// GetByID fetches a SKU with its options.
func (r *GormProductSKURepository) GetByID(id uint) (*models.ProductSKU, error) {
	var sku models.ProductSKU
	if err := r.db.Preload("Options").First(&sku, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sku, nil
}

// ListByProduct returns a product's SKUs with options.
func (r *GormProductSKURepository) ListByProduct(productID uint, onlyEnabled bool) ([]models.ProductSKU, error) {
	var skus []models.ProductSKU
	query := r.db.Preload("Options").Where("product_id = ?", productID).Order("id ASC")
	if onlyEnabled {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Find(&skus).Error; err != nil {
		return nil, err
	}
	return skus, nil
}

// FindByOptions resolves the unique enabled SKU whose option set equals
// optionIDs exactly. nil means no match.
func (r *GormProductSKURepository) FindByOptions(productID uint, optionIDs []uint) (*models.ProductSKU, error) {
	skus, err := r.ListByProduct(productID, true)
	if err != nil {
		return nil, err
	}
	for i := range skus {
		if skus[i].MatchesOptions(optionIDs) {
			return &skus[i], nil
		}
	}
	return nil, nil
}

// Save creates or updates a SKU.
func (r *GormProductSKURepository) Save(sku *models.ProductSKU) error {
	return r.db.Save(sku).Error
}

// Delete soft-deletes a SKU.
func (r *GormProductSKURepository) Delete(id uint) error {
	return r.db.Delete(&models.ProductSKU{}, id).Error
}

// AdjustStock changes the SKU stock level by delta under a row lock,
// flooring at zero. It returns the signed change actually applied,
// which is smaller than delta when the floor was hit.
func (r *GormProductSKURepository) AdjustStock(id uint, delta int) (int, error) {
	var applied int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var sku models.ProductSKU
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sku, id).Error; err != nil {
			return err
		}
		level := sku.StockLevel + delta
		if level < 0 {
			level = 0
		}
		applied = level - sku.StockLevel
		return tx.Model(&models.ProductSKU{}).Where("id = ?", id).
			Update("stock_level", level).Error
	})
	return applied, err
}
