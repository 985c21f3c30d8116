package repository

import (
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// VarietyRepository is the variety data access interface.
type VarietyRepository interface {
	List(onlyEnabled bool) ([]models.Variety, error)
	GetByID(id uint) (*models.Variety, error)
	GetOptionByID(id uint) (*models.VarietyOption, error)
	ListOptionsByIDs(ids []uint) ([]models.VarietyOption, error)
	SaveOption(option *models.VarietyOption) error
	DeleteOption(id uint) error
	WithTx(tx *gorm.DB) VarietyRepository
}

// GormVarietyRepository is the GORM implementation.
type GormVarietyRepository struct {
	db *gorm.DB
}

// NewVarietyRepository creates a variety repository.
func NewVarietyRepository(db *gorm.DB) *GormVarietyRepository {
	return &GormVarietyRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormVarietyRepository) WithTx(tx *gorm.DB) VarietyRepository {
	if tx == nil {
		return r
	}
	return &GormVarietyRepository{db: tx}
}

// List returns varieties with their options, ordered by seq.
func (r *GormVarietyRepository) List(onlyEnabled bool) ([]models.Variety, error) {
	var varieties []models.Variety
	query := r.db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC, id ASC")
	}).Order("seq ASC, id ASC")
	if onlyEnabled {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Find(&varieties).Error; err != nil {
		return nil, err
	}
	return varieties, nil
}

// GetByID fetches a variety with its options.
func (r *GormVarietyRepository) GetByID(id uint) (*models.Variety, error) {
	var variety models.Variety
	if err := r.db.Preload("Options").First(&variety, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variety, nil
}

// GetOptionByID fetches an option with its variety.
func (r *GormVarietyRepository) GetOptionByID(id uint) (*models.VarietyOption, error) {
	var option models.VarietyOption
	if err := r.db.Preload("Variety").First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &option, nil
}

// ListOptionsByIDs fetches options (with varieties) by id set.
func (r *GormVarietyRepository) ListOptionsByIDs(ids []uint) ([]models.VarietyOption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var options []models.VarietyOption
	if err := r.db.Preload("Variety").Where("id IN ?", ids).Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

// SaveOption creates or updates an option.
func (r *GormVarietyRepository) SaveOption(option *models.VarietyOption) error {
	return r.db.Save(option).Error
}

// DeleteOption removes an option together with every SKU that references
// it and its product assignments.
func (r *GormVarietyRepository) DeleteOption(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var skuIDs []uint
		if err := tx.Table("product_sku_options").
			Where("variety_option_id = ?", id).
			Pluck("product_sku_id", &skuIDs).Error; err != nil {
			return err
		}
		if len(skuIDs) > 0 {
			if err := tx.Exec("DELETE FROM product_sku_options WHERE product_sku_id IN ?", skuIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.ProductSKU{}, skuIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("variety_option_id = ?", id).
			Delete(&models.VarietyAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.VarietyOption{}, id).Error
	})
}
