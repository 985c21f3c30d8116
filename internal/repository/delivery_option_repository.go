package repository

import (
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// DeliveryOptionRepository is the delivery option data access interface.
type DeliveryOptionRepository interface {
	ListEnabled() ([]models.DeliveryOption, error)
	GetByID(id uint) (*models.DeliveryOption, error)
	Save(option *models.DeliveryOption) error
	WithTx(tx *gorm.DB) DeliveryOptionRepository
}

// GormDeliveryOptionRepository is the GORM implementation.
type GormDeliveryOptionRepository struct {
	db *gorm.DB
}

// NewDeliveryOptionRepository creates a delivery option repository.
func NewDeliveryOptionRepository(db *gorm.DB) *GormDeliveryOptionRepository {
	return &GormDeliveryOptionRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormDeliveryOptionRepository) WithTx(tx *gorm.DB) DeliveryOptionRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryOptionRepository{db: tx}
}

// ListEnabled returns the enabled options ordered by seq.
func (r *GormDeliveryOptionRepository) ListEnabled() ([]models.DeliveryOption, error) {
	var options []models.DeliveryOption
	if err := r.db.Where("enabled = ?", true).Order("seq ASC, id ASC").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

// GetByID fetches an option by id.
func (r *GormDeliveryOptionRepository) GetByID(id uint) (*models.DeliveryOption, error) {
	var option models.DeliveryOption
	if err := r.db.First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &option, nil
}

// Save creates or updates an option.
func (r *GormDeliveryOptionRepository) Save(option *models.DeliveryOption) error {
	return r.db.Save(option).Error
}
