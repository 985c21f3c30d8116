package repository

import (
	"errors"

	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// FinanceOptionRepository is the finance option data access interface.
type FinanceOptionRepository interface {
	ListEnabled() ([]models.FinanceOption, error)
	GetByID(id uint) (*models.FinanceOption, error)
	Save(option *models.FinanceOption) error
	WithTx(tx *gorm.DB) FinanceOptionRepository
}

// GormFinanceOptionRepository is the GORM implementation.
type GormFinanceOptionRepository struct {
	db *gorm.DB
}

// NewFinanceOptionRepository creates a finance option repository.
func NewFinanceOptionRepository(db *gorm.DB) *GormFinanceOptionRepository {
	return &GormFinanceOptionRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormFinanceOptionRepository) WithTx(tx *gorm.DB) FinanceOptionRepository {
	if tx == nil {
		return r
	}
	return &GormFinanceOptionRepository{db: tx}
}

// ListEnabled returns the enabled options ordered by seq.
func (r *GormFinanceOptionRepository) ListEnabled() ([]models.FinanceOption, error) {
	var options []models.FinanceOption
	if err := r.db.Where("enabled = ?", true).Order("seq ASC, id ASC").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

// GetByID fetches an option by id.
func (r *GormFinanceOptionRepository) GetByID(id uint) (*models.FinanceOption, error) {
	var option models.FinanceOption
	if err := r.db.First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &option, nil
}

// Save creates or updates an option.
func (r *GormFinanceOptionRepository) Save(option *models.FinanceOption) error {
	return r.db.Save(option).Error
}
