package repository

import (
	"errors"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository is the customer data access interface.
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	Create(customer *models.Customer) error
	Save(customer *models.Customer) error
	WithTx(tx *gorm.DB) CustomerRepository
}

// GormCustomerRepository is the GORM implementation.
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a customer repository.
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) CustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID fetches a customer by id.
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByEmail fetches a customer by email address, case-insensitively.
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create inserts a new customer, normalising the email.
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	return r.db.Create(customer).Error
}

// Save persists all customer fields.
func (r *GormCustomerRepository) Save(customer *models.Customer) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	return r.db.Save(customer).Error
}
