package repository

import (
	"errors"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository is the order data access interface.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetBySecretID(secretID string) (*models.Order, error)
	GetByOrderID(orderID string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	Save(order *models.Order) error
	UpdateFields(id uint, fields map[string]interface{}) error
	NextCounter(name string) (int64, error)
	ListApprovalWaitingBefore(cutoff time.Time) ([]models.Order, error)
	CreateEvent(event *models.OrderEvent) error
	ListEvents(orderID uint) ([]models.OrderEvent, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository is the GORM implementation.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create inserts a new order.
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID fetches an order by primary key.
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate fetches an order with a row lock. Must run inside a
// transaction.
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetBySecretID fetches an order by its customer-facing secret id.
func (r *GormOrderRepository) GetBySecretID(secretID string) (*models.Order, error) {
	if secretID == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("secret_id = ?", secretID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderID fetches an order by its public order number.
func (r *GormOrderRepository) GetByOrderID(orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List returns orders matching the filter, newest first.
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Save persists all order fields.
func (r *GormOrderRepository) Save(order *models.Order) error {
	return r.db.Save(order).Error
}

// UpdateFields updates the given columns only.
func (r *GormOrderRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

// NextCounter atomically increments and returns the named counter.
// Used for sequential order number generation.
func (r *GormOrderRepository) NextCounter(name string) (int64, error) {
	var value int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var counter models.OrderCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).First(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.OrderCounter{Name: name, Value: 1}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
			value = counter.Value
			return nil
		}
		if err != nil {
			return err
		}
		counter.Value++
		if err := tx.Save(&counter).Error; err != nil {
			return err
		}
		value = counter.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// ListApprovalWaitingBefore returns orders still awaiting approval whose
// payment was confirmed before the cutoff.
func (r *GormOrderRepository) ListApprovalWaitingBefore(cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("approval_status = ?", constants.ApprovalStatusWaiting).
		Where("payment_confirmed_at IS NOT NULL AND payment_confirmed_at < ?", cutoff).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateEvent records an order event.
func (r *GormOrderRepository) CreateEvent(event *models.OrderEvent) error {
	return r.db.Create(event).Error
}

// ListEvents returns the events recorded against an order, oldest first.
func (r *GormOrderRepository) ListEvents(orderID uint) ([]models.OrderEvent, error) {
	var events []models.OrderEvent
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
