package repository

import (
	"errors"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"gorm.io/gorm"
)

// voucherUsageStatuses are the order statuses that count towards voucher usage.
var voucherUsageStatuses = []string{
	constants.OrderStatusPaymentConfirmed,
	constants.OrderStatusPlacedInvoice,
	constants.OrderStatusPlacedZeroAmount,
	constants.OrderStatusPartiallyShipped,
	constants.OrderStatusShipped,
	constants.OrderStatusReadyToCollect,
	constants.OrderStatusCollected,
}

// VoucherRepository is the voucher data access interface.
type VoucherRepository interface {
	GetByID(id uint) (*models.Voucher, error)
	GetByCode(code string) (*models.Voucher, error)
	CountUsage(voucherID uint) (int64, error)
	Save(voucher *models.Voucher) error
	WithTx(tx *gorm.DB) VoucherRepository
}

// GormVoucherRepository is the GORM implementation.
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository creates a voucher repository.
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) VoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// GetByID fetches a voucher by id with its category restriction.
func (r *GormVoucherRepository) GetByID(id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.Preload("Categories").First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// GetByCode fetches a voucher by its code. Codes are stored and matched
// in upper case.
func (r *GormVoucherRepository) GetByCode(code string) (*models.Voucher, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var voucher models.Voucher
	if err := r.db.Preload("Categories").Where("code = ?", code).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// CountUsage counts settled orders that redeemed the voucher. Orders that
// never reached a successful status do not consume usage.
func (r *GormVoucherRepository) CountUsage(voucherID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("voucher_id = ?", voucherID).
		Where("status IN ?", voucherUsageStatuses).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a voucher, normalising the code.
func (r *GormVoucherRepository) Save(voucher *models.Voucher) error {
	voucher.Code = strings.ToUpper(strings.TrimSpace(voucher.Code))
	return r.db.Save(voucher).Error
}
