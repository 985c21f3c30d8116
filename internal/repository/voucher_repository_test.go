package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupVoucherRepositoryTest(t *testing.T) (*GormVoucherRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:voucher_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Voucher{}, &models.Order{}); err != nil {
		t.Fatalf("migrate voucher/order failed: %v", err)
	}
	return NewVoucherRepository(db), db
}

func createVoucherOrder(t *testing.T, db *gorm.DB, seq int, status string, voucherID *uint) {
	t.Helper()
	order := &models.Order{
		OrderID:   fmt.Sprintf("VCH-%d", seq),
		SecretID:  fmt.Sprintf("secret-vch-%d", seq),
		Status:    status,
		VoucherID: voucherID,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
}

func TestCountUsageCountsOnlySuccessfulOrders(t *testing.T) {
	repo, db := setupVoucherRepositoryTest(t)

	voucher := &models.Voucher{
		Code:         "SPRING10",
		Title:        "Spring sale",
		Enabled:      true,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
		DiscountType: constants.VoucherTypePercentage,
	}
	if err := repo.Save(voucher); err != nil {
		t.Fatalf("save voucher failed: %v", err)
	}

	successful := []string{
		constants.OrderStatusPaymentConfirmed,
		constants.OrderStatusPlacedInvoice,
		constants.OrderStatusPlacedZeroAmount,
		constants.OrderStatusPartiallyShipped,
		constants.OrderStatusShipped,
		constants.OrderStatusReadyToCollect,
		constants.OrderStatusCollected,
	}
	unsuccessful := []string{
		constants.OrderStatusCheckout,
		constants.OrderStatusPaymentAwaiting,
		constants.OrderStatusPaymentDeclined,
		constants.OrderStatusPaymentError,
		constants.OrderStatusPaymentCancelled,
	}

	seq := 0
	for _, status := range successful {
		seq++
		createVoucherOrder(t, db, seq, status, &voucher.ID)
	}
	for _, status := range unsuccessful {
		seq++
		createVoucherOrder(t, db, seq, status, &voucher.ID)
	}
	// Orders without the voucher never count, whatever their status.
	seq++
	createVoucherOrder(t, db, seq, constants.OrderStatusPaymentConfirmed, nil)

	count, err := repo.CountUsage(voucher.ID)
	if err != nil {
		t.Fatalf("count usage failed: %v", err)
	}
	if count != int64(len(successful)) {
		t.Errorf("expected %d redemptions, got %d", len(successful), count)
	}
}

func TestCountUsageExhaustsVoucherAtMaxUsage(t *testing.T) {
	repo, db := setupVoucherRepositoryTest(t)

	maxUsage := 2
	voucher := &models.Voucher{
		Code:         "TWICE",
		Title:        "Two redemptions",
		Enabled:      true,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
		MaxUsage:     &maxUsage,
		DiscountType: constants.VoucherTypeFixedAmount,
	}
	if err := repo.Save(voucher); err != nil {
		t.Fatalf("save voucher failed: %v", err)
	}

	createVoucherOrder(t, db, 1, constants.OrderStatusPaymentConfirmed, &voucher.ID)
	// A declined attempt must not burn a redemption.
	createVoucherOrder(t, db, 2, constants.OrderStatusPaymentDeclined, &voucher.ID)

	count, err := repo.CountUsage(voucher.ID)
	if err != nil {
		t.Fatalf("count usage failed: %v", err)
	}
	if count >= int64(maxUsage) {
		t.Fatalf("voucher wrongly exhausted at %d of %d", count, maxUsage)
	}

	createVoucherOrder(t, db, 3, constants.OrderStatusShipped, &voucher.ID)
	count, err = repo.CountUsage(voucher.ID)
	if err != nil {
		t.Fatalf("count usage failed: %v", err)
	}
	if count != int64(maxUsage) {
		t.Errorf("expected voucher exhausted at %d, got %d", maxUsage, count)
	}
}
