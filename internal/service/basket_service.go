package service

import (
	"context"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/repository"
	"github.com/cubaneorg/cubane-sub000/internal/session"
)

// BasketService mediates between the session store and the catalog.
// Every mutation runs as an atomic read-modify-write against the
// (session id, prefix) slot; catalog attachments are re-resolved from
// their stored ids after each restore.
type BasketService struct {
	store        session.Store
	productRepo  repository.ProductRepository
	deliveryRepo repository.DeliveryOptionRepository
	voucherRepo  repository.VoucherRepository
	financeRepo  repository.FinanceOptionRepository
}

// NewBasketService creates the basket service.
func NewBasketService(store session.Store, productRepo repository.ProductRepository, deliveryRepo repository.DeliveryOptionRepository, voucherRepo repository.VoucherRepository, financeRepo repository.FinanceOptionRepository) *BasketService {
	return &BasketService{
		store:        store,
		productRepo:  productRepo,
		deliveryRepo: deliveryRepo,
		voucherRepo:  voucherRepo,
		financeRepo:  financeRepo,
	}
}

// Get loads the basket with its catalog attachments resolved.
func (s *BasketService) Get(ctx context.Context, sessionID, prefix string) (*basket.Basket, error) {
	b, err := s.store.Load(ctx, sessionID, prefix)
	if err != nil {
		return nil, err
	}
	s.inflate(b)
	return b, nil
}

// mutate wraps the store's read-modify-write with attachment
// resolution, so fn always sees a fully inflated basket.
func (s *BasketService) mutate(ctx context.Context, sessionID, prefix string, fn func(*basket.Basket) error) (*basket.Basket, error) {
	return s.store.Mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		s.inflate(b)
		return fn(b)
	})
}

// inflate re-attaches the delivery option, voucher and finance option
// from their durable ids. A reference that no longer resolves is
// dropped rather than failing the basket.
func (s *BasketService) inflate(b *basket.Basket) {
	if b.DeliveryOption == nil && b.DeliveryOptionID != nil {
		option, err := s.deliveryRepo.GetByID(*b.DeliveryOptionID)
		if err == nil && option != nil && option.Enabled {
			b.DeliveryOption = option
		} else {
			b.DeliveryOptionID = nil
			b.DeliveryOptionTitle = ""
		}
	}
	if b.Voucher == nil && b.VoucherCode != "" {
		voucher, err := s.voucherRepo.GetByCode(b.VoucherCode)
		if err == nil && voucher != nil && voucher.Enabled {
			b.Voucher = voucher
		} else {
			b.VoucherCode = ""
		}
	}
	if b.FinanceOption == nil && b.FinanceOptionID != nil {
		option, err := s.financeRepo.GetByID(*b.FinanceOptionID)
		if err == nil && option != nil && option.Enabled {
			b.FinanceOption = option
		} else {
			b.FinanceOptionID = nil
			b.LoanDeposit = 0
		}
	}
}

// AddItemInput describes one add-to-basket request.
type AddItemInput struct {
	ProductID uint
	Slug      string
	Quantity  int
	OptionIDs []uint
	Labels    map[uint]string
	Custom    map[string]string
}

// AddItem resolves the product and adds it to the basket.
func (s *BasketService) AddItem(ctx context.Context, sessionID, prefix string, input AddItemInput) (*basket.Basket, error) {
	var product *models.Product
	var err error
	if input.ProductID > 0 {
		product, err = s.productRepo.GetByID(input.ProductID)
	} else {
		product, err = s.productRepo.GetBySlug(input.Slug, true)
	}
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		_, err := b.Add(product, input.Quantity, input.OptionIDs, input.Labels, input.Custom)
		if err != nil {
			return err
		}
		logger.Infow("basket_item_added",
			"session_id", sessionID,
			"product_id", product.ID,
			"quantity", input.Quantity,
		)
		return nil
	})
}

// UpdateQuantity changes a line's quantity, removing it below one.
func (s *BasketService) UpdateQuantity(ctx context.Context, sessionID, prefix, lineID string, quantity int) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.UpdateQuantity(lineID, quantity)
	})
}

// RemoveItem deletes a line.
func (s *BasketService) RemoveItem(ctx context.Context, sessionID, prefix, lineID string) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.Remove(lineID)
	})
}

// SetBillingAddress replaces the billing address.
func (s *BasketService) SetBillingAddress(ctx context.Context, sessionID, prefix string, address models.Address) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.SetBillingAddress(address)
	})
}

// SetDeliveryAddress replaces the delivery address.
func (s *BasketService) SetDeliveryAddress(ctx context.Context, sessionID, prefix string, address models.Address) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.SetDeliveryAddress(address)
	})
}

// SetClickAndCollect toggles collection at the shop.
func (s *BasketService) SetClickAndCollect(ctx context.Context, sessionID, prefix string, on bool) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.SetClickAndCollect(on)
	})
}

// SetDeliveryOption selects a delivery method by id.
func (s *BasketService) SetDeliveryOption(ctx context.Context, sessionID, prefix string, optionID uint) (*basket.Basket, error) {
	option, err := s.deliveryRepo.GetByID(optionID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.SetDeliveryOption(option)
	})
}

// ApplyVoucher resolves a code and attaches the voucher.
func (s *BasketService) ApplyVoucher(ctx context.Context, sessionID, prefix, code string) (*basket.Basket, error) {
	voucher, err := s.voucherRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	var usage int64
	if voucher != nil {
		usage, err = s.voucherRepo.CountUsage(voucher.ID)
		if err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.ApplyVoucher(voucher, usage, time.Now())
	})
}

// RemoveVoucher drops any applied voucher.
func (s *BasketService) RemoveVoucher(ctx context.Context, sessionID, prefix string) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.RemoveVoucher()
	})
}

// ApplyFinanceOption selects a credit product with a deposit percent.
func (s *BasketService) ApplyFinanceOption(ctx context.Context, sessionID, prefix string, optionID uint, depositPercent int) (*basket.Basket, error) {
	option, err := s.financeRepo.GetByID(optionID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		return b.ApplyFinanceOption(option, depositPercent)
	})
}

// SetSurvey records the "where did you hear about us" answer.
func (s *BasketService) SetSurvey(ctx context.Context, sessionID, prefix, survey string) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		if b.Frozen {
			return basket.ErrBasketFrozen
		}
		b.Survey = survey
		return nil
	})
}

// SetSpecialRequirements records the customer's free-text instructions.
func (s *BasketService) SetSpecialRequirements(ctx context.Context, sessionID, prefix, text string) (*basket.Basket, error) {
	return s.mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		if b.Frozen {
			return basket.ErrBasketFrozen
		}
		b.SpecialRequirements = text
		return nil
	})
}

// Freeze marks the stored basket read-only.
func (s *BasketService) Freeze(ctx context.Context, sessionID, prefix string) error {
	_, err := s.store.Mutate(ctx, sessionID, prefix, func(b *basket.Basket) error {
		b.Freeze()
		return nil
	})
	return err
}

// Clear removes the stored basket entirely.
func (s *BasketService) Clear(ctx context.Context, sessionID, prefix string) error {
	return s.store.Delete(ctx, sessionID, prefix)
}
