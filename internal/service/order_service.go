package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/queue"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"gorm.io/gorm"
)

// allowedTransitions is the order state machine. The processing row is
// additionally constrained by click-and-collect, see canTransition.
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusNewOrder: {
		constants.OrderStatusPaymentAwaiting: true,
	},
	constants.OrderStatusCheckout: {
		constants.OrderStatusPaymentAwaiting: true,
	},
	constants.OrderStatusCheckoutInvoice: {
		constants.OrderStatusPlacedInvoice: true,
	},
	constants.OrderStatusCheckoutZeroAmount: {
		constants.OrderStatusPlacedZeroAmount: true,
	},
	constants.OrderStatusPaymentAwaiting: {
		constants.OrderStatusPaymentConfirmed: true,
		constants.OrderStatusPaymentDeclined:  true,
		constants.OrderStatusPaymentError:     true,
		constants.OrderStatusPaymentCancelled: true,
	},
	constants.OrderStatusPaymentConfirmed: {
		constants.OrderStatusProcessing: true,
	},
	constants.OrderStatusPlacedInvoice: {
		constants.OrderStatusProcessing: true,
	},
	constants.OrderStatusPlacedZeroAmount: {
		constants.OrderStatusProcessing: true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusPartiallyShipped: true,
		constants.OrderStatusShipped:          true,
		constants.OrderStatusReadyToCollect:   true,
	},
	constants.OrderStatusPartiallyShipped: {
		constants.OrderStatusShipped: true,
	},
	constants.OrderStatusReadyToCollect: {
		constants.OrderStatusCollected: true,
	},
}

// confirmedStatuses mark the transitions that trigger stock adjustment.
var confirmedStatuses = map[string]bool{
	constants.OrderStatusPaymentConfirmed: true,
	constants.OrderStatusPlacedInvoice:    true,
	constants.OrderStatusPlacedZeroAmount: true,
}

// canTransition applies the transition table plus the orthogonal
// rules: rejected or timed-out approvals freeze the order where it
// stands, and the processing fork depends on click-and-collect.
func canTransition(order *models.Order, target string) bool {
	if order.ApprovalStatus == constants.ApprovalStatusRejected ||
		order.ApprovalStatus == constants.ApprovalStatusTimeout {
		return false
	}
	if !allowedTransitions[order.Status][target] {
		return false
	}
	if order.Status == constants.OrderStatusProcessing {
		if order.ClickAndCollect {
			return target == constants.OrderStatusReadyToCollect
		}
		return target == constants.OrderStatusPartiallyShipped ||
			target == constants.OrderStatusShipped
	}
	return true
}

// OrderService owns the order aggregate: creation from a basket, the
// state machine and the public reference generators.
type OrderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	adjuster     *StockAdjuster
	registry     *gateway.Registry
	queueClient  *queue.Client
	shopCfg      config.ShopConfig
}

// NewOrderService creates the order service.
func NewOrderService(orderRepo repository.OrderRepository, customerRepo repository.CustomerRepository, adjuster *StockAdjuster, registry *gateway.Registry, queueClient *queue.Client, shopCfg config.ShopConfig) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		adjuster:     adjuster,
		registry:     registry,
		queueClient:  queueClient,
		shopCfg:      shopCfg,
	}
}

// FromBasketInput carries checkout contact details next to the basket.
type FromBasketInput struct {
	Basket    *basket.Basket
	Customer  *models.Customer // nil for guest checkout
	Email     string
	Telephone string
	Moto      bool // merchant-keyed order
}

// FromBasket snapshots a basket into a new order: addresses, serialised
// lines, totals, voucher and delivery selections, plus the public and
// secret references. Validation failures leave the basket untouched; on
// success the stored snapshot is frozen and the caller retires the
// session copy.
func (s *OrderService) FromBasket(input FromBasketInput) (*models.Order, error) {
	b := input.Basket
	if b == nil || b.IsEmpty() {
		return nil, ErrEmptyBasket
	}
	if !b.Billing.IsComplete() {
		return nil, ErrAddressIncomplete
	}
	if !b.ClickAndCollect && !b.Delivery.IsComplete() {
		return nil, ErrAddressIncomplete
	}
	if b.IsCollectionOnly() && !b.ClickAndCollect {
		return nil, ErrCollectionOnlyRequired
	}

	totals := b.Totals()
	status := constants.OrderStatusCheckout
	switch {
	case b.Invoice:
		status = constants.OrderStatusCheckoutInvoice
	case totals.Total.IsZero():
		status = constants.OrderStatusCheckoutZeroAmount
	}

	gw, err := s.selectGateway(input.Moto)
	if err != nil {
		return nil, err
	}

	b.Freeze()
	basketJSON, err := b.Serialize()
	if err != nil {
		return nil, err
	}

	billing := snapshotAddress(b.Billing)
	delivery := snapshotAddress(b.Delivery)
	email := strings.TrimSpace(strings.ToLower(input.Email))

	order := &models.Order{
		Status:          status,
		ApprovalStatus:  constants.ApprovalStatusNone,
		FullName:        billing.FullName(),
		Email:           email,
		Telephone:       input.Telephone,
		Billing:         billing,
		Delivery:        delivery,
		ClickAndCollect: b.ClickAndCollect,
		BasketJSON:      basketJSON,

		SubTotal:               totals.SubTotal,
		SubTotalBeforeDelivery: totals.SubTotalBeforeDelivery,
		DeliveryCharge:         totals.Delivery,
		DiscountAmount:         totals.Discount,
		Total:                  totals.Total,
		IsQuoteOnly:            totals.QuoteOnly,
		Invoice:                b.Invoice,

		DeliveryOptionID:    b.DeliveryOptionID,
		DeliveryOptionTitle: b.DeliveryOptionTitle,
		FinanceOptionID:     b.FinanceOptionID,
		LoanDeposit:         b.LoanDeposit,
		Survey:              b.Survey,
		SpecialRequirements: b.SpecialRequirements,
		GatewayID:           gw.Identifier(),
	}
	if input.Customer != nil {
		customerID := input.Customer.ID
		order.CustomerID = &customerID
		if order.Email == "" {
			order.Email = input.Customer.Email
		}
	} else {
		order.GuestEmail = email
	}
	if b.Voucher != nil {
		voucherID := b.Voucher.ID
		order.VoucherID = &voucherID
		order.VoucherCode = b.Voucher.Code
		order.VoucherTitle = b.Voucher.Title
		order.VoucherValue = b.Voucher.DiscountValue
	}

	if err := s.createWithReferences(order); err != nil {
		return nil, err
	}
	logger.Infow("order_created",
		"order_ref", order.OrderID,
		"status", order.Status,
		"total", order.Total.String(),
		"gateway", gw.Name(),
	)
	return order, nil
}

// CreateEmptyCustomerNotPresent opens a blank backend order for
// merchant data entry. It stays editable until priced and placed.
func (s *OrderService) CreateEmptyCustomerNotPresent() (*models.Order, error) {
	order := &models.Order{
		Status:         constants.OrderStatusNewOrder,
		ApprovalStatus: constants.ApprovalStatusNone,
	}
	if gw, err := s.registry.Default(); err == nil {
		order.GatewayID = gw.Identifier()
	}
	if err := s.createWithReferences(order); err != nil {
		return nil, err
	}
	logger.Infow("order_created_empty", "order_ref", order.OrderID)
	return order, nil
}

// UpdateFromBasket recomputes the denormalised fields of an editable
// order from a freshly priced basket. Orders past new_order refuse.
func (s *OrderService) UpdateFromBasket(orderID uint, b *basket.Basket) (*models.Order, error) {
	var updated *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !order.Editable() {
			return ErrOrderNotEditable
		}

		totals := b.Totals()
		basketJSON, err := b.Serialize()
		if err != nil {
			return err
		}
		order.BasketJSON = basketJSON
		order.SubTotal = totals.SubTotal
		order.SubTotalBeforeDelivery = totals.SubTotalBeforeDelivery
		order.DeliveryCharge = totals.Delivery
		order.DiscountAmount = totals.Discount
		order.Total = totals.Total
		order.IsQuoteOnly = totals.QuoteOnly
		order.ClickAndCollect = b.ClickAndCollect
		order.Billing = snapshotAddress(b.Billing)
		order.Delivery = snapshotAddress(b.Delivery)
		order.FullName = order.Billing.FullName()
		order.DeliveryOptionID = b.DeliveryOptionID
		order.DeliveryOptionTitle = b.DeliveryOptionTitle

		if err := repo.Save(order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Place moves an invoice or zero-amount order into its placed state and
// runs the stock adjustment.
func (s *OrderService) Place(orderID uint) (*models.Order, error) {
	var target string
	order, err := s.transition(orderID, func(order *models.Order) (string, error) {
		switch order.Status {
		case constants.OrderStatusCheckoutInvoice:
			target = constants.OrderStatusPlacedInvoice
		case constants.OrderStatusCheckoutZeroAmount:
			target = constants.OrderStatusPlacedZeroAmount
		default:
			return "", ErrIllegalStateTransition
		}
		return target, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Advance applies a merchant-driven fulfilment transition such as
// processing, shipped or collected.
func (s *OrderService) Advance(orderID uint, target string) (*models.Order, error) {
	return s.transition(orderID, func(order *models.Order) (string, error) {
		return target, nil
	})
}

// transition loads the order under a row lock, validates the move,
// applies side effects and persists, all in one transaction. The status
// email task is enqueued after commit.
func (s *OrderService) transition(orderID uint, pick func(*models.Order) (string, error)) (*models.Order, error) {
	var result *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		target, err := pick(order)
		if err != nil {
			return err
		}
		if !canTransition(order, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, order.Status, target)
		}

		order.Status = target
		if confirmedStatuses[target] && s.adjuster != nil {
			if err := s.adjuster.AdjustForOrder(tx, order); err != nil {
				return err
			}
		}
		if err := repo.Save(order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatus(result)
	logger.Infow("order_status_changed",
		"order_ref", result.OrderID,
		"status", result.Status,
	)
	return result, nil
}

func (s *OrderService) notifyStatus(order *models.Order) {
	if s.queueClient == nil || order.Email == "" {
		return
	}
	err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
		OrderID:  order.ID,
		OrderRef: order.OrderID,
		Email:    order.Email,
		Status:   order.Status,
	})
	if err != nil {
		logger.Warnw("order_status_email_enqueue_failed",
			"order_ref", order.OrderID,
			"error", err,
		)
	}
}

// SetTracking records the shipment tracking reference on an order.
func (s *OrderService) SetTracking(orderID uint, provider, code string) (*models.Order, error) {
	if provider != "" && len(s.shopCfg.Tracking) > 0 {
		known := false
		for _, candidate := range s.shopCfg.Tracking {
			if candidate.Name == provider {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown tracking provider %q", provider)
		}
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	order.TrackingProvider = provider
	order.TrackingCode = code
	if err := s.orderRepo.Save(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetBySecretID loads an order through its customer-facing token.
func (s *OrderService) GetBySecretID(secretID string) (*models.Order, error) {
	order, err := s.orderRepo.GetBySecretID(secretID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByID loads an order by primary key.
func (s *OrderService) GetByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListForCustomer returns a customer's orders, newest first.
func (s *OrderService) ListForCustomer(customerID uint, page, pageSize int) ([]models.Order, int64, error) {
	return s.orderRepo.List(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
	})
}

// RestoreBasket rebuilds the order's serialised basket for display.
func (s *OrderService) RestoreBasket(order *models.Order) (*basket.Basket, error) {
	return basket.Restore(order.BasketJSON, s.shopCfg.MaxQuantity, s.shopCfg.DefaultCountry)
}

// selectGateway picks the provider for new checkouts. Test mode always
// routes to the test provider when it is registered.
func (s *OrderService) selectGateway(moto bool) (gateway.Gateway, error) {
	if s.shopCfg.TestMode {
		if gw, err := s.registry.Get(0); err == nil {
			return gw, nil
		}
	}
	gw, err := s.registry.Default()
	if err != nil {
		return nil, err
	}
	if moto && !gw.CanMoto() {
		for _, candidate := range s.registry.List() {
			if candidate.CanMoto() {
				return candidate, nil
			}
		}
	}
	return gw, nil
}

// createWithReferences generates the public and secret references and
// inserts the order, retrying alpha references on collision.
func (s *OrderService) createWithReferences(order *models.Order) error {
	secretID, err := generateSecretID()
	if err != nil {
		return err
	}
	order.SecretID = secretID

	for attempt := 0; attempt < 5; attempt++ {
		ref, err := s.generateOrderRef()
		if err != nil {
			return err
		}
		order.OrderID = ref
		existing, err := s.orderRepo.GetByOrderID(ref)
		if err != nil {
			return err
		}
		if existing == nil {
			return s.orderRepo.Create(order)
		}
		// Only the alpha format can collide; counters are monotonic.
		if s.shopCfg.OrderID.Format != constants.OrderIDFormatAlpha {
			break
		}
	}
	return fmt.Errorf("order reference generation exhausted retries")
}

// generateOrderRef builds the public order reference in the configured
// format, wrapped in the optional merchant prefix and suffix.
func (s *OrderService) generateOrderRef() (string, error) {
	var body string
	switch s.shopCfg.OrderID.Format {
	case constants.OrderIDFormatSeq:
		n, err := s.orderRepo.NextCounter("order_seq")
		if err != nil {
			return "", err
		}
		body = fmt.Sprintf("%d", n)
	case constants.OrderIDFormatAlpha:
		ref, err := randomAlphaRef(8)
		if err != nil {
			return "", err
		}
		body = ref
	default: // numeric: YYMM plus a monotonic counter
		n, err := s.orderRepo.NextCounter("order_numeric")
		if err != nil {
			return "", err
		}
		body = fmt.Sprintf("%s%05d", time.Now().Format("0601"), n)
	}
	return s.shopCfg.OrderID.Prefix + body + s.shopCfg.OrderID.Suffix, nil
}

const alphaRefAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomAlphaRef(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphaRefAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphaRefAlphabet[n.Int64()]
	}
	return string(out), nil
}

// generateSecretID returns a URL-safe token with 128 bits of entropy.
func generateSecretID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// snapshotAddress normalises an address for storage. US addresses carry
// the state in the county column.
func snapshotAddress(a models.Address) models.Address {
	if a.Country == "US" && a.State != "" {
		a.County = a.State
	}
	a.State = ""
	return a
}
