package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/queue"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"gorm.io/gorm"
)

// PaymentService coordinates orders against the payment providers:
// registration, the asynchronous callback, the preauth approval cycle,
// cancellation and fulfilment. Every state change re-loads the order
// under a row lock; irreversible provider calls (settle, abort, cancel,
// fulfil) happen inside that lock so they run at most once per order.
type PaymentService struct {
	orderRepo   repository.OrderRepository
	registry    *gateway.Registry
	adjuster    *StockAdjuster
	queueClient *queue.Client
	shopCfg     config.ShopConfig
}

// NewPaymentService creates the payment coordinator.
func NewPaymentService(orderRepo repository.OrderRepository, registry *gateway.Registry, adjuster *StockAdjuster, queueClient *queue.Client, shopCfg config.ShopConfig) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		registry:    registry,
		adjuster:    adjuster,
		queueClient: queueClient,
		shopCfg:     shopCfg,
	}
}

// RegisterResult is the outcome of opening a payment.
type RegisterResult struct {
	Order       *models.Order
	RedirectURL string
}

// Register moves the order to payment_awaiting and opens a transaction
// with its provider. A transport failure is retried once under the same
// idempotency key; a second failure parks the order in payment_error.
// Calling Register on an order already past checkout fails with
// ErrAlreadyRegistered; invoice and zero-amount orders have nothing to
// pay and refuse with ErrIllegalStateTransition.
func (s *PaymentService) Register(ctx context.Context, orderID uint, clientIP string) (*RegisterResult, error) {
	var order *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		switch locked.Status {
		case constants.OrderStatusCheckout, constants.OrderStatusNewOrder:
		case constants.OrderStatusCheckoutInvoice, constants.OrderStatusCheckoutZeroAmount:
			// Invoice and zero-amount orders never take a payment.
			return fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, locked.Status, constants.OrderStatusPaymentAwaiting)
		default:
			return ErrAlreadyRegistered
		}
		locked.Status = constants.OrderStatusPaymentAwaiting
		if err := repo.Save(locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	gw, err := s.registry.Get(order.GatewayID)
	if err != nil {
		return nil, err
	}
	preauth := s.shopCfg.Preauth && gw.HasPreauth()
	req := gateway.RegisterRequest{
		OrderRef:       order.OrderID,
		IdempotencyKey: order.OrderID,
		Amount:         order.Total,
		Currency:       s.shopCfg.Currency,
		Description:    "Order " + order.OrderID,
		Preauth:        preauth,
		CustomerEmail:  order.Email,
		ClientIP:       clientIP,
	}

	result, err := gw.Register(ctx, req)
	if errors.Is(err, gateway.ErrTransport) {
		logger.Warnw("payment_register_retry",
			"order_ref", order.OrderID,
			"gateway", gw.Name(),
		)
		result, err = gw.Register(ctx, req)
	}
	if err != nil {
		target := constants.OrderStatusPaymentError
		if errors.Is(err, gateway.ErrDeclined) {
			target = constants.OrderStatusPaymentDeclined
		}
		if failErr := s.parkFailed(order.ID, target); failErr != nil {
			logger.Errorw("payment_register_fail_state_error",
				"order_ref", order.OrderID,
				"error", failErr,
			)
		}
		return nil, fmt.Errorf("%w: %v", gateway.ErrRegistrationFailed, err)
	}

	details := models.JSON{}
	for k, v := range result.Details {
		details[k] = v
	}
	details["transaction_id"] = result.TransactionID
	err = s.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"payment_details": details,
		"preauth":         result.Preauth,
	})
	if err != nil {
		return nil, err
	}
	order.PaymentDetails = details
	order.Preauth = result.Preauth

	logger.Infow("payment_registered",
		"order_ref", order.OrderID,
		"gateway", gw.Name(),
		"preauth", result.Preauth,
	)
	return &RegisterResult{Order: order, RedirectURL: result.RedirectURL}, nil
}

// Confirm applies an asynchronous provider callback. A success for a
// cancelled or already-settled order is not applied; it is recorded as
// an inconsistent callback instead.
func (s *PaymentService) Confirm(gatewayID int, payload map[string]string) (*models.Order, error) {
	gw, err := s.registry.Get(gatewayID)
	if err != nil {
		return nil, err
	}
	outcome, err := gw.ParseCallback(payload)
	if err != nil {
		return nil, err
	}

	var result *models.Order
	var inconsistent *models.OrderEvent
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		found, err := repo.GetByOrderID(outcome.OrderRef)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrOrderNotFound
		}
		order, err := repo.GetByIDForUpdate(found.ID)
		if err != nil {
			return err
		}

		logger.Infow("payment_callback_received",
			"order_ref", order.OrderID,
			"gateway", gw.Name(),
			"state", outcome.State,
		)

		if order.Cancelled || order.Status != constants.OrderStatusPaymentAwaiting {
			// The event must outlive the rollback of this transaction,
			// so it is written after commit.
			inconsistent = &models.OrderEvent{
				OrderID: order.ID,
				Type:    constants.OrderEventInconsistentCallback,
				Detail: models.JSON{
					"state":          outcome.State,
					"order_status":   order.Status,
					"cancelled":      order.Cancelled,
					"transaction_id": outcome.TransactionID,
				},
			}
			return nil
		}

		var target string
		switch outcome.State {
		case constants.TxnStateAuthorised:
			target = constants.OrderStatusPaymentConfirmed
		case constants.TxnStateDeclined:
			target = constants.OrderStatusPaymentDeclined
		default:
			target = constants.OrderStatusPaymentError
		}

		order.Status = target
		if target == constants.OrderStatusPaymentConfirmed {
			now := time.Now()
			order.PaymentConfirmedAt = &now
			if outcome.Preauth {
				order.Preauth = true
				order.ApprovalStatus = constants.ApprovalStatusWaiting
			}
			if len(outcome.Details) > 0 {
				order.PaymentDetails = mergeDetails(order.PaymentDetails, outcome.Details)
			}
			if s.adjuster != nil {
				if err := s.adjuster.AdjustForOrder(tx, order); err != nil {
					return err
				}
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
	if inconsistent != nil {
		if err := s.orderRepo.CreateEvent(inconsistent); err != nil {
			logger.Errorw("payment_callback_event_store_failed",
				"order_id", inconsistent.OrderID,
				"error", err,
			)
		}
		return nil, ErrInconsistentCallback
	}

	s.notifyStatus(result)
	logger.Infow("payment_callback_applied",
		"order_ref", result.OrderID,
		"status", result.Status,
		"approval_status", result.ApprovalStatus,
	)
	return result, nil
}

// Approve settles a preauthorised order awaiting approval and notifies
// the customer. The decision runs under the order row lock so two
// concurrent approvals cannot both reach the provider.
func (s *PaymentService) Approve(ctx context.Context, orderID uint) (*models.Order, error) {
	var result *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, gw, err := s.lockApprovalWaiting(repo, orderID)
		if err != nil {
			return err
		}
		if err := gw.Settle(ctx, transactionID(order), order.Total); err != nil {
			return err
		}
		now := time.Now()
		order.ApprovalStatus = constants.ApprovalStatusApproved
		order.Settled = true
		order.ApprovalDecidedAt = &now
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
	logger.Infow("payment_approved", "order_ref", result.OrderID)
	return result, nil
}

// Reject aborts a preauthorised order awaiting approval, storing the
// merchant's reason. Like Approve, it decides under the row lock.
func (s *PaymentService) Reject(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	var result *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, gw, err := s.lockApprovalWaiting(repo, orderID)
		if err != nil {
			return err
		}
		if err := gw.Abort(ctx, transactionID(order)); err != nil {
			return err
		}
		now := time.Now()
		order.ApprovalStatus = constants.ApprovalStatusRejected
		order.Aborted = true
		order.RejectReason = reason
		order.ApprovalDecidedAt = &now
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
	logger.Infow("payment_rejected", "order_ref", result.OrderID, "reason", reason)
	return result, nil
}

// CancelAwaiting lets the customer abandon an order that is still
// waiting on the provider. A later success callback for it is treated
// as inconsistent.
func (s *PaymentService) CancelAwaiting(orderID uint) (*models.Order, error) {
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
		if order.Status != constants.OrderStatusPaymentAwaiting {
			return ErrCancelNotAllowed
		}
		now := time.Now()
		order.Status = constants.OrderStatusPaymentCancelled
		order.Cancelled = true
		order.CancelledAt = &now
		if err := repo.Save(order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_awaiting_cancelled", "order_ref", result.OrderID)
	return result, nil
}

// Cancel voids a captured payment. Only possible when the provider
// supports it, the payment was not preauthorised and the order was
// actually confirmed. The pre-conditions are checked under the row lock
// so a concurrent cancel cannot void the transaction twice.
func (s *PaymentService) Cancel(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	var result *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := lockOrder(repo, orderID)
		if err != nil {
			return err
		}
		gw, err := s.registry.Get(order.GatewayID)
		if err != nil {
			return err
		}
		if !gw.HasCancel() || order.Preauth || order.Cancelled || !order.PaymentConfirmed() {
			return ErrCancelNotAllowed
		}
		if err := gw.Cancel(ctx, transactionID(order)); err != nil {
			return err
		}
		now := time.Now()
		order.Status = constants.OrderStatusPaymentCancelled
		order.Cancelled = true
		order.RejectReason = reason
		order.CancelledAt = &now
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
	logger.Infow("payment_cancelled", "order_ref", result.OrderID, "reason", reason)
	return result, nil
}

// Fulfil notifies the provider that the goods went out. Irreversible;
// the fulfilled flag flips under the row lock so the provider hears
// about each order once.
func (s *PaymentService) Fulfil(ctx context.Context, orderID uint) (*models.Order, error) {
	var result *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := lockOrder(repo, orderID)
		if err != nil {
			return err
		}
		gw, err := s.registry.Get(order.GatewayID)
		if err != nil {
			return err
		}
		if !gw.HasFulfilment() || order.Fulfilled || !order.PaymentConfirmed() {
			return ErrFulfilNotAllowed
		}
		switch order.ApprovalStatus {
		case constants.ApprovalStatusWaiting,
			constants.ApprovalStatusRejected,
			constants.ApprovalStatusTimeout:
			return ErrFulfilNotAllowed
		}
		if err := gw.Fulfil(ctx, transactionID(order)); err != nil {
			return err
		}
		order.Fulfilled = true
		if err := repo.Save(order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payment_fulfilled", "order_ref", result.OrderID)
	return result, nil
}

// SweepApprovalTimeouts times out approval-waiting orders older than
// the configured TTL, aborting each reservation with its provider.
func (s *PaymentService) SweepApprovalTimeouts(ctx context.Context) (int, error) {
	ttl := time.Duration(s.shopCfg.ApprovalTTLHours) * time.Hour
	cutoff := time.Now().Add(-ttl)
	orders, err := s.orderRepo.ListApprovalWaitingBefore(cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range orders {
		candidate := &orders[i]
		gw, err := s.registry.Get(candidate.GatewayID)
		if err != nil {
			logger.Warnw("approval_sweep_gateway_missing",
				"order_ref", candidate.OrderID,
				"gateway_id", candidate.GatewayID,
			)
			continue
		}

		// Re-validated under the row lock: a merchant may have decided
		// the approval between the listing and this pass.
		err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
			repo := s.orderRepo.WithTx(tx)
			order, err := lockOrder(repo, candidate.ID)
			if err != nil {
				return err
			}
			if order.ApprovalStatus != constants.ApprovalStatusWaiting {
				return nil
			}
			if err := gw.Abort(ctx, transactionID(order)); err != nil {
				return err
			}
			now := time.Now()
			order.ApprovalStatus = constants.ApprovalStatusTimeout
			order.Aborted = true
			order.ApprovalDecidedAt = &now
			if err := repo.Save(order); err != nil {
				return err
			}
			event := &models.OrderEvent{
				OrderID: order.ID,
				Type:    constants.OrderEventApprovalTimeout,
				Detail: models.JSON{
					"payment_confirmed_at": order.PaymentConfirmedAt,
					"ttl_hours":            s.shopCfg.ApprovalTTLHours,
				},
			}
			if err := repo.CreateEvent(event); err != nil {
				return err
			}
			swept++
			logger.Infow("approval_timeout_swept", "order_ref", order.OrderID)
			return nil
		})
		if err != nil {
			logger.Warnw("approval_sweep_abort_failed",
				"order_ref", candidate.OrderID,
				"error", err,
			)
		}
	}
	return swept, nil
}

// lockOrder loads an order under a row lock inside the caller's
// transaction.
func lockOrder(repo repository.OrderRepository, orderID uint) (*models.Order, error) {
	order, err := repo.GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *PaymentService) lockApprovalWaiting(repo repository.OrderRepository, orderID uint) (*models.Order, gateway.Gateway, error) {
	order, err := lockOrder(repo, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.ApprovalStatus != constants.ApprovalStatusWaiting {
		return nil, nil, ErrApprovalNotWaiting
	}
	gw, err := s.registry.Get(order.GatewayID)
	if err != nil {
		return nil, nil, err
	}
	return order, gw, nil
}

// parkFailed moves an order into a failure state after a registration
// error, subject to the transition table.
func (s *PaymentService) parkFailed(orderID uint, target string) error {
	return s.orderRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		order, err := repo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !canTransition(order, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, order.Status, target)
		}
		order.Status = target
		return repo.Save(order)
	})
}

func (s *PaymentService) notifyStatus(order *models.Order) {
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

// transactionID pulls the provider transaction reference from the
// stored pending-transaction details.
func transactionID(order *models.Order) string {
	if order.PaymentDetails == nil {
		return ""
	}
	if v, ok := order.PaymentDetails["transaction_id"].(string); ok {
		return v
	}
	return ""
}

func mergeDetails(existing models.JSON, extra map[string]interface{}) models.JSON {
	if existing == nil {
		existing = models.JSON{}
	}
	for k, v := range extra {
		existing[k] = v
	}
	return existing
}
