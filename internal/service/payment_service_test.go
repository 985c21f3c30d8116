package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/gateway/testgateway"
	"github.com/cubaneorg/cubane-sub000/internal/models"
)

func registerPayment(t *testing.T, env *checkoutTestEnv, orderID uint) *RegisterResult {
	t.Helper()
	result, err := env.payments.Register(context.Background(), orderID, "203.0.113.1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return result
}

func confirmPayment(t *testing.T, env *checkoutTestEnv, orderRef string) *models.Order {
	t.Helper()
	order, err := env.payments.Confirm(testgateway.Identifier, map[string]string{"order_ref": orderRef})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	return order
}

func TestRegisterOpensTransaction(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	result := registerPayment(t, env, order.ID)

	if result.RedirectURL == "" {
		t.Errorf("expected redirect URL")
	}
	if result.Order.Status != constants.OrderStatusPaymentAwaiting {
		t.Errorf("expected payment_awaiting, got %s", result.Order.Status)
	}
	if len(env.gw.Registers) != 1 {
		t.Fatalf("expected 1 register call, got %d", len(env.gw.Registers))
	}
	req := env.gw.Registers[0]
	if req.OrderRef != order.OrderID || req.IdempotencyKey != order.OrderID {
		t.Errorf("expected order ref as idempotency key, got %+v", req)
	}
	if req.Currency != "GBP" || req.Amount.String() != "250.00" {
		t.Errorf("unexpected amount: %s %s", req.Amount, req.Currency)
	}

	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.PaymentDetails["transaction_id"] == nil {
		t.Errorf("expected transaction id stored, got %+v", reloaded.PaymentDetails)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	registerPayment(t, env, order.ID)
	if _, err := env.payments.Register(context.Background(), order.ID, ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterRetriesTransportFailureOnce(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	env.gw.FailRegisterOnce = true
	result := registerPayment(t, env, order.ID)
	if result.Order.Status != constants.OrderStatusPaymentAwaiting {
		t.Errorf("expected recovery after one transport failure, got %s", result.Order.Status)
	}
	if len(env.gw.Registers) != 1 {
		t.Errorf("expected the retry to reach the provider once, got %d", len(env.gw.Registers))
	}
}

func TestRegisterPersistentFailureParksOrder(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	env.gw.FailRegister = true
	_, err := env.payments.Register(context.Background(), order.ID, "")
	if !errors.Is(err, gateway.ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}

	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaymentError {
		t.Errorf("expected payment_error, got %s", reloaded.Status)
	}
}

func TestConfirmAuthorisedCallback(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 5)
	order := placeOrder(t, env, checkoutBasket(t, product, 2))
	registerPayment(t, env, order.ID)

	confirmed := confirmPayment(t, env, order.OrderID)

	if confirmed.Status != constants.OrderStatusPaymentConfirmed {
		t.Errorf("expected payment_confirmed, got %s", confirmed.Status)
	}
	if !confirmed.PaymentConfirmed() {
		t.Errorf("expected payment timestamp set")
	}
	if confirmed.RemainingBalance().String() != "0.00" {
		t.Errorf("expected zero remaining balance, got %s", confirmed.RemainingBalance())
	}

	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.StockLevel != 3 {
		t.Errorf("expected stock 3 after confirmation, got %d", reloaded.StockLevel)
	}
}

func TestConfirmDeclinedCallback(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAuto, 5)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	registerPayment(t, env, order.ID)

	declined, err := env.payments.Confirm(testgateway.Identifier, map[string]string{
		"order_ref": order.OrderID,
		"state":     constants.TxnStateDeclined,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if declined.Status != constants.OrderStatusPaymentDeclined {
		t.Errorf("expected payment_declined, got %s", declined.Status)
	}
	if declined.PaymentConfirmed() {
		t.Errorf("declined order must not carry a confirmation timestamp")
	}

	// Stock untouched on decline.
	reloaded, err := env.productRepo.GetByID(product.ID)
	if err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.StockLevel != 5 {
		t.Errorf("expected stock 5, got %d", reloaded.StockLevel)
	}
}

func TestConfirmAfterCancelRecordsInconsistentCallback(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	registerPayment(t, env, order.ID)

	cancelled, err := env.payments.CancelAwaiting(order.ID)
	if err != nil {
		t.Fatalf("cancel awaiting failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusPaymentCancelled {
		t.Errorf("expected payment_cancelled, got %s", cancelled.Status)
	}

	// Late provider success must not resurrect the order.
	_, err = env.payments.Confirm(testgateway.Identifier, map[string]string{"order_ref": order.OrderID})
	if !errors.Is(err, ErrInconsistentCallback) {
		t.Fatalf("expected ErrInconsistentCallback, got %v", err)
	}

	events, err := env.orderRepo.ListEvents(order.ID)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != constants.OrderEventInconsistentCallback {
		t.Errorf("expected inconsistent_callback event, got %+v", events)
	}

	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaymentCancelled {
		t.Errorf("order state changed by inconsistent callback: %s", reloaded.Status)
	}
}

func TestCancelAwaitingOnlyFromAwaitingState(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))

	if _, err := env.payments.CancelAwaiting(order.ID); !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("expected ErrCancelNotAllowed before registration, got %v", err)
	}
}

func preauthConfirmedOrder(t *testing.T, env *checkoutTestEnv) *models.Order {
	t.Helper()
	product := createCheckoutProduct(t, env.db, "sofa-preauth", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	env.gw.Preauth = true
	registerPayment(t, env, order.ID)
	return confirmPayment(t, env, order.OrderID)
}

func TestPreauthCallbackEntersApprovalWaiting(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	if confirmed.ApprovalStatus != constants.ApprovalStatusWaiting {
		t.Errorf("expected approval waiting, got %s", confirmed.ApprovalStatus)
	}
	if !confirmed.Preauth {
		t.Errorf("expected preauth flag set")
	}
	// The reservation is not money in the bank yet.
	if confirmed.RemainingBalance().String() != "250.00" {
		t.Errorf("expected full remaining balance while waiting, got %s", confirmed.RemainingBalance())
	}
}

func TestApproveSettlesReservation(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	approved, err := env.payments.Approve(context.Background(), confirmed.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.ApprovalStatus != constants.ApprovalStatusApproved || !approved.Settled {
		t.Errorf("expected approved and settled, got %+v", approved)
	}
	if len(env.gw.Settles) != 1 {
		t.Errorf("expected 1 settle call, got %d", len(env.gw.Settles))
	}
	if approved.RemainingBalance().String() != "0.00" {
		t.Errorf("expected zero balance after approval, got %s", approved.RemainingBalance())
	}

	// Second decision is refused.
	if _, err := env.payments.Approve(context.Background(), confirmed.ID); !errors.Is(err, ErrApprovalNotWaiting) {
		t.Errorf("expected ErrApprovalNotWaiting, got %v", err)
	}
}

func TestRejectAbortsReservationAndFreezesOrder(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	rejected, err := env.payments.Reject(context.Background(), confirmed.ID, "suspected fraud")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.ApprovalStatus != constants.ApprovalStatusRejected || !rejected.Aborted {
		t.Errorf("expected rejected and aborted, got %+v", rejected)
	}
	if rejected.RejectReason != "suspected fraud" {
		t.Errorf("expected reason stored, got %q", rejected.RejectReason)
	}
	if len(env.gw.Aborts) != 1 {
		t.Errorf("expected 1 abort call, got %d", len(env.gw.Aborts))
	}

	// The rejection freezes the state machine.
	if _, err := env.orders.Advance(confirmed.ID, constants.OrderStatusProcessing); !errors.Is(err, ErrIllegalStateTransition) {
		t.Errorf("expected ErrIllegalStateTransition after rejection, got %v", err)
	}
}

func TestApproveRequiresWaitingState(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	registerPayment(t, env, order.ID)
	confirmPayment(t, env, order.OrderID)

	if _, err := env.payments.Approve(context.Background(), order.ID); !errors.Is(err, ErrApprovalNotWaiting) {
		t.Errorf("expected ErrApprovalNotWaiting for non-preauth order, got %v", err)
	}
}

func TestSweepApprovalTimeouts(t *testing.T) {
	cfg := defaultShopConfig()
	cfg.ApprovalTTLHours = 1
	env := setupCheckoutTest(t, cfg)
	stale := preauthConfirmedOrder(t, env)

	// A second waiting order inside the TTL stays untouched.
	product := createCheckoutProduct(t, env.db, "lamp", "60.00", constants.StockPolicyAvailable, 0)
	fresh := placeOrder(t, env, checkoutBasket(t, product, 1))
	registerPayment(t, env, fresh.ID)
	confirmPayment(t, env, fresh.OrderID)

	old := time.Now().Add(-2 * time.Hour)
	if err := env.orderRepo.UpdateFields(stale.ID, map[string]interface{}{"payment_confirmed_at": old}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	swept, err := env.payments.SweepApprovalTimeouts(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if swept != 1 {
		t.Errorf("expected 1 swept order, got %d", swept)
	}

	reloaded, err := env.orderRepo.GetByID(stale.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.ApprovalStatus != constants.ApprovalStatusTimeout || !reloaded.Aborted {
		t.Errorf("expected timeout and aborted, got %+v", reloaded)
	}
	if reloaded.RemainingBalance().String() != "250.00" {
		t.Errorf("expected full balance after timeout, got %s", reloaded.RemainingBalance())
	}

	events, err := env.orderRepo.ListEvents(stale.ID)
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != constants.OrderEventApprovalTimeout {
		t.Errorf("expected approval_timeout event, got %+v", events)
	}

	untouched, err := env.orderRepo.GetByID(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh failed: %v", err)
	}
	if untouched.ApprovalStatus != constants.ApprovalStatusWaiting {
		t.Errorf("fresh order swept early: %s", untouched.ApprovalStatus)
	}
}

func TestCancelCapturedPayment(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa", "250.00", constants.StockPolicyAvailable, 0)
	order := placeOrder(t, env, checkoutBasket(t, product, 1))
	registerPayment(t, env, order.ID)
	confirmPayment(t, env, order.OrderID)

	cancelled, err := env.payments.Cancel(context.Background(), order.ID, "customer request")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.OrderStatusPaymentCancelled || !cancelled.Cancelled {
		t.Errorf("expected cancellation applied, got %+v", cancelled)
	}
	if len(env.gw.Cancels) != 1 {
		t.Errorf("expected 1 provider cancel call, got %d", len(env.gw.Cancels))
	}

	// Cancelling twice is refused.
	if _, err := env.payments.Cancel(context.Background(), order.ID, "again"); !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("expected ErrCancelNotAllowed, got %v", err)
	}
}

func TestCancelRefusedForPreauthOrder(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	if _, err := env.payments.Cancel(context.Background(), confirmed.ID, "no"); !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("expected ErrCancelNotAllowed for preauth order, got %v", err)
	}
}

func TestFulfilRequiresSettledApproval(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	// Waiting approval blocks fulfilment.
	if _, err := env.payments.Fulfil(context.Background(), confirmed.ID); !errors.Is(err, ErrFulfilNotAllowed) {
		t.Errorf("expected ErrFulfilNotAllowed while waiting, got %v", err)
	}

	if _, err := env.payments.Approve(context.Background(), confirmed.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	fulfilled, err := env.payments.Fulfil(context.Background(), confirmed.ID)
	if err != nil {
		t.Fatalf("fulfil failed: %v", err)
	}
	if !fulfilled.Fulfilled {
		t.Errorf("expected fulfilled flag set")
	}
	if len(env.gw.Fulfils) != 1 {
		t.Errorf("expected 1 fulfil call, got %d", len(env.gw.Fulfils))
	}

	// Fulfilment is one-way.
	if _, err := env.payments.Fulfil(context.Background(), confirmed.ID); !errors.Is(err, ErrFulfilNotAllowed) {
		t.Errorf("expected ErrFulfilNotAllowed on repeat, got %v", err)
	}
}

func TestConfirmUnknownGateway(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	if _, err := env.payments.Confirm(99, map[string]string{"order_ref": "X"}); !errors.Is(err, gateway.ErrUnknownGateway) {
		t.Errorf("expected ErrUnknownGateway, got %v", err)
	}
}

func TestRegisterRefusedForInvoiceOrder(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	product := createCheckoutProduct(t, env.db, "sofa-invoice", "250.00", constants.StockPolicyAvailable, 0)
	b := checkoutBasket(t, product, 1)
	b.Invoice = true
	order := placeOrder(t, env, b)

	_, err := env.payments.Register(context.Background(), order.ID, "203.0.113.1")
	if !errors.Is(err, ErrIllegalStateTransition) {
		t.Fatalf("expected ErrIllegalStateTransition, got %v", err)
	}
	if len(env.gw.Registers) != 0 {
		t.Errorf("expected no provider call, got %d", len(env.gw.Registers))
	}
	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCheckoutInvoice {
		t.Errorf("expected order untouched, got %s", reloaded.Status)
	}
}

func TestApproveSettleFailureKeepsOrderApprovable(t *testing.T) {
	env := setupCheckoutTest(t, defaultShopConfig())
	confirmed := preauthConfirmedOrder(t, env)

	env.gw.FailSettle = true
	if _, err := env.payments.Approve(context.Background(), confirmed.ID); err == nil {
		t.Fatalf("expected settle failure to surface")
	}

	// The decision rolls back whole: still waiting, nothing captured.
	reloaded, err := env.orderRepo.GetByID(confirmed.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.ApprovalStatus != constants.ApprovalStatusWaiting {
		t.Errorf("expected approval still waiting, got %s", reloaded.ApprovalStatus)
	}
	if reloaded.Settled {
		t.Errorf("expected order not settled")
	}
	if len(env.gw.Settles) != 0 {
		t.Errorf("expected no recorded capture, got %d", len(env.gw.Settles))
	}

	env.gw.FailSettle = false
	approved, err := env.payments.Approve(context.Background(), confirmed.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !approved.Settled || approved.ApprovalStatus != constants.ApprovalStatusApproved {
		t.Errorf("expected approved and settled order")
	}
	if len(env.gw.Settles) != 1 {
		t.Errorf("expected exactly one capture, got %d", len(env.gw.Settles))
	}
}
