package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/provider"
	"github.com/cubaneorg/cubane-sub000/internal/queue"
	"github.com/cubaneorg/cubane-sub000/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles queued shop tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds the handlers onto the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderStatusEmail, c.handleOrderStatusEmail)
	mux.HandleFunc(queue.TaskApprovalTimeoutSweep, c.handleApprovalTimeoutSweep)
	mux.HandleFunc(queue.TaskStockOversellNotify, c.handleStockOversellNotify)
}

func (c *Consumer) handleOrderStatusEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_status_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderStatusEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_status_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_status_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_status_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_status_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	receiverEmail := strings.TrimSpace(payload.Email)
	if receiverEmail == "" {
		receiverEmail = strings.TrimSpace(order.Email)
	}
	if receiverEmail == "" {
		logger.Debugw("worker_order_status_email_skip_empty_receiver", "order_id", order.ID, "order_ref", order.OrderID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_order_status_email_skip_email_service_nil", "order_id", order.ID, "order_ref", order.OrderID)
		return nil
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = order.Status
	}
	input := service.OrderStatusEmailInput{
		OrderRef:     order.OrderID,
		Status:       status,
		Total:        order.Total,
		Currency:     c.Config.Shop.Currency,
		TrackingInfo: c.buildTrackingInfo(order),
	}
	if err := c.EmailService.SendOrderStatusEmail(receiverEmail, input); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_order_status_email_skip_disabled", "order_id", order.ID, "order_ref", order.OrderID)
			return nil
		}
		logger.Warnw("worker_order_status_email_send_failed",
			"order_id", order.ID,
			"order_ref", order.OrderID,
			"receiver_email", receiverEmail,
			"status", status,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleApprovalTimeoutSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_approval_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ApprovalTimeoutSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_approval_sweep_unmarshal_failed", "error", err)
		return err
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_approval_sweep_skip_payment_service_nil")
		return nil
	}
	swept, err := c.PaymentService.SweepApprovalTimeouts(ctx)
	if err != nil {
		logger.Warnw("worker_approval_sweep_failed", "error", err)
		return err
	}
	if swept > 0 {
		logger.Infow("worker_approval_sweep_done", "swept", swept)
	}
	return nil
}

func (c *Consumer) handleStockOversellNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_oversell_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.StockOversellNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_oversell_notify_unmarshal_failed", "error", err)
		return err
	}
	notifyEmail := strings.TrimSpace(c.Config.Shop.NotifyEmail)
	if notifyEmail == "" || c.EmailService == nil {
		logger.Warnw("worker_oversell_notify_no_receiver",
			"order_id", payload.OrderID,
			"order_ref", payload.OrderRef,
			"product_id", payload.ProductID,
			"requested", payload.Requested,
			"applied", payload.Applied,
		)
		return nil
	}
	detail := fmt.Sprintf("Product %d: requested %d, adjusted %d.", payload.ProductID, payload.Requested, payload.Applied)
	if payload.SKUID != 0 {
		detail = fmt.Sprintf("Product %d (SKU %d): requested %d, adjusted %d.", payload.ProductID, payload.SKUID, payload.Requested, payload.Applied)
	}
	if err := c.EmailService.SendOversellNotice(notifyEmail, payload.OrderRef, detail); err != nil {
		if errors.Is(err, service.ErrEmailServiceDisabled) || errors.Is(err, service.ErrEmailServiceNotConfigured) {
			logger.Debugw("worker_oversell_notify_skip_disabled", "order_ref", payload.OrderRef)
			return nil
		}
		logger.Warnw("worker_oversell_notify_send_failed", "order_ref", payload.OrderRef, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) buildTrackingInfo(order *models.Order) string {
	if order == nil || order.TrackingCode == "" {
		return ""
	}
	for _, p := range c.Config.Shop.Tracking {
		if strings.EqualFold(p.Name, order.TrackingProvider) && p.URL != "" {
			return fmt.Sprintf("%s %s (%s%s)", order.TrackingProvider, order.TrackingCode, p.URL, order.TrackingCode)
		}
	}
	if order.TrackingProvider != "" {
		return order.TrackingProvider + " " + order.TrackingCode
	}
	return order.TrackingCode
}
