package queue

import (
	"encoding/json"

	"github.com/cubaneorg/cubane-sub000/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderStatusEmail notifies the customer of an order status change.
	TaskOrderStatusEmail = constants.TaskOrderStatusEmail
	// TaskApprovalTimeoutSweep times out stale approval-waiting orders.
	TaskApprovalTimeoutSweep = constants.TaskApprovalTimeoutSweep
	// TaskStockOversellNotify alerts the merchant about an oversell attempt.
	TaskStockOversellNotify = constants.TaskOversellNotify
)

// OrderStatusEmailPayload carries an order status notification.
type OrderStatusEmailPayload struct {
	OrderID  uint   `json:"order_id"`
	OrderRef string `json:"order_ref"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

// ApprovalTimeoutSweepPayload triggers one sweep run.
type ApprovalTimeoutSweepPayload struct {
	RequestedAt int64 `json:"requested_at"`
}

// StockOversellNotifyPayload describes an oversell attempt.
type StockOversellNotifyPayload struct {
	OrderID   uint   `json:"order_id"`
	OrderRef  string `json:"order_ref"`
	ProductID uint   `json:"product_id"`
	SKUID     uint   `json:"sku_id,omitempty"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
}

// NewOrderStatusEmailTask builds the status email task.
func NewOrderStatusEmailTask(payload OrderStatusEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusEmail, data), nil
}

// NewApprovalTimeoutSweepTask builds a sweep task.
func NewApprovalTimeoutSweepTask(payload ApprovalTimeoutSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskApprovalTimeoutSweep, data), nil
}

// NewStockOversellNotifyTask builds an oversell notification task.
func NewStockOversellNotifyTask(payload StockOversellNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockOversellNotify, data), nil
}
