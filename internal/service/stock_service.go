package service

import (
	"github.com/cubaneorg/cubane-sub000/internal/basket"
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/queue"
	"github.com/cubaneorg/cubane-sub000/internal/repository"

	"gorm.io/gorm"
)

// StockAdjuster decrements stock when an order is confirmed. Only
// products with the auto stock policy are touched; lines that resolved
// a SKU decrement the SKU level instead of the product's. Stock never
// goes below zero; a shortfall records an oversell event and the order
// proceeds regardless, the sale was already priced.
type StockAdjuster struct {
	productRepo repository.ProductRepository
	skuRepo     repository.ProductSKURepository
	orderRepo   repository.OrderRepository
	queueClient *queue.Client
	maxQuantity int
	country     string
}

// NewStockAdjuster creates the stock adjuster.
func NewStockAdjuster(productRepo repository.ProductRepository, skuRepo repository.ProductSKURepository, orderRepo repository.OrderRepository, queueClient *queue.Client, maxQuantity int, country string) *StockAdjuster {
	return &StockAdjuster{
		productRepo: productRepo,
		skuRepo:     skuRepo,
		orderRepo:   orderRepo,
		queueClient: queueClient,
		maxQuantity: maxQuantity,
		country:     country,
	}
}

// AdjustForOrder walks the order's serialised basket inside the given
// transaction and applies the decrements.
func (s *StockAdjuster) AdjustForOrder(tx *gorm.DB, order *models.Order) error {
	restored, err := basket.Restore(order.BasketJSON, s.maxQuantity, s.country)
	if err != nil {
		return err
	}

	productRepo := s.productRepo.WithTx(tx)
	skuRepo := s.skuRepo.WithTx(tx)
	orderRepo := s.orderRepo.WithTx(tx)

	for _, item := range restored.Items {
		product, err := productRepo.GetByID(item.ProductID)
		if err != nil {
			return err
		}
		if product == nil || product.StockPolicy != constants.StockPolicyAuto {
			continue
		}

		var change int
		if item.SKUID != nil {
			change, err = skuRepo.AdjustStock(*item.SKUID, -item.Quantity)
		} else {
			change, err = productRepo.AdjustStock(item.ProductID, -item.Quantity)
		}
		if err != nil {
			return err
		}
		applied := -change
		if applied == item.Quantity {
			continue
		}

		// Shortfall: record and alert, keep the confirmation going.
		detail := models.JSON{
			"product_id": item.ProductID,
			"requested":  item.Quantity,
			"applied":    applied,
		}
		var skuID uint
		if item.SKUID != nil {
			skuID = *item.SKUID
			detail["sku_id"] = skuID
		}
		event := &models.OrderEvent{
			OrderID: order.ID,
			Type:    constants.OrderEventOversellAttempt,
			Detail:  detail,
		}
		if err := orderRepo.CreateEvent(event); err != nil {
			return err
		}
		logger.Warnw("stock_oversell_attempt",
			"order_ref", order.OrderID,
			"product_id", item.ProductID,
			"sku_id", skuID,
			"requested", item.Quantity,
			"applied", applied,
		)
		s.notify(order, item, skuID, applied)
	}
	return nil
}

func (s *StockAdjuster) notify(order *models.Order, item *basket.Item, skuID uint, applied int) {
	if s.queueClient == nil {
		return
	}
	err := s.queueClient.EnqueueStockOversellNotify(queue.StockOversellNotifyPayload{
		OrderID:   order.ID,
		OrderRef:  order.OrderID,
		ProductID: item.ProductID,
		SKUID:     skuID,
		Requested: item.Quantity,
		Applied:   applied,
	})
	if err != nil {
		logger.Warnw("stock_oversell_notify_enqueue_failed",
			"order_ref", order.OrderID,
			"error", err,
		)
	}
}
