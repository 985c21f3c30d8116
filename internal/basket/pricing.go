package basket

import (
	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"github.com/shopspring/decimal"
)

// Totals is the frozen money breakdown of a basket at a point in time.
type Totals struct {
	SubTotal               models.Money `json:"sub_total"`
	SubTotalBeforeDelivery models.Money `json:"sub_total_before_delivery"`
	Delivery               models.Money `json:"delivery"`
	Discount               models.Money `json:"discount"`
	Total                  models.Money `json:"total"`
	QuoteOnly              bool         `json:"quote_only"`
}

// Totals computes the money figures for the current basket contents:
// line totals, delivery charge by region, voucher discount over the
// eligible lines and the clamped grand total.
func (b *Basket) Totals() Totals {
	subTotal := decimal.Zero
	for _, item := range b.Items {
		subTotal = subTotal.Add(item.Total().Decimal)
	}

	delivery, quoteOnly := b.deliveryCharge(subTotal)
	discount := b.voucherDiscount()
	if b.Voucher != nil && b.Voucher.DiscountType == constants.VoucherTypeFreeDelivery {
		delivery = decimal.Zero
	}

	total := subTotal.Sub(discount).Add(delivery)
	if total.IsNegative() {
		total = decimal.Zero
	}
	beforeDelivery := subTotal.Sub(discount)
	if beforeDelivery.IsNegative() {
		beforeDelivery = decimal.Zero
	}

	return Totals{
		SubTotal:               models.NewMoneyFromDecimal(subTotal),
		SubTotalBeforeDelivery: models.NewMoneyFromDecimal(beforeDelivery),
		Delivery:               models.NewMoneyFromDecimal(delivery),
		Discount:               models.NewMoneyFromDecimal(discount),
		Total:                  models.NewMoneyFromDecimal(total),
		QuoteOnly:              quoteOnly,
	}
}

// deliveryCharge resolves the charge for the selected option and the
// delivery region. The free-delivery threshold is tested against the
// sub-total minus lines exempt from free delivery.
func (b *Basket) deliveryCharge(subTotal decimal.Decimal) (decimal.Decimal, bool) {
	if b.ClickAndCollect {
		return decimal.Zero, false
	}
	option := b.DeliveryOption
	if option == nil {
		return decimal.Zero, false
	}
	region := b.DeliveryRegion()
	if option.RegionQuoteOnly(region) {
		return decimal.Zero, true
	}
	if option.FreeDelivery {
		qualifying := subTotal
		for _, item := range b.Items {
			if item.ExemptFromFreeDelivery {
				qualifying = qualifying.Sub(item.Total().Decimal)
			}
		}
		if qualifying.GreaterThanOrEqual(option.FreeDeliveryThreshold.Decimal) {
			return decimal.Zero, false
		}
	}
	return option.RegionCharge(region).Decimal, false
}

// voucherDiscount computes the discount over the eligible line totals.
// Free-delivery vouchers zero the delivery charge instead and carry no
// discount value.
func (b *Basket) voucherDiscount() decimal.Decimal {
	voucher := b.Voucher
	if voucher == nil || voucher.DiscountType == constants.VoucherTypeFreeDelivery {
		return decimal.Zero
	}

	restricted := voucher.CategoryIDs()
	eligible := decimal.Zero
	for _, item := range b.Items {
		if item.ExemptFromDiscount {
			continue
		}
		if len(restricted) > 0 && !intersects(item.CategoryIDs, restricted) {
			continue
		}
		eligible = eligible.Add(item.Total().Decimal)
	}
	if eligible.IsZero() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch voucher.DiscountType {
	case constants.VoucherTypePercentage:
		discount = eligible.Mul(voucher.DiscountValue.Decimal).Div(decimalFromInt(100)).Round(2)
	case constants.VoucherTypeFixedAmount:
		discount = voucher.DiscountValue.Decimal
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(eligible) {
		discount = eligible
	}
	return discount
}

func intersects(a, b []uint) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
