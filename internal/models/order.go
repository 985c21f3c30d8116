package models

import (
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"

	"gorm.io/gorm"
)

// Address is a denormalised postal address snapshot. For US addresses
// County carries the state.
type Address struct {
	Title     string `gorm:"type:varchar(20)" json:"title,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	Line3     string `json:"line3,omitempty"`
	City      string `json:"city"`
	County    string `json:"county,omitempty"`
	State     string `gorm:"-" json:"state,omitempty"` // US input only; folded into County on snapshot
	Postcode  string `json:"postcode"`
	Country   string `gorm:"type:varchar(2)" json:"country"` // ISO 3166-1 alpha-2
}

// FullName joins the name parts.
func (a Address) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// IsComplete reports whether the fields checkout requires are present.
func (a Address) IsComplete() bool {
	return a.FirstName != "" && a.LastName != "" && a.Line1 != "" &&
		a.City != "" && a.Postcode != "" && a.Country != ""
}

// Order is the immutable-ish snapshot of a basket taken at checkout.
// Status only moves along the transition table in the order service; the
// serialised basket keeps the order self-describing even if the catalog
// changes afterwards.
type Order struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	OrderID        string `gorm:"uniqueIndex;not null" json:"order_id"`
	SecretID       string `gorm:"uniqueIndex;not null" json:"-"`
	Status         string `gorm:"index;not null" json:"status"`
	ApprovalStatus string `gorm:"index;not null;default:'none'" json:"approval_status"`
	LoanStatus     string `gorm:"not null;default:'none'" json:"loan_status"`
	CustomerID     *uint  `gorm:"index" json:"customer_id,omitempty"` // nil = guest
	GuestEmail     string `gorm:"index" json:"guest_email,omitempty"`

	FullName        string  `json:"full_name"`
	Email           string  `gorm:"index" json:"email"`
	Telephone       string  `gorm:"type:varchar(40)" json:"telephone,omitempty"`
	Billing         Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing"`
	Delivery        Address `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery"`
	ClickAndCollect bool    `gorm:"default:false" json:"click_and_collect"`

	BasketJSON string `gorm:"type:text" json:"-"` // serialised basket, layout v2

	SubTotal               Money `gorm:"type:decimal(20,2);not null;default:0" json:"sub_total"`
	SubTotalBeforeDelivery Money `gorm:"type:decimal(20,2);not null;default:0" json:"sub_total_before_delivery"`
	DeliveryCharge         Money `gorm:"type:decimal(20,2);not null;default:0" json:"delivery"`
	DiscountAmount         Money `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`
	Total                  Money `gorm:"type:decimal(20,2);not null;default:0" json:"total"`
	IsQuoteOnly            bool  `gorm:"default:false" json:"is_quote_only"`
	Invoice                bool  `gorm:"default:false" json:"invoice"`

	VoucherID           *uint  `gorm:"index" json:"voucher_id,omitempty"`
	VoucherCode         string `json:"voucher_code,omitempty"`
	VoucherTitle        string `json:"voucher_title,omitempty"`
	VoucherValue        Money  `gorm:"type:decimal(20,2);not null;default:0" json:"voucher_value"`
	DeliveryOptionID    *uint  `gorm:"index" json:"delivery_option_id,omitempty"`
	DeliveryOptionTitle string `json:"delivery_option_title,omitempty"`
	FinanceOptionID     *uint  `gorm:"index" json:"finance_option_id,omitempty"`
	LoanDeposit         int    `gorm:"default:0" json:"loan_deposit"` // percent

	Survey              string `json:"survey,omitempty"`
	SpecialRequirements string `gorm:"type:text" json:"special_requirements,omitempty"`

	GatewayID      int    `gorm:"index;default:0" json:"gateway_id"`
	PaymentDetails JSON   `gorm:"type:json" json:"-"` // gateway pending-transaction blob
	Preauth        bool   `gorm:"default:false" json:"preauth"`
	Settled        bool   `gorm:"default:false" json:"settled"`
	Aborted        bool   `gorm:"default:false" json:"aborted"`
	Fulfilled      bool   `gorm:"default:false" json:"fulfilled"`
	Cancelled      bool   `gorm:"default:false" json:"cancelled"`
	RejectReason   string `gorm:"type:text" json:"reject_reason,omitempty"`

	TrackingProvider string `json:"tracking_provider,omitempty"`
	TrackingCode     string `json:"tracking_code,omitempty"`

	PaymentConfirmedAt *time.Time     `gorm:"index" json:"payment_confirmed_at,omitempty"`
	ApprovalDecidedAt  *time.Time     `json:"approval_decided_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Customer *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Events   []OrderEvent `gorm:"foreignKey:OrderID" json:"events,omitempty"`
}

// TableName names the table.
func (Order) TableName() string {
	return "orders"
}

// PaymentConfirmed reports whether money was captured or reserved.
func (o *Order) PaymentConfirmed() bool {
	return o.PaymentConfirmedAt != nil
}

// RemainingBalance is the amount still owed: the full total while payment
// is unconfirmed or the preauth reservation was never captured; zero once
// money actually moved.
func (o *Order) RemainingBalance() Money {
	if !o.PaymentConfirmed() {
		return o.Total
	}
	switch o.ApprovalStatus {
	case constants.ApprovalStatusWaiting,
		constants.ApprovalStatusRejected,
		constants.ApprovalStatusTimeout:
		return o.Total
	}
	return ZeroMoney()
}

// Editable reports whether basket-derived fields may still be recomputed.
// Only backend-entered orders that have not been priced remain editable.
func (o *Order) Editable() bool {
	if o.PaymentConfirmed() || o.Fulfilled {
		return false
	}
	return o.Status == constants.OrderStatusNewOrder
}

// OrderEvent records a domain incident against an order, such as an
// oversell attempt or an inconsistent gateway callback.
type OrderEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Type      string    `gorm:"index;not null" json:"type"`
	Detail    JSON      `gorm:"type:json" json:"detail,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName names the table.
func (OrderEvent) TableName() string {
	return "order_events"
}

// OrderCounter backs the monotonic part of public order references.
type OrderCounter struct {
	Name  string `gorm:"primarykey" json:"name"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}

// TableName names the table.
func (OrderCounter) TableName() string {
	return "order_counters"
}
