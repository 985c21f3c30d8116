package constants

// Order status constants.
const (
	OrderStatusNewOrder           = "new_order"
	OrderStatusCheckout           = "checkout"
	OrderStatusCheckoutInvoice    = "checkout_invoice"
	OrderStatusCheckoutZeroAmount = "checkout_zero_amount"
	OrderStatusPaymentAwaiting    = "payment_awaiting"
	OrderStatusPaymentConfirmed   = "payment_confirmed"
	OrderStatusPlacedInvoice      = "placed_invoice"
	OrderStatusPlacedZeroAmount   = "placed_zero_amount"
	OrderStatusPaymentDeclined    = "payment_declined"
	OrderStatusPaymentError       = "payment_error"
	OrderStatusPaymentCancelled   = "payment_cancelled"
	OrderStatusProcessing         = "processing"
	OrderStatusPartiallyShipped   = "partially_shipped"
	OrderStatusShipped            = "shipped"
	OrderStatusReadyToCollect     = "ready_to_collect"
	OrderStatusCollected          = "collected"
)

// Approval status constants (orthogonal to order status).
const (
	ApprovalStatusNone     = "none"
	ApprovalStatusWaiting  = "waiting"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
	ApprovalStatusTimeout  = "timeout"
)

// Product stock policy constants.
const (
	StockPolicyAvailable   = "available"
	StockPolicyOutOfStock  = "out_of_stock"
	StockPolicyAuto        = "auto"
	StockPolicyMadeToOrder = "made_to_order"
)

// Variety presentation style constants.
const (
	VarietyStyleSelect        = "select"
	VarietyStyleList          = "list"
	VarietyStyleListWithImage = "list_with_image"
	VarietyStyleAttribute     = "attribute"
)

// Variety option offset type constants.
const (
	OffsetTypeNone    = "none"
	OffsetTypeValue   = "value"
	OffsetTypePercent = "percent"
)

// Voucher discount type constants.
const (
	VoucherTypePercentage   = "percentage"
	VoucherTypeFixedAmount  = "fixed_amount"
	VoucherTypeFreeDelivery = "free_delivery"
)

// Delivery region constants.
const (
	RegionUK    = "uk"
	RegionEU    = "eu"
	RegionWorld = "world"
)

// Category/product listing order constants.
const (
	OrderByRelevance    = "relevance"
	OrderByDateAdded    = "date_added"
	OrderByPriceLowHigh = "price_low_high"
	OrderByPriceHighLow = "price_high_low"
	OrderByName         = "name"
)

// Order id format constants.
const (
	OrderIDFormatNumeric = "numeric"
	OrderIDFormatSeq     = "seq"
	OrderIDFormatAlpha   = "alpha"
)

// Order event type constants.
const (
	OrderEventOversellAttempt      = "oversell_attempt"
	OrderEventInconsistentCallback = "inconsistent_callback"
	OrderEventApprovalTimeout      = "approval_timeout"
)

// Gateway transaction state constants.
const (
	TxnStatePending    = "pending"
	TxnStateAuthorised = "authorised"
	TxnStateDeclined   = "declined"
	TxnStateError      = "error"
)

// Async task name constants.
const (
	TaskOrderStatusEmail     = "order:status_email"
	TaskApprovalTimeoutSweep = "order:approval_timeout_sweep"
	TaskOversellNotify       = "stock:oversell_notify"
	QueueDefault             = "default"
)

// Quantity cap for a single basket line.
const MaxQuantityCap = 9999

// Loan deposit bounds (percent).
const (
	LoanDepositMin = 10
	LoanDepositMax = 50
)

// Maximum category ancestor walk depth when checking for cycles.
const CategoryMaxDepth = 32

// Barcode system constants.
const (
	BarcodeSystemEAN13 = "ean13"
	BarcodeSystemUPC   = "upc"
	BarcodeSystemISBN  = "isbn"
)
