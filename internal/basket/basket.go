package basket

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cubaneorg/cubane-sub000/internal/constants"
	"github.com/cubaneorg/cubane-sub000/internal/models"

	"github.com/google/uuid"
)

// ItemOption is the snapshot of one selected variety option on a line.
type ItemOption struct {
	OptionID     uint   `json:"option_id"`
	VarietyID    uint   `json:"variety_id"`
	VarietyTitle string `json:"variety_title"`
	Title        string `json:"title"`
	Label        string `json:"label,omitempty"` // customer text for text-label options
}

// Item is one basket line. Product data is cached at the time of
// addition so the line survives later catalog changes; a line whose
// product has since been deleted is marked frozen and keeps its cached
// price.
type Item struct {
	ID          string            `json:"id"`
	ProductID   uint              `json:"product_id"`
	ProductSlug string            `json:"product_slug"`
	Title       string            `json:"title"`
	Quantity    int               `json:"quantity"`
	Options     []ItemOption      `json:"options,omitempty"`
	SKUID       *uint             `json:"sku_id,omitempty"`
	SKU         string            `json:"sku,omitempty"`
	UnitPrice   models.Money      `json:"unit_price"`
	Custom      map[string]string `json:"custom,omitempty"`

	CollectionOnly         bool   `json:"collection_only,omitempty"`
	ExemptFromFreeDelivery bool   `json:"exempt_from_free_delivery,omitempty"`
	ExemptFromDiscount     bool   `json:"exempt_from_discount,omitempty"`
	CategoryIDs            []uint `json:"category_ids,omitempty"`
	FinanceOptionIDs       []uint `json:"finance_option_ids,omitempty"`
	Frozen                 bool   `json:"frozen,omitempty"`
}

// OptionIDs returns the sorted option ids of the line.
func (i *Item) OptionIDs() []uint {
	ids := make([]uint, 0, len(i.Options))
	for _, o := range i.Options {
		ids = append(ids, o.OptionID)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Total returns the line total, rounded half-up to 2 decimal places.
func (i *Item) Total() models.Money {
	return models.NewMoneyFromDecimal(
		i.UnitPrice.Decimal.Mul(decimalFromInt(i.Quantity)))
}

// identityKey determines line merging. Two lines merge iff they share
// the product, the exact option selection including customer labels,
// and the same custom attributes.
func (i *Item) identityKey() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(i.ProductID), 10))
	ids := i.OptionIDs()
	labels := make(map[uint]string, len(i.Options))
	for _, o := range i.Options {
		if o.Label != "" {
			labels[o.OptionID] = o.Label
		}
	}
	for _, id := range ids {
		b.WriteString("|o:")
		b.WriteString(strconv.FormatUint(uint64(id), 10))
		if label, ok := labels[id]; ok {
			b.WriteString("=")
			b.WriteString(label)
		}
	}
	keys := make([]string, 0, len(i.Custom))
	for k := range i.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("|c:")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(i.Custom[k])
	}
	return b.String()
}

// Basket is the session-scoped mutable aggregate that accumulates line
// items and the metadata needed to price and place an order. It becomes
// frozen once its owning order passes the editable states; mutations on
// a frozen basket fail with ErrBasketFrozen.
type Basket struct {
	Items           []*Item        `json:"items"`
	Billing         models.Address `json:"billing"`
	Delivery        models.Address `json:"delivery"`
	ClickAndCollect bool           `json:"click_and_collect"`

	DeliveryOptionID    *uint  `json:"delivery_option_id,omitempty"`
	DeliveryOptionTitle string `json:"delivery_option_title,omitempty"`
	VoucherCode         string `json:"voucher_code,omitempty"`
	FinanceOptionID     *uint  `json:"finance_option_id,omitempty"`
	LoanDeposit         int    `json:"loan_deposit,omitempty"` // percent

	Survey              string `json:"survey,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
	Invoice             bool   `json:"invoice,omitempty"`
	Frozen              bool   `json:"frozen,omitempty"`

	// Resolved catalog state, attached by the basket service after
	// restore. Never serialised; ids and codes above are the durable
	// form.
	DeliveryOption *models.DeliveryOption `json:"-"`
	Voucher        *models.Voucher        `json:"-"`
	FinanceOption  *models.FinanceOption  `json:"-"`

	maxQuantity    int
	defaultCountry string
}

// New creates an empty basket. maxQuantity caps per-line quantity and
// defaultCountry seeds the delivery region before an address is set.
func New(maxQuantity int, defaultCountry string) *Basket {
	if maxQuantity <= 0 || maxQuantity > constants.MaxQuantityCap {
		maxQuantity = constants.MaxQuantityCap
	}
	if defaultCountry == "" {
		defaultCountry = "GB"
	}
	return &Basket{maxQuantity: maxQuantity, defaultCountry: defaultCountry}
}

// MaxQuantity returns the per-line quantity cap.
func (b *Basket) MaxQuantity() int {
	return b.maxQuantity
}

// IsEmpty reports whether the basket holds no lines.
func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0
}

// ItemCount returns the total quantity across all lines.
func (b *Basket) ItemCount() int {
	n := 0
	for _, item := range b.Items {
		n += item.Quantity
	}
	return n
}

// IsCollectionOnly reports whether any line restricts the basket to
// click-and-collect.
func (b *Basket) IsCollectionOnly() bool {
	for _, item := range b.Items {
		if item.CollectionOnly {
			return true
		}
	}
	return false
}

// DeliveryCountry returns the country driving voucher eligibility and
// the delivery charge region.
func (b *Basket) DeliveryCountry() string {
	if b.Delivery.Country != "" {
		return b.Delivery.Country
	}
	return b.defaultCountry
}

// DeliveryRegion returns the charge region for the delivery country.
func (b *Basket) DeliveryRegion() string {
	return RegionForCountry(b.DeliveryCountry())
}

// CanEditBillingAddress reports whether the billing address may change.
func (b *Basket) CanEditBillingAddress() bool {
	return !b.Frozen
}

// CanEditDeliveryAddress reports whether the delivery address may change.
func (b *Basket) CanEditDeliveryAddress() bool {
	return !b.Frozen
}

// Add validates the product and variety selection, resolves the SKU if
// the product is SKU-enabled and merges into an existing line when the
// identity matches. labels carries customer text per text-label option
// id; custom carries free-text attributes that take part in the line
// identity.
func (b *Basket) Add(product *models.Product, quantity int, optionIDs []uint, labels map[uint]string, custom map[string]string) (*Item, error) {
	if b.Frozen {
		return nil, ErrBasketFrozen
	}
	if product == nil || product.Draft || product.StockPolicy == constants.StockPolicyOutOfStock {
		return nil, ErrProductUnavailable
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > b.maxQuantity {
		return nil, ErrQuantityExceedsCap
	}

	options, err := resolveOptions(product, optionIDs, labels)
	if err != nil {
		return nil, err
	}

	var sku *models.ProductSKU
	if product.SKUEnabled {
		sku = matchSKU(product, optionIDs)
		if sku == nil {
			return nil, ErrSKUNotFound
		}
	}
	if product.StockPolicy == constants.StockPolicyAuto {
		level := product.StockLevel
		if sku != nil {
			level = sku.StockLevel
		}
		if level <= 0 {
			return nil, ErrProductUnavailable
		}
	}

	item := &Item{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		ProductSlug: product.Slug,
		Title:       product.Title,
		Quantity:    quantity,
		Options:     options,
		UnitPrice:   unitPrice(product, sku, options),
		Custom:      custom,

		CollectionOnly:         product.CollectionOnly,
		ExemptFromFreeDelivery: product.ExemptFromFreeDelivery,
		ExemptFromDiscount:     product.ExemptFromDiscount,
		CategoryIDs:            product.CategoryIDs(),
		FinanceOptionIDs:       financeOptionIDs(product),
	}
	if sku != nil {
		skuID := sku.ID
		item.SKUID = &skuID
		item.SKU = sku.SKU
	}

	key := item.identityKey()
	for _, existing := range b.Items {
		if existing.identityKey() == key {
			existing.Quantity += quantity
			if existing.Quantity > b.maxQuantity {
				existing.Quantity = b.maxQuantity
			}
			b.revalidateVoucher()
			return existing, nil
		}
	}
	b.Items = append(b.Items, item)
	b.revalidateVoucher()
	return item, nil
}

// UpdateQuantity changes a line's quantity. A quantity below one removes
// the line.
func (b *Basket) UpdateQuantity(lineID string, quantity int) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	if quantity < 1 {
		return b.Remove(lineID)
	}
	if quantity > b.maxQuantity {
		return ErrQuantityExceedsCap
	}
	for _, item := range b.Items {
		if item.ID == lineID {
			item.Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

// Remove deletes a line.
func (b *Basket) Remove(lineID string) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	for i, item := range b.Items {
		if item.ID == lineID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			b.revalidateVoucher()
			return nil
		}
	}
	return ErrLineNotFound
}

// GetItem returns a line by id, or nil.
func (b *Basket) GetItem(lineID string) *Item {
	for _, item := range b.Items {
		if item.ID == lineID {
			return item
		}
	}
	return nil
}

// SetBillingAddress replaces the billing address snapshot.
func (b *Basket) SetBillingAddress(address models.Address) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	b.Billing = address
	return nil
}

// SetDeliveryAddress replaces the delivery address snapshot. Changing
// the country can invalidate the delivery option and the voucher, both
// are re-checked.
func (b *Basket) SetDeliveryAddress(address models.Address) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	b.Delivery = address
	if b.DeliveryOption != nil && !b.DeliveryOption.RegionEnabled(b.DeliveryRegion()) {
		b.clearDeliveryOption()
	}
	b.revalidateVoucher()
	return nil
}

// SetClickAndCollect toggles collection at the shop.
func (b *Basket) SetClickAndCollect(on bool) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	b.ClickAndCollect = on
	return nil
}

// SetDeliveryOption selects a delivery method. The option must be
// enabled for the current delivery region, and a collection-only basket
// accepts no delivery method at all.
func (b *Basket) SetDeliveryOption(option *models.DeliveryOption) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	if option == nil || !option.Enabled {
		return ErrDeliveryOptionUnavailable
	}
	if b.IsCollectionOnly() && !b.ClickAndCollect {
		return ErrDeliveryOptionUnavailable
	}
	if !b.ClickAndCollect && !option.RegionEnabled(b.DeliveryRegion()) {
		return ErrDeliveryOptionUnavailable
	}
	id := option.ID
	b.DeliveryOption = option
	b.DeliveryOptionID = &id
	b.DeliveryOptionTitle = option.Title
	return nil
}

// ApplyVoucher attaches a voucher. The caller resolves the voucher by
// code and supplies its current usage count; validity, exhaustion and
// the country and category restrictions are checked here.
func (b *Basket) ApplyVoucher(voucher *models.Voucher, usage int64, now time.Time) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	if voucher == nil || !voucher.Enabled {
		return ErrVoucherNotFound
	}
	if !voucher.InWindow(now) {
		return ErrVoucherExpired
	}
	if voucher.MaxUsage != nil && usage >= int64(*voucher.MaxUsage) {
		return ErrVoucherExhausted
	}
	if len(voucher.Countries) > 0 && !voucher.Countries.Contains(b.DeliveryCountry()) {
		return ErrVoucherCountryMismatch
	}
	if !b.voucherMatchesLines(voucher) {
		return ErrVoucherCategoryMismatch
	}
	b.Voucher = voucher
	b.VoucherCode = voucher.Code
	return nil
}

// RemoveVoucher detaches any applied voucher.
func (b *Basket) RemoveVoucher() error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	b.Voucher = nil
	b.VoucherCode = ""
	return nil
}

// ApplyFinanceOption selects a credit product. Per-product options must
// be allowed by every line and the deposit percentage must fall inside
// the permitted band.
func (b *Basket) ApplyFinanceOption(option *models.FinanceOption, depositPercent int) error {
	if b.Frozen {
		return ErrBasketFrozen
	}
	if option == nil || !option.Enabled {
		return ErrFinanceOptionUnavailable
	}
	if depositPercent < constants.LoanDepositMin || depositPercent > constants.LoanDepositMax {
		return ErrInvalidLoanDeposit
	}
	totals := b.Totals()
	if totals.SubTotal.Decimal.LessThan(option.MinBasketValue.Decimal) {
		return ErrFinanceOptionUnavailable
	}
	if option.PerProduct {
		for _, item := range b.Items {
			if !containsID(item.FinanceOptionIDs, option.ID) {
				return ErrFinanceOptionUnavailable
			}
		}
	}
	id := option.ID
	b.FinanceOption = option
	b.FinanceOptionID = &id
	b.LoanDeposit = depositPercent
	return nil
}

// Freeze marks the basket read-only. Idempotent.
func (b *Basket) Freeze() {
	b.Frozen = true
}

// clearDeliveryOption drops the selected delivery method.
func (b *Basket) clearDeliveryOption() {
	b.DeliveryOption = nil
	b.DeliveryOptionID = nil
	b.DeliveryOptionTitle = ""
}

// revalidateVoucher drops an applied voucher that no longer matches the
// basket after a line or address mutation. Window and usage checks stay
// with ApplyVoucher since they need catalog state.
func (b *Basket) revalidateVoucher() {
	if b.Voucher == nil {
		return
	}
	if len(b.Voucher.Countries) > 0 && !b.Voucher.Countries.Contains(b.DeliveryCountry()) {
		b.Voucher = nil
		b.VoucherCode = ""
		return
	}
	if !b.voucherMatchesLines(b.Voucher) {
		b.Voucher = nil
		b.VoucherCode = ""
	}
}

// voucherMatchesLines applies the category restriction: at least one
// line's product must sit in a restricted category, unless the voucher
// is unrestricted or the basket is still empty.
func (b *Basket) voucherMatchesLines(voucher *models.Voucher) bool {
	restricted := voucher.CategoryIDs()
	if len(restricted) == 0 || len(b.Items) == 0 {
		return true
	}
	for _, item := range b.Items {
		for _, categoryID := range item.CategoryIDs {
			if containsID(restricted, categoryID) {
				return true
			}
		}
	}
	return false
}

// resolveOptions validates the selection against the product's enabled
// variety assignments. Every enabled non-attribute variety must receive
// exactly one option; options outside the product's assignment set or
// from attribute varieties are rejected.
func resolveOptions(product *models.Product, optionIDs []uint, labels map[uint]string) ([]ItemOption, error) {
	assignments := make(map[uint]*models.VarietyAssignment, len(product.VarietyAssignments))
	required := make(map[uint]*models.Variety)
	for i := range product.VarietyAssignments {
		assignment := &product.VarietyAssignments[i]
		option := assignment.VarietyOption
		if !assignment.Enabled || option == nil || !option.Enabled {
			continue
		}
		variety := option.Variety
		if variety == nil || !variety.Enabled {
			continue
		}
		assignments[option.ID] = assignment
		if !variety.IsAttribute() {
			required[variety.ID] = variety
		}
	}

	seen := make(map[uint]bool, len(required))
	options := make([]ItemOption, 0, len(optionIDs))
	for _, optionID := range optionIDs {
		assignment, ok := assignments[optionID]
		if !ok {
			return nil, ErrInvalidVarietySelection
		}
		option := assignment.VarietyOption
		variety := option.Variety
		if variety.IsAttribute() || seen[variety.ID] {
			return nil, ErrInvalidVarietySelection
		}
		seen[variety.ID] = true
		selected := ItemOption{
			OptionID:     option.ID,
			VarietyID:    variety.ID,
			VarietyTitle: variety.Title,
			Title:        option.Title,
		}
		if option.TextLabel {
			selected.Label = labels[option.ID]
		}
		options = append(options, selected)
	}
	if len(seen) != len(required) {
		return nil, ErrInvalidVarietySelection
	}
	return options, nil
}

// matchSKU finds the unique enabled SKU whose option set equals the
// selection exactly.
func matchSKU(product *models.Product, optionIDs []uint) *models.ProductSKU {
	for i := range product.SKUs {
		sku := &product.SKUs[i]
		if sku.Enabled && sku.MatchesOptions(optionIDs) {
			return sku
		}
	}
	return nil
}

// unitPrice resolves the per-unit price. A resolved SKU wins; otherwise
// the base price plus the variety offsets, where a per-product override
// on the assignment takes precedence over the option default.
func unitPrice(product *models.Product, sku *models.ProductSKU, options []ItemOption) models.Money {
	if sku != nil {
		if sku.Price != nil {
			return *sku.Price
		}
		return product.Price
	}
	price := product.Price.Decimal
	for _, selected := range options {
		assignment := findAssignment(product, selected.OptionID)
		if assignment == nil || assignment.VarietyOption == nil {
			continue
		}
		offsetType := assignment.OffsetType
		offsetValue := assignment.OffsetValue.Decimal
		if offsetType == "" {
			offsetType = assignment.VarietyOption.DefaultOffsetType
			offsetValue = assignment.VarietyOption.DefaultOffsetValue.Decimal
		}
		switch offsetType {
		case constants.OffsetTypeValue:
			price = price.Add(offsetValue)
		case constants.OffsetTypePercent:
			price = price.Add(product.Price.Decimal.Mul(offsetValue).Div(decimalFromInt(100)))
		}
	}
	return models.NewMoneyFromDecimal(price)
}

func findAssignment(product *models.Product, optionID uint) *models.VarietyAssignment {
	for i := range product.VarietyAssignments {
		if product.VarietyAssignments[i].VarietyOptionID == optionID {
			return &product.VarietyAssignments[i]
		}
	}
	return nil
}

func financeOptionIDs(product *models.Product) []uint {
	ids := make([]uint, 0, len(product.FinanceOptions))
	for _, option := range product.FinanceOptions {
		ids = append(ids, option.ID)
	}
	return ids
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
