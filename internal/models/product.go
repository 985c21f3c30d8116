package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a catalog item. When SKUEnabled is set, per-SKU records
// supersede the base price and stock for priced-variant purchases.
type Product struct {
	ID                     uint           `gorm:"primarykey" json:"id"`
	Slug                   string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title                  string         `gorm:"not null" json:"title"`
	CategoryID             uint           `gorm:"not null;index" json:"category_id"`
	Price                  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`
	RRP                    *Money         `gorm:"type:decimal(20,2)" json:"rrp,omitempty"`
	PreviousPrice          *Money         `gorm:"type:decimal(20,2)" json:"previous_price,omitempty"`
	StockPolicy            string         `gorm:"type:varchar(20);not null;default:'available';index" json:"stock_policy"`
	StockLevel             int            `gorm:"not null;default:0" json:"stocklevel"`
	SKUEnabled             bool           `gorm:"default:false" json:"sku_enabled"`
	SKU                    string         `gorm:"type:varchar(64)" json:"sku,omitempty"`
	BarcodeSystem          string         `gorm:"type:varchar(20)" json:"barcode_system,omitempty"`
	Barcode                string         `gorm:"type:varchar(64)" json:"barcode,omitempty"`
	PreOrder               bool           `gorm:"default:false" json:"pre_order"`
	Deposit                *Money         `gorm:"type:decimal(20,2)" json:"deposit,omitempty"`
	Draft                  bool           `gorm:"default:false;index" json:"draft"`
	CollectionOnly         bool           `gorm:"default:false" json:"collection_only"`
	ExemptFromFreeDelivery bool           `gorm:"default:false" json:"exempt_from_free_delivery"`
	ExemptFromDiscount     bool           `gorm:"default:false" json:"exempt_from_discount"`
	Seq                    int            `gorm:"default:0;index" json:"seq"`
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`

	Category             Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	AdditionalCategories []Category         `gorm:"many2many:product_categories" json:"additional_categories,omitempty"`
	DeliveryOptions      []DeliveryOption   `gorm:"many2many:product_delivery_options" json:"delivery_options,omitempty"`
	FinanceOptions       []FinanceOption    `gorm:"many2many:product_finance_options" json:"finance_options,omitempty"`
	VarietyAssignments   []VarietyAssignment `gorm:"foreignKey:ProductID" json:"variety_assignments,omitempty"`
	SKUs                 []ProductSKU       `gorm:"foreignKey:ProductID" json:"skus,omitempty"`
	Related              []RelatedProduct   `gorm:"foreignKey:ProductID" json:"related,omitempty"`
}

// TableName names the table.
func (Product) TableName() string {
	return "products"
}

// CategoryIDs returns the primary category plus additional ones.
func (p *Product) CategoryIDs() []uint {
	ids := make([]uint, 0, 1+len(p.AdditionalCategories))
	if p.CategoryID != 0 {
		ids = append(ids, p.CategoryID)
	}
	for _, c := range p.AdditionalCategories {
		if c.ID != p.CategoryID {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// RelatedProduct is an ordered cross-sell link between two products.
type RelatedProduct struct {
	ID        uint `gorm:"primarykey" json:"id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_related_pair" json:"product_id"`
	RelatedID uint `gorm:"not null;uniqueIndex:idx_related_pair" json:"related_id"`
	Seq       int  `gorm:"default:0;index" json:"seq"`

	RelatedProduct *Product `gorm:"foreignKey:RelatedID" json:"related_product,omitempty"`
}

// TableName names the table.
func (RelatedProduct) TableName() string {
	return "related_products"
}
