package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// ProductSKU is a priced stockable combination of variety options for
// one product. Among enabled SKUs the option combination is unique per
// product, and every SKU of a product draws one option from each of the
// same set of varieties.
type ProductSKU struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	ProductID  uint           `gorm:"not null;index" json:"product_id"`
	SKU        string         `gorm:"type:varchar(64);not null" json:"sku"`
	Barcode    string         `gorm:"type:varchar(64)" json:"barcode,omitempty"`
	Price      *Money         `gorm:"type:decimal(20,2)" json:"price,omitempty"` // nil = fall back to product price
	StockLevel int            `gorm:"not null;default:0" json:"stocklevel"`
	Enabled    bool           `gorm:"default:true;index" json:"enabled"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Options []VarietyOption `gorm:"many2many:product_sku_options" json:"options,omitempty"`
}

// TableName names the table.
func (ProductSKU) TableName() string {
	return "product_skus"
}

// OptionIDs returns the sorted ids of the SKU's variety options.
func (s *ProductSKU) OptionIDs() []uint {
	ids := make([]uint, 0, len(s.Options))
	for _, o := range s.Options {
		ids = append(ids, o.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MatchesOptions reports whether the SKU's option set equals the given
// set exactly.
func (s *ProductSKU) MatchesOptions(optionIDs []uint) bool {
	if len(s.Options) != len(optionIDs) {
		return false
	}
	want := make(map[uint]bool, len(optionIDs))
	for _, id := range optionIDs {
		want[id] = true
	}
	for _, o := range s.Options {
		if !want[o.ID] {
			return false
		}
	}
	return true
}
