package models

import (
	"time"

	"gorm.io/gorm"
)

// Voucher is a discount code. Codes are stored uppercase with no spaces.
// Usage is counted from the number of successful orders referencing the
// voucher, not from a stored counter.
type Voucher struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Code          string         `gorm:"uniqueIndex;not null" json:"code"`
	Title         string         `gorm:"not null" json:"title"`
	Enabled       bool           `gorm:"default:true;index" json:"enabled"`
	ValidFrom     time.Time      `gorm:"index" json:"valid_from"`
	ValidUntil    time.Time      `gorm:"index" json:"valid_until"`
	MaxUsage      *int           `json:"max_usage,omitempty"` // nil = unlimited
	DiscountType  string         `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_value"`
	Categories    []Category     `gorm:"many2many:voucher_categories" json:"categories,omitempty"`
	Countries     StringArray    `gorm:"type:json" json:"delivery_countries,omitempty"` // ISO codes; empty = unrestricted
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (Voucher) TableName() string {
	return "vouchers"
}

// InWindow reports whether now falls inside the validity window
// (inclusive at both ends).
func (v *Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.ValidFrom) && !now.After(v.ValidUntil)
}

// CategoryIDs returns the restricted category ids; empty means the
// voucher applies to every category.
func (v *Voucher) CategoryIDs() []uint {
	ids := make([]uint, 0, len(v.Categories))
	for _, c := range v.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}
