package models

import (
	"time"

	"gorm.io/gorm"
)

// FinanceOption is a titled credit product offered at checkout.
// Per-product options only apply when every basket line allows them.
type FinanceOption struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Code           string         `gorm:"uniqueIndex;not null" json:"code"`
	Title          string         `gorm:"not null" json:"title"`
	MinBasketValue Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_basket_value"`
	Enabled        bool           `gorm:"default:true;index" json:"enabled"`
	PerProduct     bool           `gorm:"default:false" json:"per_product"`
	Seq            int            `gorm:"default:0;index" json:"seq"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (FinanceOption) TableName() string {
	return "finance_options"
}
