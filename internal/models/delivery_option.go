package models

import (
	"time"

	"gorm.io/gorm"
)

// DeliveryOption is a globally defined delivery method with per-region
// enablement. A quote-only region records the order without a computable
// delivery charge.
type DeliveryOption struct {
	ID                    uint           `gorm:"primarykey" json:"id"`
	Title                 string         `gorm:"not null" json:"title"`
	Enabled               bool           `gorm:"default:true;index" json:"enabled"`
	FreeDelivery          bool           `gorm:"default:false" json:"free_delivery"`
	FreeDeliveryThreshold Money          `gorm:"type:decimal(20,2);not null;default:0" json:"free_delivery_threshold"`
	UKEnabled             bool           `gorm:"default:true" json:"uk_enabled"`
	UKQuoteOnly           bool           `gorm:"default:false" json:"uk_quote_only"`
	UKDefault             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"uk_def"`
	EUEnabled             bool           `gorm:"default:false" json:"eu_enabled"`
	EUQuoteOnly           bool           `gorm:"default:false" json:"eu_quote_only"`
	EUDefault             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"eu_def"`
	WorldEnabled          bool           `gorm:"default:false" json:"world_enabled"`
	WorldQuoteOnly        bool           `gorm:"default:false" json:"world_quote_only"`
	WorldDefault          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"world_def"`
	Seq                   int            `gorm:"default:0;index" json:"seq"`
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (DeliveryOption) TableName() string {
	return "delivery_options"
}

// RegionEnabled reports whether the option serves the region.
func (d *DeliveryOption) RegionEnabled(region string) bool {
	switch region {
	case "uk":
		return d.UKEnabled
	case "eu":
		return d.EUEnabled
	case "world":
		return d.WorldEnabled
	}
	return false
}

// RegionQuoteOnly reports whether the region settles charges out of band.
func (d *DeliveryOption) RegionQuoteOnly(region string) bool {
	switch region {
	case "uk":
		return d.UKQuoteOnly
	case "eu":
		return d.EUQuoteOnly
	case "world":
		return d.WorldQuoteOnly
	}
	return false
}

// RegionCharge returns the region's default charge.
func (d *DeliveryOption) RegionCharge(region string) Money {
	switch region {
	case "uk":
		return d.UKDefault
	case "eu":
		return d.EUDefault
	case "world":
		return d.WorldDefault
	}
	return ZeroMoney()
}
