package models

import (
	"time"

	"gorm.io/gorm"
)

// Variety is a choice dimension such as "Colour". Attribute-style
// varieties exist for filtering only and are never presented as a
// purchase choice.
type Variety struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title        string         `gorm:"not null" json:"title"`
	DisplayTitle string         `json:"display_title"`
	Style        string         `gorm:"type:varchar(20);not null;default:'select'" json:"style"`
	SKU          bool           `gorm:"default:false" json:"sku"`
	Enabled      bool           `gorm:"default:true;index" json:"enabled"`
	ParentID     *uint          `gorm:"index" json:"parent_id,omitempty"`
	Seq          int            `gorm:"default:0;index" json:"seq"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Parent  *Variety        `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Options []VarietyOption `gorm:"foreignKey:VarietyID" json:"options,omitempty"`
}

// TableName names the table.
func (Variety) TableName() string {
	return "varieties"
}

// IsAttribute reports whether the variety is filter-only.
func (v *Variety) IsAttribute() bool {
	return v.Style == "attribute"
}

// VarietyOption is a value within a Variety, such as "Red". The default
// offsets apply unless a VarietyAssignment overrides them per product.
type VarietyOption struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	VarietyID          uint           `gorm:"not null;index" json:"variety_id"`
	Title              string         `gorm:"not null" json:"title"`
	Enabled            bool           `gorm:"default:true;index" json:"enabled"`
	DefaultOffsetType  string         `gorm:"type:varchar(20);not null;default:'none'" json:"default_offset_type"`
	DefaultOffsetValue Money          `gorm:"type:decimal(20,2);not null;default:0" json:"default_offset_value"`
	Image              string         `gorm:"type:varchar(500)" json:"image,omitempty"`
	Colour             string         `gorm:"type:varchar(20)" json:"colour,omitempty"`
	TextLabel          bool           `gorm:"default:false" json:"text_label"`
	Seq                int            `gorm:"default:0;index" json:"seq"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Variety *Variety `gorm:"foreignKey:VarietyID" json:"variety,omitempty"`
}

// TableName names the table.
func (VarietyOption) TableName() string {
	return "variety_options"
}

// VarietyAssignment binds a product to a variety option, optionally
// overriding the option's default price offset for that product.
type VarietyAssignment struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	ProductID       uint           `gorm:"not null;uniqueIndex:idx_assignment_pair" json:"product_id"`
	VarietyOptionID uint           `gorm:"not null;uniqueIndex:idx_assignment_pair" json:"variety_option_id"`
	OffsetType      string         `gorm:"type:varchar(20);not null;default:''" json:"offset_type"` // empty = use option default
	OffsetValue     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"offset_value"`
	Enabled         bool           `gorm:"default:true;index" json:"enabled"`
	Seq             int            `gorm:"default:0;index" json:"seq"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	VarietyOption *VarietyOption `gorm:"foreignKey:VarietyOptionID" json:"variety_option,omitempty"`
}

// TableName names the table.
func (VarietyAssignment) TableName() string {
	return "variety_assignments"
}
