package models

import (
	"time"

	"gorm.io/gorm"
)

// Category is a hierarchical taxonomy node. The parent reference must
// stay acyclic; writes run an ancestor walk bounded by
// constants.CategoryMaxDepth before saving.
type Category struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Slug            string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title           string         `gorm:"not null" json:"title"`
	ParentID        *uint          `gorm:"index" json:"parent_id,omitempty"`
	Enabled         bool           `gorm:"default:true;index" json:"enabled"`
	OrderingDefault string         `gorm:"type:varchar(20)" json:"ordering_default"` // empty = fall back to global default
	LegacyURLs      StringArray    `gorm:"type:json" json:"legacy_urls,omitempty"`
	Seq             int            `gorm:"default:0;index" json:"seq"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName names the table.
func (Category) TableName() string {
	return "categories"
}
