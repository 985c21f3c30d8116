package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is a minimal shopper identity. Orders may also be placed as a
// guest, in which case the order carries no customer reference.
type Customer struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(200);not null" json:"-"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Telephone    string         `gorm:"type:varchar(40)" json:"telephone,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (Customer) TableName() string {
	return "customers"
}
