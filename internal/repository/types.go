package repository

import "time"

// ProductListFilter filters product listings.
type ProductListFilter struct {
	Page        int
	PageSize    int
	CategoryID  uint
	Search      string
	OrderBy     string
	OnlyVisible bool // enabled, not draft
}

// OrderListFilter filters order listings.
type OrderListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	Status      string
	OrderID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
