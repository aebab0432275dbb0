package model

import "time"

// CodeListing is a traceability code joined with its product, if any.
type CodeListing struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	DarkCode    string    `json:"dark_code"`
	ProductID   *uint     `json:"product_id"`
	Distributor *string   `json:"distributor"`
	ProductSKU  *string   `gorm:"column:product_sku" json:"product_sku"`
	ProductName *string   `gorm:"column:product_name" json:"product_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkedCodeListing is a code whose product exists.
type LinkedCodeListing struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	DarkCode    string    `json:"dark_code"`
	ProductID   uint      `json:"product_id"`
	SKU         string    `gorm:"column:sku" json:"sku"`
	Name        *string   `json:"name"`
	Origin      *string   `json:"origin"`
	Distributor *string   `json:"distributor"`
	CreatedAt   time.Time `json:"created_at"`
}

// Page is one page of an offset-paginated listing.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Offset returns the row offset of a 1-indexed page.
func Offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

// NewPage fills pagination metadata; totalPages is ceil(total / pageSize).
func NewPage[T any](items []T, total int64, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
