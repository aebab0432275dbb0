package model

import (
	"time"
)

// Column widths, in characters. The gorm tags below must stay in step.
const (
	MaxCodeLength        = 255
	MaxSKULength         = 50
	MaxDistributorLength = 100
)

// TraceabilityCode is one printed unit: the public code read off the package
// and the private dark code used for verification.
type TraceabilityCode struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Code        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"code"`
	DarkCode    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"dark_code"`
	ProductID   *uint     `gorm:"index" json:"product_id"`
	Distributor *string   `gorm:"type:varchar(100)" json:"distributor"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (TraceabilityCode) TableName() string {
	return "traceability_codes"
}

// Linked reports whether the code references a product.
func (c *TraceabilityCode) Linked() bool {
	return c.ProductID != nil && *c.ProductID != 0
}
