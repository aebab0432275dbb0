package model

import (
	"time"
)

// Product is a sellable item identified by its SKU.
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	SKU       string    `gorm:"column:sku;type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name      *string   `gorm:"type:varchar(100)" json:"name"`
	Origin    *string   `gorm:"type:varchar(100)" json:"origin"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// ProductAttributes are the optional descriptive fields of a Product.
type ProductAttributes struct {
	Name   *string
	Origin *string
}
