package model

import "time"

// VerificationStatus is the outcome of resolving a dark code.
type VerificationStatus string

const (
	VerificationNotFound      VerificationStatus = "NOT_FOUND"
	VerificationFoundUnlinked VerificationStatus = "FOUND_UNLINKED"
	VerificationFoundLinked   VerificationStatus = "FOUND_LINKED"
)

// Markers shown in place of missing product/distributor data.
const (
	UnassociatedSKU  = "未关联产品"
	UnsetProductName = "未设置产品名称"
	UnsetDistributor = "未设置分销商"
	NotFoundMessage  = "未找到该产品信息，可能是假货"
)

// ProductView is what a consumer sees after scanning a genuine code.
type ProductView struct {
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Origin      *string   `json:"origin,omitempty"`
	Distributor string    `json:"distributor"`
	DarkCode    string    `json:"dark_code"`
	CreatedAt   time.Time `json:"created_at"`
	Associated  bool      `json:"associated"`
}

type VerificationResult struct {
	Status VerificationStatus
	View   *ProductView
}

func (r VerificationResult) Found() bool {
	return r.Status != VerificationNotFound
}
