package dto

import "github.com/shopspring/decimal"

type ProductRequest struct {
	SKU           string          `json:"sku"            validate:"required"`
	Name          string          `json:"name"           validate:"required,min=2"`
	Description   *string         `json:"description"`
	KaratTypeID   int             `json:"karat_type_id"  validate:"required,gt=0"`
	NominalWeight decimal.Decimal `json:"nominal_weight" validate:"min=0"`
}

type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	KaratTypeID   int             `json:"karat_type_id"`
	NominalWeight decimal.Decimal `json:"nominal_weight"`
	Active        bool            `json:"active"`
}
