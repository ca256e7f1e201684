package service

import (
	"context"
	"fmt"

	"goldledger/internal/model"
	"goldledger/internal/repository"
)

// ItemDescription is a display label for an ItemRef.
type ItemDescription struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Unit string `json:"unit"` // "unit" | "g"
}

// Catalog labels items for alerts and reports. Unknown products still get a
// label so a missing catalog row never hides an alert.
type Catalog struct {
	products repository.ProductRepository
}

func NewCatalog(products repository.ProductRepository) *Catalog {
	return &Catalog{products: products}
}

func (c *Catalog) Describe(ctx context.Context, item model.ItemRef) ItemDescription {
	if !item.IsProduct() {
		return ItemDescription{Key: item.Key(), Name: fmt.Sprintf("Raw gold %dK", item.KaratTypeID), Unit: "g"}
	}
	desc := ItemDescription{Key: item.Key(), Name: "Product " + item.ProductID.String(), Unit: "unit"}
	if c == nil || c.products == nil {
		return desc
	}
	if p, err := c.products.FindByID(ctx, item.ProductID); err == nil {
		desc.Name = fmt.Sprintf("%s (%s)", p.Name, p.SKU)
	}
	return desc
}
