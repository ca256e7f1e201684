package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ItemKind distinguishes finished products (tracked per unit) from raw gold
// (tracked per gram of a given karat).
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindRawGold ItemKind = "raw_gold"
)

// MerchantSupplierID marks lots owned by the merchant itself (customer
// sell-ins). Such lots never carry a payable to a supplier.
var MerchantSupplierID = uuid.Nil

// ItemRef points at what a lot holds: either a catalog product or raw gold of
// a karat type. Exactly one of ProductID / KaratTypeID is meaningful.
type ItemRef struct {
	Kind        ItemKind  `json:"kind"`
	ProductID   uuid.UUID `json:"product_id,omitempty"`
	KaratTypeID int       `json:"karat_type_id,omitempty"`
}

func ProductRef(productID uuid.UUID) ItemRef {
	return ItemRef{Kind: ItemKindProduct, ProductID: productID}
}

func RawGoldRef(karatTypeID int) ItemRef {
	return ItemRef{Kind: ItemKindRawGold, KaratTypeID: karatTypeID}
}

func (r ItemRef) IsProduct() bool { return r.Kind == ItemKindProduct }

// Key is the canonical string form used for lot identity, lock names and
// cache keys: "product:<uuid>" or "raw_gold:<karat>".
func (r ItemRef) Key() string {
	if r.IsProduct() {
		return string(ItemKindProduct) + ":" + r.ProductID.String()
	}
	return string(ItemKindRawGold) + ":" + strconv.Itoa(r.KaratTypeID)
}

func (r ItemRef) String() string { return r.Key() }

// Validate rejects half-filled references.
func (r ItemRef) Validate() error {
	switch r.Kind {
	case ItemKindProduct:
		if r.ProductID == uuid.Nil {
			return errors.New("product_id is required for product items")
		}
	case ItemKindRawGold:
		if r.KaratTypeID <= 0 {
			return errors.New("karat_type_id is required for raw gold items")
		}
	default:
		return fmt.Errorf("unknown item kind %q", r.Kind)
	}
	return nil
}

// ParseItemKey is the inverse of ItemRef.Key.
func ParseItemKey(key string) (ItemRef, error) {
	kind, value, ok := strings.Cut(key, ":")
	if !ok {
		return ItemRef{}, fmt.Errorf("malformed item key %q", key)
	}
	switch ItemKind(kind) {
	case ItemKindProduct:
		id, err := uuid.Parse(value)
		if err != nil {
			return ItemRef{}, fmt.Errorf("malformed item key %q: %w", key, err)
		}
		return ProductRef(id), nil
	case ItemKindRawGold:
		karat, err := strconv.Atoi(value)
		if err != nil {
			return ItemRef{}, fmt.Errorf("malformed item key %q: %w", key, err)
		}
		return RawGoldRef(karat), nil
	}
	return ItemRef{}, fmt.Errorf("unknown item kind in key %q", key)
}

// LotIdentity is the (itemRef, branch, supplier) triple a lot is tracked under.
type LotIdentity struct {
	Item       ItemRef
	BranchID   uuid.UUID
	SupplierID uuid.UUID
}

// Key is the lock/cache name of the identity.
func (id LotIdentity) Key() string {
	return "lot:" + id.Item.Key() + ":" + id.BranchID.String() + ":" + id.SupplierID.String()
}

func (id LotIdentity) IsMerchantOwned() bool { return id.SupplierID == MerchantSupplierID }
