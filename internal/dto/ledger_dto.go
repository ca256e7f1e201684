package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemInput identifies a product or a raw gold karat.
type ItemInput struct {
	ItemKind    string `json:"item_kind"     validate:"required,oneof=product raw_gold"`
	ProductID   string `json:"product_id"    validate:"omitempty,uuid"`
	KaratTypeID int    `json:"karat_type_id" validate:"omitempty,gt=0"`
}

type ReceiptRequest struct {
	ItemInput
	BranchID string `json:"branch_id" validate:"required,uuid"`
	// SupplierID empty means a merchant-owned (customer sell-in) receipt.
	SupplierID  string          `json:"supplier_id"  validate:"omitempty,uuid"`
	Weight      decimal.Decimal `json:"weight"       validate:"min=0"`
	Quantity    decimal.Decimal `json:"quantity"     validate:"min=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"    validate:"min=0"`
	PaidAmount  decimal.Decimal `json:"paid_amount"  validate:"min=0"`
	Currency    string          `json:"currency"     validate:"omitempty,len=3"`
	SeparateLot bool            `json:"separate_lot"`
	Reference   string          `json:"reference"    validate:"required,max=100"`
}

type SaleRequest struct {
	ItemInput
	BranchID   string          `json:"branch_id"   validate:"required,uuid"`
	Weight     decimal.Decimal `json:"weight"      validate:"min=0"`
	Quantity   decimal.Decimal `json:"quantity"    validate:"min=0"`
	Strategy   string          `json:"strategy"    validate:"omitempty,oneof=fifo lifo specific_supplier"`
	SupplierID string          `json:"supplier_id" validate:"omitempty,uuid"`
	Reference  string          `json:"reference"   validate:"required,max=100"`
}

type SaleValidationRequest struct {
	ItemInput
	BranchID    string          `json:"branch_id"    validate:"required,uuid"`
	Weight      decimal.Decimal `json:"weight"       validate:"min=0"`
	Quantity    decimal.Decimal `json:"quantity"     validate:"min=0"`
	RequirePaid bool            `json:"require_paid"`
}

type PaymentRequest struct {
	LotID     string          `json:"lot_id"    validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"    validate:"required,gt=0"`
	Reference string          `json:"reference" validate:"required,max=100"`
}

type WaiverRequest struct {
	SourceLotID string          `json:"source_lot_id" validate:"required,uuid"`
	TargetLotID string          `json:"target_lot_id" validate:"required,uuid"`
	Weight      decimal.Decimal `json:"weight"        validate:"min=0"`
	Quantity    decimal.Decimal `json:"quantity"      validate:"min=0"`
	Reference   string          `json:"reference"     validate:"required,max=100"`
}

type AdjustmentRequest struct {
	LotID          string          `json:"lot_id"          validate:"required,uuid"`
	WeightChange   decimal.Decimal `json:"weight_change"`
	QuantityChange decimal.Decimal `json:"quantity_change"`
	Reason         string          `json:"reason"          validate:"required,max=200"`
}

type ConversionRequest struct {
	BranchID        string `json:"branch_id"          validate:"required,uuid"`
	SupplierID      string `json:"supplier_id"        validate:"omitempty,uuid"`
	FromKaratTypeID int    `json:"from_karat_type_id" validate:"required,gt=0"`
	ToKaratTypeID   int    `json:"to_karat_type_id"   validate:"required,gt=0"`
	// FromWeight is checked by the ledger so a non-positive weight reports
	// invalid_conversion_weight.
	FromWeight decimal.Decimal `json:"from_weight"`
	Reference  string          `json:"reference" validate:"required,max=100"`
}

type ConsolidationRequest struct {
	ItemInput
	BranchID   string `json:"branch_id"   validate:"required,uuid"`
	SupplierID string `json:"supplier_id" validate:"omitempty,uuid"`
	Reference  string `json:"reference"   validate:"required,max=100"`
}

// LotFilter is bound from the query string of GET /v1/lots.
type LotFilter struct {
	ItemKind        string `form:"item_kind"`
	ProductID       string `form:"product_id"`
	KaratTypeID     int    `form:"karat_type_id"`
	BranchID        string `form:"branch_id"`
	SupplierID      string `form:"supplier_id"`
	IncludeDepleted bool   `form:"include_depleted"`
}

// CostQuoteQuery is bound from the query string of GET /v1/costing/quote.
type CostQuoteQuery struct {
	Method      string `form:"method"`
	ItemKind    string `form:"item_kind"`
	ProductID   string `form:"product_id"`
	KaratTypeID int    `form:"karat_type_id"`
	BranchID    string `form:"branch_id"`
	Quantity    string `form:"quantity"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LotResponse struct {
	ID             string          `json:"id"`
	ItemKind       string          `json:"item_kind"`
	ItemKey        string          `json:"item_key"`
	ProductID      *string         `json:"product_id,omitempty"`
	KaratTypeID    *int            `json:"karat_type_id,omitempty"`
	BranchID       string          `json:"branch_id"`
	SupplierID     *string         `json:"supplier_id"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	TotalWeight    decimal.Decimal `json:"total_weight"`
	TotalQuantity  decimal.Decimal `json:"total_quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountOwed     decimal.Decimal `json:"amount_owed"`
	CreatedAt      time.Time       `json:"created_at"`
	LastMovementAt time.Time       `json:"last_movement_at"`
}

type MovementResponse struct {
	ID                   string          `json:"id"`
	LotID                string          `json:"lot_id"`
	Sequence             int64           `json:"sequence"`
	MovementType         string          `json:"movement_type"`
	WeightChange         decimal.Decimal `json:"weight_change"`
	QuantityChange       decimal.Decimal `json:"quantity_change"`
	AmountChange         decimal.Decimal `json:"amount_change"`
	PaidChange           decimal.Decimal `json:"paid_change"`
	WeightBalanceAfter   decimal.Decimal `json:"weight_balance_after"`
	QuantityBalanceAfter decimal.Decimal `json:"quantity_balance_after"`
	AmountOwedAfter      decimal.Decimal `json:"amount_owed_after"`
	UnitCostAfter        decimal.Decimal `json:"unit_cost_after"`
	ReferenceNumber      string          `json:"reference_number"`
	CorrelationID        *string         `json:"correlation_id,omitempty"`
	CreatedBy            string          `json:"created_by"`
	Timestamp            time.Time       `json:"timestamp"`
}

type WarningResponse struct {
	Code    string  `json:"code"`
	LotID   *string `json:"lot_id,omitempty"`
	Message string  `json:"message"`
}

type ReceiptResponse struct {
	Lot       LotResponse          `json:"lot"`
	Movements []MovementResponse   `json:"movements"`
	Credit    *CreditCheckResponse `json:"credit,omitempty"`
	Warnings  []WarningResponse    `json:"warnings"`
}

type SaleSliceResponse struct {
	LotID      string          `json:"lot_id"`
	SupplierID *string         `json:"supplier_id"`
	Weight     decimal.Decimal `json:"weight"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Cost       decimal.Decimal `json:"cost"`
}

type SaleResponse struct {
	Slices    []SaleSliceResponse `json:"slices"`
	Movements []MovementResponse  `json:"movements"`
	TotalCost decimal.Decimal     `json:"total_cost"`
	Warnings  []WarningResponse   `json:"warnings"`
}

type SaleValidationResponse struct {
	ItemKey       string            `json:"item_key"`
	BranchID      string            `json:"branch_id"`
	Requested     decimal.Decimal   `json:"requested"`
	Available     decimal.Decimal   `json:"available"`
	PaidAvailable decimal.Decimal   `json:"paid_available"`
	Shortfall     decimal.Decimal   `json:"shortfall"`
	CanSell       bool              `json:"can_sell"`
	Warnings      []WarningResponse `json:"warnings"`
}

type LotMovementResponse struct {
	Lot      LotResponse      `json:"lot"`
	Movement MovementResponse `json:"movement"`
}

type WaiverResponse struct {
	WaiverID     string             `json:"waiver_id"`
	SourceLot    LotResponse        `json:"source_lot"`
	TargetLot    LotResponse        `json:"target_lot"`
	SettledValue decimal.Decimal    `json:"settled_value"`
	Movements    []MovementResponse `json:"movements"`
}

type ConversionResponse struct {
	ID              string           `json:"id"`
	FromKaratTypeID int              `json:"from_karat_type_id"`
	ToKaratTypeID   int              `json:"to_karat_type_id"`
	Rate            decimal.Decimal  `json:"rate"`
	FromWeight      decimal.Decimal  `json:"from_weight"`
	ToWeight        decimal.Decimal  `json:"to_weight"`
	CostValue       decimal.Decimal  `json:"cost_value"`
	SourceLot       LotResponse      `json:"source_lot"`
	DestinationLot  LotResponse      `json:"destination_lot"`
	DebitMovement   MovementResponse `json:"debit_movement"`
	CreditMovement  MovementResponse `json:"credit_movement"`
}

type ConsolidationResponse struct {
	BatchID      string             `json:"batch_id"`
	UnitCost     decimal.Decimal    `json:"unit_cost"`
	TargetLot    LotResponse        `json:"target_lot"`
	SourceLotIDs []string           `json:"source_lot_ids"`
	Movements    []MovementResponse `json:"movements"`
}

type CostLayerResponse struct {
	LotID      string          `json:"lot_id"`
	SupplierID *string         `json:"supplier_id"`
	AcquiredAt time.Time       `json:"acquired_at"`
	Measure    decimal.Decimal `json:"measure"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Cost       decimal.Decimal `json:"cost"`
}

type CostQuoteResponse struct {
	Method    string              `json:"method"`
	ItemKey   string              `json:"item_key"`
	BranchID  string              `json:"branch_id"`
	Requested decimal.Decimal     `json:"requested"`
	Available decimal.Decimal     `json:"available"`
	TotalCost decimal.Decimal     `json:"total_cost"`
	UnitCost  decimal.Decimal     `json:"unit_cost"`
	Plan      []CostLayerResponse `json:"plan,omitempty"`
}

type LowOwnershipAlertResponse struct {
	ItemKey   string          `json:"item_key"`
	ItemName  string          `json:"item_name"`
	BranchID  string          `json:"branch_id"`
	Weight    decimal.Decimal `json:"weight"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
	Lots      int             `json:"lots"`
}

type OutstandingPaymentAlertResponse struct {
	SupplierID  string          `json:"supplier_id"`
	AmountOwed  decimal.Decimal `json:"amount_owed"`
	Lots        int             `json:"lots"`
	OldestLotAt time.Time       `json:"oldest_lot_at"`
	LotIDs      []string        `json:"lot_ids"`
}

type LotTotalsResponse struct {
	Weight     decimal.Decimal `json:"weight"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
}

type ReplayResponse struct {
	LotID      string            `json:"lot_id"`
	Movements  int               `json:"movements"`
	Expected   LotTotalsResponse `json:"expected"`
	Actual     LotTotalsResponse `json:"actual"`
	Consistent bool              `json:"consistent"`
	Drift      []string          `json:"drift,omitempty"`
}

type ConversionRecordResponse struct {
	ID               string          `json:"id"`
	BranchID         string          `json:"branch_id"`
	SupplierID       *string         `json:"supplier_id"`
	FromKaratTypeID  int             `json:"from_karat_type_id"`
	ToKaratTypeID    int             `json:"to_karat_type_id"`
	FromPurity       decimal.Decimal `json:"from_purity"`
	ToPurity         decimal.Decimal `json:"to_purity"`
	Rate             decimal.Decimal `json:"rate"`
	FromWeight       decimal.Decimal `json:"from_weight"`
	FineWeight       decimal.Decimal `json:"fine_weight"`
	ToWeight         decimal.Decimal `json:"to_weight"`
	CostValue        decimal.Decimal `json:"cost_value"`
	SourceLotID      string          `json:"source_lot_id"`
	DestinationLotID string          `json:"destination_lot_id"`
	DebitMovementID  string          `json:"debit_movement_id"`
	CreditMovementID string          `json:"credit_movement_id"`
	ReferenceNumber  string          `json:"reference_number"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

type ConversionPreviewResponse struct {
	FromKaratTypeID int             `json:"from_karat_type_id"`
	ToKaratTypeID   int             `json:"to_karat_type_id"`
	FromWeight      decimal.Decimal `json:"from_weight"`
	ToWeight        decimal.Decimal `json:"to_weight"`
	Rate            decimal.Decimal `json:"rate"`
}

type ConsolidationBatchResponse struct {
	ID              string          `json:"id"`
	ItemKey         string          `json:"item_key"`
	BranchID        string          `json:"branch_id"`
	SupplierID      *string         `json:"supplier_id"`
	TargetLotID     string          `json:"target_lot_id"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalWeight     decimal.Decimal `json:"total_weight"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	SourceLotIDs    []string        `json:"source_lot_ids"`
	ReferenceNumber string          `json:"reference_number"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}
