package handler

import (
	"net/http"

	"goldledger/internal/dto"
	"goldledger/internal/middleware"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler serves the lot and movement commands of the ownership ledger.
type LedgerHandler struct {
	ledger    service.OwnershipLedger
	validator service.BalanceValidator
}

func NewLedgerHandler(ledger service.OwnershipLedger, validator service.BalanceValidator) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, validator: validator}
}

func (h *LedgerHandler) ListLots(c *gin.Context) {
	var filter dto.LotFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	q := service.LotQuery{IncludeDepleted: filter.IncludeDepleted}
	if filter.ItemKind != "" {
		item, err := itemFromParts(filter.ItemKind, filter.ProductID, filter.KaratTypeID)
		if err != nil {
			badRequest(c, err)
			return
		}
		q.Item = &item
	}
	var err error
	if q.BranchID, err = optionalUUID(filter.BranchID); err != nil {
		badRequest(c, err)
		return
	}
	if q.SupplierID, err = optionalUUID(filter.SupplierID); err != nil {
		badRequest(c, err)
		return
	}

	lots, err := h.ledger.ActiveLots(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lotsToResponse(lots))
}

func (h *LedgerHandler) GetLot(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	lot, err := h.ledger.GetLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lotToResponse(lot))
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	movements, err := h.ledger.MovementHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movementsToResponse(movements))
}

func (h *LedgerHandler) Replay(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ledger.ReplayLot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, replayToResponse(report))
}

func (h *LedgerHandler) Receipt(c *gin.Context) {
	var req dto.ReceiptRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item, err := itemFromInput(req.ItemInput)
	if err != nil {
		badRequest(c, err)
		return
	}
	supplierID, err := supplierOrMerchant(req.SupplierID)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.ledger.ApplyReceipt(c.Request.Context(), service.ReceiptRequest{
		Item:        item,
		BranchID:    uuid.MustParse(req.BranchID),
		SupplierID:  supplierID,
		Weight:      req.Weight,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		PaidAmount:  req.PaidAmount,
		Currency:    req.Currency,
		SeparateLot: req.SeparateLot,
		Reference:   req.Reference,
		Actor:       middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ReceiptResponse{
		Lot:       lotToResponse(&res.Lot),
		Movements: movementsToResponse(res.Movements),
		Credit:    creditToResponse(res.Credit),
		Warnings:  warningsToResponse(res.Warnings),
	})
}

func (h *LedgerHandler) Sale(c *gin.Context) {
	var req dto.SaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item, err := itemFromInput(req.ItemInput)
	if err != nil {
		badRequest(c, err)
		return
	}
	supplierID, err := optionalUUID(req.SupplierID)
	if err != nil {
		badRequest(c, err)
		return
	}
	selector, err := service.SelectorByName(req.Strategy, supplierID)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.ledger.ApplySale(c.Request.Context(), service.SaleRequest{
		Item:      item,
		BranchID:  uuid.MustParse(req.BranchID),
		Weight:    req.Weight,
		Quantity:  req.Quantity,
		Selector:  selector,
		Reference: req.Reference,
		Actor:     middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saleToResponse(res))
}

// ValidateSale answers whether a sale could go through without recording it.
func (h *LedgerHandler) ValidateSale(c *gin.Context) {
	var req dto.SaleValidationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item, err := itemFromInput(req.ItemInput)
	if err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.validator.ValidateSale(c.Request.Context(), item, uuid.MustParse(req.BranchID),
		measureOf(item, req.Weight, req.Quantity), req.RequirePaid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SaleValidationResponse{
		ItemKey:       v.Item.Key(),
		BranchID:      v.BranchID.String(),
		Requested:     v.Requested,
		Available:     v.Available,
		PaidAvailable: v.PaidAvailable,
		Shortfall:     v.Shortfall,
		CanSell:       v.CanSell,
		Warnings:      warningsToResponse(v.Warnings),
	})
}

func (h *LedgerHandler) Payment(c *gin.Context) {
	var req dto.PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.ledger.ApplyPayment(c.Request.Context(), service.PaymentRequest{
		LotID:     uuid.MustParse(req.LotID),
		Amount:    req.Amount,
		Reference: req.Reference,
		Actor:     middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LotMovementResponse{
		Lot:      lotToResponse(&res.Lot),
		Movement: movementToResponse(&res.Movement),
	})
}

func (h *LedgerHandler) Waiver(c *gin.Context) {
	var req dto.WaiverRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.ledger.ApplyWaiver(c.Request.Context(), service.WaiverRequest{
		SourceLotID: uuid.MustParse(req.SourceLotID),
		TargetLotID: uuid.MustParse(req.TargetLotID),
		Weight:      req.Weight,
		Quantity:    req.Quantity,
		Reference:   req.Reference,
		Actor:       middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.WaiverResponse{
		WaiverID:     res.WaiverID.String(),
		SourceLot:    lotToResponse(&res.SourceLot),
		TargetLot:    lotToResponse(&res.TargetLot),
		SettledValue: service.RoundMoney(res.SettledValue),
		Movements:    movementsToResponse(res.Movements),
	})
}

func (h *LedgerHandler) Adjustment(c *gin.Context) {
	var req dto.AdjustmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.ledger.ApplyAdjustment(c.Request.Context(), service.AdjustmentRequest{
		LotID:          uuid.MustParse(req.LotID),
		WeightChange:   req.WeightChange,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.LotMovementResponse{
		Lot:      lotToResponse(&res.Lot),
		Movement: movementToResponse(&res.Movement),
	})
}
