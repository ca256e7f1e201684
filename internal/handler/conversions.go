package handler

import (
	"net/http"
	"strconv"

	"goldledger/internal/apierror"
	"goldledger/internal/dto"
	"goldledger/internal/middleware"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConversionsHandler struct {
	svc service.KaratConversionService
}

func NewConversionsHandler(svc service.KaratConversionService) *ConversionsHandler {
	return &ConversionsHandler{svc: svc}
}

func (h *ConversionsHandler) Convert(c *gin.Context) {
	var req dto.ConversionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	supplierID, err := supplierOrMerchant(req.SupplierID)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Convert(c.Request.Context(), service.ConversionRequest{
		BranchID:        uuid.MustParse(req.BranchID),
		SupplierID:      supplierID,
		FromKaratTypeID: req.FromKaratTypeID,
		ToKaratTypeID:   req.ToKaratTypeID,
		FromWeight:      req.FromWeight,
		Reference:       req.Reference,
		Actor:           middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conversionToResponse(res))
}

// Preview reports the destination weight for a conversion without recording it.
func (h *ConversionsHandler) Preview(c *gin.Context) {
	from, err1 := strconv.Atoi(c.Query("from_karat_type_id"))
	to, err2 := strconv.Atoi(c.Query("to_karat_type_id"))
	weight, err3 := decimal.NewFromString(c.Query("from_weight"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, apierror.New("from_karat_type_id, to_karat_type_id and from_weight are required"))
		return
	}
	toWeight, rate, err := h.svc.Preview(from, to, weight)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConversionPreviewResponse{
		FromKaratTypeID: from,
		ToKaratTypeID:   to,
		FromWeight:      weight,
		ToWeight:        toWeight,
		Rate:            rate,
	})
}

func (h *ConversionsHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	conv, err := h.svc.GetConversion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversionRecordToResponse(conv))
}

type ConsolidationsHandler struct{ svc service.ConsolidationService }

func NewConsolidationsHandler(svc service.ConsolidationService) *ConsolidationsHandler {
	return &ConsolidationsHandler{svc: svc}
}

func (h *ConsolidationsHandler) Consolidate(c *gin.Context) {
	var req dto.ConsolidationRequest
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
	res, err := h.svc.Consolidate(c.Request.Context(), service.ConsolidationRequest{
		Item:       item,
		BranchID:   uuid.MustParse(req.BranchID),
		SupplierID: supplierID,
		Reference:  req.Reference,
		Actor:      middleware.Actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, consolidationToResponse(res))
}

func (h *ConsolidationsHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	batch, err := h.svc.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchToResponse(batch))
}
