package handler

import (
	"net/http"

	"goldledger/internal/apierror"
	"goldledger/internal/dto"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CostingHandler struct{ engine service.CostingEngine }

func NewCostingHandler(engine service.CostingEngine) *CostingHandler {
	return &CostingHandler{engine: engine}
}

// Quote prices `quantity` (grams or units) of an item with WAC, FIFO or LIFO.
func (h *CostingHandler) Quote(c *gin.Context) {
	var q dto.CostQuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	item, err := itemFromParts(q.ItemKind, q.ProductID, q.KaratTypeID)
	if err != nil {
		badRequest(c, err)
		return
	}
	branchID, err := uuid.Parse(q.BranchID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("branch_id is required"))
		return
	}
	requested, err := decimal.NewFromString(q.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("quantity must be a decimal number"))
		return
	}

	quote, err := h.engine.Quote(c.Request.Context(), service.CostingMethod(q.Method), item, branchID, requested)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteToResponse(quote))
}
