package handler

import (
	"net/http"

	"goldledger/internal/apierror"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AlertsHandler serves the low-ownership and outstanding-payment reports.
// Figures come from the cached snapshot and may lag recent commands.
type AlertsHandler struct {
	validator        service.BalanceValidator
	defaultThreshold decimal.Decimal
}

func NewAlertsHandler(validator service.BalanceValidator, defaultThreshold decimal.Decimal) *AlertsHandler {
	return &AlertsHandler{validator: validator, defaultThreshold: defaultThreshold}
}

func (h *AlertsHandler) LowOwnership(c *gin.Context) {
	branchID, err := optionalUUID(c.Query("branch_id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	threshold := h.defaultThreshold
	if raw := c.Query("threshold_grams"); raw != "" {
		if threshold, err = decimal.NewFromString(raw); err != nil || threshold.IsNegative() {
			c.JSON(http.StatusBadRequest, apierror.New("threshold_grams must be a non-negative number"))
			return
		}
	}
	alerts, err := h.validator.LowOwnershipAlerts(c.Request.Context(), branchID, threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lowOwnershipToResponse(alerts))
}

func (h *AlertsHandler) OutstandingPayments(c *gin.Context) {
	branchID, err := optionalUUID(c.Query("branch_id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	alerts, err := h.validator.OutstandingPaymentAlerts(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outstandingToResponse(alerts))
}
