package handler

import (
	"net/http"

	"goldledger/internal/apierror"
	"goldledger/internal/dto"
	"goldledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type SuppliersHandler struct {
	svc    service.SupplierService
	credit service.SupplierCreditGuard
}

func NewSuppliersHandler(svc service.SupplierService, credit service.SupplierCreditGuard) *SuppliersHandler {
	return &SuppliersHandler{svc: svc, credit: credit}
}

func (h *SuppliersHandler) Create(c *gin.Context) {
	var req dto.SupplierRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SuppliersHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliersHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliersHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SupplierRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SuppliersHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Credit reports whether owing `additional` more would stay within the
// supplier's limit.
func (h *SuppliersHandler) Credit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	additional := decimal.Zero
	if raw := c.Query("additional"); raw != "" {
		var err error
		if additional, err = decimal.NewFromString(raw); err != nil || additional.IsNegative() {
			c.JSON(http.StatusBadRequest, apierror.New("additional must be a non-negative number"))
			return
		}
	}
	check, err := h.credit.CheckCredit(c.Request.Context(), id, additional)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, creditToResponse(check))
}
