package handler

import (
	"errors"
	"net/http"
	"reflect"

	"goldledger/internal/apierror"
	"goldledger/internal/dto"
	"goldledger/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError hands err to middleware.ErrorHandler, which renders the
// envelope once the handler returns.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional id; "" yields nil.
func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// supplierOrMerchant maps an empty supplier id onto the merchant sentinel.
func supplierOrMerchant(s string) (uuid.UUID, error) {
	if s == "" {
		return model.MerchantSupplierID, nil
	}
	return uuid.Parse(s)
}

func itemFromInput(in dto.ItemInput) (model.ItemRef, error) {
	return itemFromParts(in.ItemKind, in.ProductID, in.KaratTypeID)
}

func itemFromParts(kind, productID string, karatTypeID int) (model.ItemRef, error) {
	var item model.ItemRef
	switch model.ItemKind(kind) {
	case model.ItemKindProduct:
		id, err := uuid.Parse(productID)
		if err != nil {
			return item, errors.New("product_id is required for product items")
		}
		item = model.ProductRef(id)
	case model.ItemKindRawGold:
		item = model.RawGoldRef(karatTypeID)
	default:
		return item, errors.New("item_kind must be product or raw_gold")
	}
	return item, item.Validate()
}

// measureOf splits a requested amount into weight or quantity by item kind.
func measureOf(item model.ItemRef, weight, quantity decimal.Decimal) decimal.Decimal {
	if item.IsProduct() {
		return quantity
	}
	return weight
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
}
