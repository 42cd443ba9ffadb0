package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"retail-inventory/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// let numeric tags (gt, gte, ...) apply to decimals
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterStructValidation(lineAmounts, lineRules{})
	v.RegisterStructValidation(productAmounts, AddProductRequest{})
	v.RegisterStructValidation(expenseAmounts, AddExpenseRequest{})

	return v
}

// Money columns are NUMERIC(12,2): two decimal places, below 10^10.
const moneyPlaces = 2

var maxAmount = decimal.New(1, 10)

// checkAmount reports a value the money columns cannot hold as given
func checkAmount(sl validator.StructLevel, d decimal.Decimal, field, structField string) {
	if !d.Equal(d.Round(moneyPlaces)) {
		sl.ReportError(d, field, structField, "money", "")
		return
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		sl.ReportError(d, field, structField, "lt", maxAmount.String())
	}
}

func lineAmounts(sl validator.StructLevel) {
	line := sl.Current().Interface().(lineRules)
	checkAmount(sl, line.SalePrice, "sale_price", "SalePrice")
	if line.Quantity > 0 {
		total := line.SalePrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if total.GreaterThanOrEqual(maxAmount) {
			sl.ReportError(line.Quantity, "quantity", "Quantity", "line_total", maxAmount.String())
		}
	}
}

func productAmounts(sl validator.StructLevel) {
	req := sl.Current().Interface().(AddProductRequest)
	checkAmount(sl, req.WholesalePrice, "wholesale_price", "WholesalePrice")
	checkAmount(sl, req.SalePrice, "sale_price", "SalePrice")
}

func expenseAmounts(sl validator.StructLevel) {
	req := sl.Current().Interface().(AddExpenseRequest)
	checkAmount(sl, req.Amount, "amount", "Amount")
}

type cartRules struct {
	OwnerID int64       `json:"user_id" validate:"gt=0"`
	Lines   []lineRules `json:"cart" validate:"required,min=1,dive"`
}

type lineRules struct {
	ProductID int64           `json:"id" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	SalePrice decimal.Decimal `json:"sale_price" validate:"gt=0"`
}

// validateCart rejects malformed carts before any lock is taken
func validateCart(ownerID int64, cart []models.CartLine) error {
	rules := cartRules{OwnerID: ownerID, Lines: make([]lineRules, len(cart))}
	for i, line := range cart {
		rules.Lines[i] = lineRules{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			SalePrice: line.UnitSalePrice,
		}
	}
	return validateStruct(rules)
}

// validateStruct returns the first rule violation as a *models.ValidationError
func validateStruct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}

	first := verrs[0]
	return &models.ValidationError{
		Field:   fieldPath(first.Namespace()),
		Message: describeRule(first),
	}
}

// fieldPath drops the struct name prefix: "cartRules.cart[1].quantity" -> "cart[1].quantity"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "money":
		return fmt.Sprintf("must have at most %d decimal places", moneyPlaces)
	case "line_total":
		return fmt.Sprintf("times sale_price must stay below %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
