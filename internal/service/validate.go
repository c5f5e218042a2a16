package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fjod/go_cart/session-cart/internal/domain"
	"github.com/fjod/go_cart/session-cart/internal/money"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

var itemValidator = newItemValidator()

func newItemValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated as the value they hold, not as a struct
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative() && money.HasCentPrecision(d)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidateLineItem rejects malformed items before they reach the cart.
func ValidateLineItem(item domain.LineItem) error {
	err := itemValidator.Struct(item)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "notblank":
		return fmt.Errorf("%w: %s is required", ErrValidation, fe.Field())
	case "min":
		return fmt.Errorf("%w: %s must be at least %s", ErrValidation, fe.Field(), fe.Param())
	case "money":
		return fmt.Errorf("%w: %s must be a non-negative amount with at most two decimal places", ErrValidation, fe.Field())
	default:
		return fmt.Errorf("%w: %s failed %s", ErrValidation, fe.Field(), fe.Tag())
	}
}
