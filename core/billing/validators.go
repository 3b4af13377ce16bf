package billing

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tahsilhub/tahsil/core"
)

// PaymentInput is one received payment as submitted by billing workers.
type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date" validate:"required"`
	Confirmed   bool            `json:"confirmed"`
}

// UpdatePayments defines what information may be provided to replace an
// enrollment's received-payment list.
type UpdatePayments struct {
	Payments []PaymentInput `json:"payments" validate:"required,dive"`
}

func (up *UpdatePayments) Validate(validate *validator.Validate) error {
	if err := validate.Struct(up); err != nil {
		return err
	}

	// monetary checks the validator cannot express on decimals
	var flds []core.FieldError
	for i, p := range up.Payments {
		if p.Amount.IsNegative() {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("payments[%d].amount", i),
				Error: "must not be negative",
			})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(ErrInvalidEnrollmentData, flds...)
	}
	return nil
}
