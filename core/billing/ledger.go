package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tahsilhub/tahsil/core"
)

var ErrInvalidEnrollmentData = errors.New("invalid enrollment data")

// ComputeLedger derives the tuition ledger for one enrollment as of a
// reference date. It is a pure function: it never mutates the enrollment
// and only fails on malformed input, rejected up front.
//
// Received payments are absorbed against installments in array order,
// oldest obligation first; no partial credit is attributed to a later
// installment while an earlier one remains unpaid.
func ComputeLedger(enr Enrollment, asOf time.Time) (LedgerResult, error) {
	if err := validateEnrollment(enr); err != nil {
		return LedgerResult{}, err
	}

	var res LedgerResult

	// total confirmed payments received
	for _, p := range enr.Payments {
		if p.Confirmed {
			res.TotalPaid = res.TotalPaid.Add(p.Amount)
		}
	}

	// due-date gating
	gate, allDue := gating(enr, asOf)
	if enr.Status != StatusWaiting {
		for _, inst := range enr.Installments {
			if allDue || !inst.DueDate.After(gate) {
				res.TotalDue = res.TotalDue.Add(inst.Amount)
			}
		}
	}

	// debt never goes negative; overpayment is not negative debt
	if enr.Status != StatusWaiting {
		res.CurrentDebt = decimal.Max(res.TotalDue.Sub(res.TotalPaid), decimal.Zero)
	}
	res.TotalRemaining = decimal.Max(enr.TotalAmount.Sub(res.TotalPaid), decimal.Zero)

	// FIFO absorption across the breakdown
	res.Breakdown = make([]InstallmentStatus, 0, len(enr.Installments))
	remaining := res.TotalPaid
	for _, inst := range enr.Installments {
		st := InstallmentStatus{Installment: inst}
		if remaining.GreaterThanOrEqual(inst.Amount) {
			st.FullyPaid = true
			st.UnpaidPortion = decimal.Zero
			remaining = remaining.Sub(inst.Amount)
		} else {
			st.UnpaidPortion = inst.Amount.Sub(remaining)
			remaining = decimal.Zero
		}
		res.Breakdown = append(res.Breakdown, st)
	}

	// precise count of due-gated installments not fully covered
	if enr.Status != StatusWaiting {
		for i, st := range res.Breakdown {
			due := allDue || !enr.Installments[i].DueDate.After(gate)
			if due && !st.FullyPaid {
				res.UnpaidDueCount++
			}
		}
	}

	// legacy estimate: debt divided by the first installment amount,
	// rounded up; assumes uniform installment size
	if len(enr.Installments) > 0 && res.CurrentDebt.IsPositive() {
		first := enr.Installments[0].Amount
		if first.IsPositive() {
			res.OverdueInstallmentCount = int(res.CurrentDebt.Div(first).Ceil().IntPart())
		}
	}

	return res, nil
}

// gating resolves the due-date cutoff. Settled statuses pull every
// remaining installment due, except that stopped/freeze enrollments with
// a recorded suspension date earlier than asOf cap the cutoff there:
// debt stops accruing when the seat does.
func gating(enr Enrollment, asOf time.Time) (gate time.Time, allDue bool) {
	gate, allDue = asOf, enr.Status.Settled()
	switch enr.Status {
	case StatusStopped:
		if enr.StoppedDate != nil && enr.StoppedDate.Before(asOf) {
			gate, allDue = *enr.StoppedDate, false
		}
	case StatusFreeze:
		if enr.FreezeDate != nil && enr.FreezeDate.Before(asOf) {
			gate, allDue = *enr.FreezeDate, false
		}
	}
	return gate, allDue
}

func validateEnrollment(enr Enrollment) error {
	var flds []core.FieldError

	if enr.TotalAmount.IsNegative() {
		flds = append(flds, core.FieldError{Field: "total_amount", Error: "must not be negative"})
	}
	if enr.PaymentPartCount < 0 {
		flds = append(flds, core.FieldError{Field: "payment_part_count", Error: "must not be negative"})
	}
	for i, inst := range enr.Installments {
		if inst.Amount.IsNegative() {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("installments[%d].amount", i),
				Error: "must not be negative",
			})
		}
	}
	for i, p := range enr.Payments {
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
