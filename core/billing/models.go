package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EnrollmentStatus tracks a student's progression through one group.
type EnrollmentStatus string

const (
	StatusWaiting        EnrollmentStatus = "waiting"
	StatusContinue       EnrollmentStatus = "continue"
	StatusGraduate       EnrollmentStatus = "graduate"
	StatusDebtorGraduate EnrollmentStatus = "debtor-graduate"
	StatusStopped        EnrollmentStatus = "stopped"
	StatusFreeze         EnrollmentStatus = "freeze"
)

var EnrollmentStatuses = []EnrollmentStatus{
	StatusWaiting,
	StatusContinue,
	StatusGraduate,
	StatusDebtorGraduate,
	StatusStopped,
	StatusFreeze,
}

// settled statuses pull every remaining installment due immediately:
// the student is no longer actively progressing.
func (s EnrollmentStatus) Settled() bool {
	switch s {
	case StatusStopped, StatusFreeze, StatusGraduate, StatusDebtorGraduate:
		return true
	}
	return false
}

func (s EnrollmentStatus) Valid() bool {
	for _, known := range EnrollmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Installment is one scheduled payment obligation within a contract.
// Array order is the order installments were created in and is the order
// the ledger absorbs payments in.
type Installment struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// Payment is one actually-received payment. Only confirmed payments
// count toward the ledger.
type Payment struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Confirmed   bool            `json:"confirmed"`
}

// Enrollment is a student's participation record for one group, with its
// payment contract. The ledger only ever reads it.
type Enrollment struct {
	StudentID        uuid.UUID        `json:"student_id"`
	GroupID          uuid.UUID        `json:"group_id"`
	Status           EnrollmentStatus `json:"status"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	PaymentPartCount int              `json:"payment_part_count"`
	Installments     []Installment    `json:"installments"`
	Payments         []Payment        `json:"payments"`
	StoppedDate      *time.Time       `json:"stopped_date,omitempty"`
	FreezeDate       *time.Time       `json:"freeze_date,omitempty"`
}

// InstallmentStatus is one row of the ledger breakdown: the installment
// plus how much of it the received payments have covered.
type InstallmentStatus struct {
	Installment
	FullyPaid     bool            `json:"fully_paid"`
	UnpaidPortion decimal.Decimal `json:"unpaid_portion"`
}

// LedgerResult is the computed view of what is owed vs. paid for one
// enrollment as of a reference date.
type LedgerResult struct {
	TotalDue       decimal.Decimal `json:"total_due"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	CurrentDebt    decimal.Decimal `json:"current_debt"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`

	// OverdueInstallmentCount approximates "how many monthly cycles behind"
	// using the first installment as the canonical monthly unit.
	OverdueInstallmentCount int `json:"overdue_installment_count"`
	// UnpaidDueCount is the precise number of due-gated installments that
	// are not fully covered; prefer it when installment amounts differ.
	UnpaidDueCount int `json:"unpaid_due_count"`

	Breakdown []InstallmentStatus `json:"breakdown"`
}

// EnrollmentRecord is an Enrollment joined with the display fields the
// tuition-fee views need.
type EnrollmentRecord struct {
	Enrollment
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	StudentPhone string    `json:"student_phone"`
	GroupName    string    `json:"group_name"`
	CourseID     uuid.UUID `json:"course_id"`
	CourseName   string    `json:"course_name"`
}

// LedgerView pairs an enrollment record with its computed ledger.
type LedgerView struct {
	EnrollmentRecord
	Ledger LedgerResult `json:"ledger"`
}

// QueryFilter narrows tuition-fee listings.
// Status accepts the stored statuses plus the synthetic "debtor-<status>"
// forms (computed debt > 0 within the base status).
type QueryFilter struct {
	Search    string      `query:"search"`
	GroupIDs  []uuid.UUID `query:"group"`
	CourseIDs []uuid.UUID `query:"course"`
	Status    string      `query:"status"`
	Months    int         `query:"months"` // confirmed payment within the last N calendar months
	Length    int         `query:"length"` // rows already delivered; used as offset
}
