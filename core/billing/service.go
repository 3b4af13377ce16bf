package billing

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tahsilhub/tahsil/core"
)

var (
	// errors
	ErrNotFound = errors.New("enrollment not found")

	nowFunc = time.Now // mockable
)

// pageLimit is the fixed page size of tuition-fee listings.
const pageLimit = 20

type (
	Repository interface {
		GetEnrollment(ctx context.Context, studentID, groupID uuid.UUID) (EnrollmentRecord, error)
		// FilterEnrollments applies AND on Search (case-insensitive student
		// name match), GroupIDs, CourseIDs and the given stored statuses.
		// It does not paginate; debt-dependent filtering happens above it.
		FilterEnrollments(ctx context.Context, filter QueryFilter, statuses []EnrollmentStatus) ([]EnrollmentRecord, error)
		// UpdateEnrollmentPayments replaces the received-payment list of one
		// enrollment. Installments are never touched here.
		UpdateEnrollmentPayments(ctx context.Context, studentID, groupID uuid.UUID, payments []Payment) (EnrollmentRecord, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		loc     *time.Location
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		loc:     conf.Location(),
	}
}

// now is the institution-local reference instant ledgers are computed at.
func (svc *Service) now() time.Time {
	return nowFunc().In(svc.loc)
}

// Ledger computes the tuition ledger view for one enrollment.
func (svc *Service) Ledger(ctx context.Context, studentID, groupID uuid.UUID) (LedgerView, error) {
	rec, err := svc.repo.GetEnrollment(ctx, studentID, groupID)
	if err != nil {
		return LedgerView{}, err
	}
	res, err := ComputeLedger(rec.Enrollment, svc.now())
	if err != nil {
		return LedgerView{}, err
	}
	return LedgerView{EnrollmentRecord: rec, Ledger: res}, nil
}

// Filter lists ledger views page by page. The synthetic "debtor-<status>"
// filters keep only enrollments whose computed debt is positive, which is
// why pagination happens after the ledgers are computed.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]LedgerView, error) {
	statuses, debtorOnly, err := parseStatusFilter(filter.Status)
	if err != nil {
		return nil, err
	}
	filter.Search = core.CleanString(filter.Search)

	recs, err := svc.repo.FilterEnrollments(ctx, filter, statuses)
	if err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}

	asOf := svc.now()
	var payFrom, payTo time.Time
	if filter.Months > 0 {
		payFrom, payTo = core.MonthsBack(asOf, filter.Months, svc.loc)
	}
	views := make([]LedgerView, 0, len(recs))
	for _, rec := range recs {
		if filter.Months > 0 && !paidWithin(rec.Payments, payFrom, payTo) {
			continue
		}
		res, err := ComputeLedger(rec.Enrollment, asOf)
		if err != nil {
			return nil, errors.Wrapf(err, "computing ledger for student %s", rec.StudentID)
		}
		if debtorOnly && !res.CurrentDebt.IsPositive() {
			continue
		}
		views = append(views, LedgerView{EnrollmentRecord: rec, Ledger: res})
	}

	// page window
	if filter.Length < 0 {
		filter.Length = 0
	}
	if filter.Length >= len(views) {
		return []LedgerView{}, nil
	}
	views = views[filter.Length:]
	if len(views) > pageLimit {
		views = views[:pageLimit]
	}
	return views, nil
}

// UpdatePayments replaces the received payments of one enrollment and
// returns the freshly computed ledger view. Only billing workers may
// mutate payments; the role check belongs to the API layer.
func (svc *Service) UpdatePayments(ctx context.Context, studentID, groupID uuid.UUID, up UpdatePayments) (LedgerView, error) {
	payments := make([]Payment, 0, len(up.Payments))
	for _, p := range up.Payments {
		payments = append(payments, Payment{
			Amount:      p.Amount,
			PaymentDate: p.PaymentDate,
			Confirmed:   p.Confirmed,
		})
	}

	rec, err := svc.repo.UpdateEnrollmentPayments(ctx, studentID, groupID, payments)
	if err != nil {
		return LedgerView{}, err
	}
	res, err := ComputeLedger(rec.Enrollment, svc.now())
	if err != nil {
		return LedgerView{}, err
	}
	return LedgerView{EnrollmentRecord: rec, Ledger: res}, nil
}

// NotifyDebtors fans out one reminder email per indebted enrollment and
// returns how many reminders were handed to the email service.
func (svc *Service) NotifyDebtors(ctx context.Context) (int, error) {
	recs, err := svc.repo.FilterEnrollments(ctx, QueryFilter{}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying enrollments")
	}

	asOf := svc.now()
	var msgs []*core.EmailMessage
	for _, rec := range recs {
		res, err := ComputeLedger(rec.Enrollment, asOf)
		if err != nil {
			return 0, errors.Wrapf(err, "computing ledger for student %s", rec.StudentID)
		}
		if !res.CurrentDebt.IsPositive() || rec.StudentEmail == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: rec.StudentName, Address: rec.StudentEmail}},
			Subject: "Tuition payment reminder",
			BodyStr: fmt.Sprintf(
				"Dear %s,\n\nYour tuition balance for group %q is overdue by %s as of %s. "+
					"Please settle the outstanding amount or contact the administration.\n",
				rec.StudentName, rec.GroupName, res.CurrentDebt.StringFixed(2),
				asOf.Format("02.01.2006"),
			),
		})
	}

	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}

// paidWithin reports whether any confirmed payment falls inside the
// [from, to] window.
func paidWithin(payments []Payment, from, to time.Time) bool {
	for _, p := range payments {
		if p.Confirmed && !p.PaymentDate.Before(from) && !p.PaymentDate.After(to) {
			return true
		}
	}
	return false
}

// parseStatusFilter maps a tuition-fee status filter to the stored
// statuses it covers. The "graduate" family always includes both
// graduate and debtor-graduate records.
func parseStatusFilter(s string) (statuses []EnrollmentStatus, debtorOnly bool, err error) {
	switch s {
	case "":
		return nil, false, nil
	case "continue", "stopped", "freeze", "waiting":
		return []EnrollmentStatus{EnrollmentStatus(s)}, false, nil
	case "graduate":
		return []EnrollmentStatus{StatusGraduate, StatusDebtorGraduate}, false, nil
	case "debtor-continue":
		return []EnrollmentStatus{StatusContinue}, true, nil
	case "debtor-graduate":
		return []EnrollmentStatus{StatusGraduate, StatusDebtorGraduate}, true, nil
	case "debtor-stopped":
		return []EnrollmentStatus{StatusStopped}, true, nil
	case "debtor-freeze":
		return []EnrollmentStatus{StatusFreeze}, true, nil
	}
	return nil, false, core.NewValidationError(nil, core.FieldError{
		Field: "status", Error: fmt.Sprintf("unknown status filter %q", s),
	})
}
