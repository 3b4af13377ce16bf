package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core"
)

type fakeRepo struct {
	recs []EnrollmentRecord
}

var _ Repository = (*fakeRepo)(nil)

func (r *fakeRepo) GetEnrollment(_ context.Context, studentID, groupID uuid.UUID) (EnrollmentRecord, error) {
	for _, rec := range r.recs {
		if rec.StudentID == studentID && rec.GroupID == groupID {
			return rec, nil
		}
	}
	return EnrollmentRecord{}, ErrNotFound
}

func (r *fakeRepo) FilterEnrollments(_ context.Context, filter QueryFilter, statuses []EnrollmentStatus) ([]EnrollmentRecord, error) {
	var out []EnrollmentRecord
	for _, rec := range r.recs {
		if len(statuses) > 0 {
			var match bool
			for _, s := range statuses {
				if rec.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeRepo) UpdateEnrollmentPayments(_ context.Context, studentID, groupID uuid.UUID, payments []Payment) (EnrollmentRecord, error) {
	for i, rec := range r.recs {
		if rec.StudentID == studentID && rec.GroupID == groupID {
			r.recs[i].Payments = payments
			return r.recs[i], nil
		}
	}
	return EnrollmentRecord{}, ErrNotFound
}

type mailRecorder struct {
	sent []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

func testConf() *core.Config {
	return &core.Config{Timezone: "Asia/Baku"}
}

func record(name, email string, status EnrollmentStatus, paid int64) EnrollmentRecord {
	return EnrollmentRecord{
		Enrollment: Enrollment{
			StudentID:    uuid.New(),
			GroupID:      uuid.New(),
			Status:       status,
			TotalAmount:  d(300),
			Installments: threeInstallments(),
			Payments:     []Payment{confirmed(paid, month1)},
		},
		StudentName:  name,
		StudentEmail: email,
		GroupName:    "Backend 01",
	}
}

func TestServiceFilterDebtorOnly(t *testing.T) {
	nowFunc = func() time.Time { return month3.AddDate(0, 1, 0) }
	defer func() { nowFunc = time.Now }()

	repo := &fakeRepo{recs: []EnrollmentRecord{
		record("Settled Student", "a@test.test", StatusContinue, 300),
		record("Debtor Student", "b@test.test", StatusContinue, 100),
		record("Graduate Debtor", "c@test.test", StatusDebtorGraduate, 0),
	}}
	svc := NewService(repo, &mailRecorder{}, testConf())

	views, err := svc.Filter(context.Background(), QueryFilter{Status: "debtor-continue"})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	if views[0].StudentName != "Debtor Student" {
		t.Errorf("got %q, want the continuing debtor", views[0].StudentName)
	}
	if !views[0].Ledger.CurrentDebt.Equal(d(200)) {
		t.Errorf("CurrentDebt = %v, want 200", views[0].Ledger.CurrentDebt)
	}
}

func TestServiceFilterRecentPayments(t *testing.T) {
	nowFunc = func() time.Time { return month3 }
	defer func() { nowFunc = time.Now }()

	january := record("January Payer", "", StatusContinue, 100)
	march := record("March Payer", "", StatusContinue, 0)
	march.Payments = []Payment{confirmed(100, month3)}
	pending := record("Pending Payer", "", StatusContinue, 0)
	pending.Payments = []Payment{{Amount: d(100), PaymentDate: month3}}

	repo := &fakeRepo{recs: []EnrollmentRecord{january, march, pending}}
	svc := NewService(repo, &mailRecorder{}, testConf())

	views, err := svc.Filter(context.Background(), QueryFilter{Months: 1})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(views) != 1 || views[0].StudentName != "March Payer" {
		t.Fatalf("Months=1 got %d views, want only the March payer", len(views))
	}

	views, err = svc.Filter(context.Background(), QueryFilter{Months: 3})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(views) != 2 {
		t.Errorf("Months=3 got %d views, want 2", len(views))
	}
}

func TestServiceFilterPagination(t *testing.T) {
	nowFunc = func() time.Time { return month3 }
	defer func() { nowFunc = time.Now }()

	repo := &fakeRepo{}
	for i := 0; i < 25; i++ {
		repo.recs = append(repo.recs, record(fmt.Sprintf("Student %02d", i), "", StatusContinue, 0))
	}
	svc := NewService(repo, &mailRecorder{}, testConf())

	first, err := svc.Filter(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(first) != 20 {
		t.Errorf("first page length = %d, want 20", len(first))
	}

	second, err := svc.Filter(context.Background(), QueryFilter{Length: 20})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(second) != 5 {
		t.Errorf("second page length = %d, want 5", len(second))
	}

	third, err := svc.Filter(context.Background(), QueryFilter{Length: 25})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(third) != 0 {
		t.Errorf("past-the-end page length = %d, want 0", len(third))
	}
}

func TestServiceFilterUnknownStatus(t *testing.T) {
	svc := NewService(&fakeRepo{}, &mailRecorder{}, testConf())
	_, err := svc.Filter(context.Background(), QueryFilter{Status: "nope"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !core.IsValidationError(err) {
		t.Errorf("error = %T, want *core.ValidationError", err)
	}
}

func TestServiceUpdatePaymentsRecomputesLedger(t *testing.T) {
	nowFunc = func() time.Time { return month3 }
	defer func() { nowFunc = time.Now }()

	rec := record("Debtor Student", "", StatusContinue, 0)
	repo := &fakeRepo{recs: []EnrollmentRecord{rec}}
	svc := NewService(repo, &mailRecorder{}, testConf())

	view, err := svc.UpdatePayments(context.Background(), rec.StudentID, rec.GroupID, UpdatePayments{
		Payments: []PaymentInput{
			{Amount: d(100), PaymentDate: month1, Confirmed: true},
			{Amount: d(100), PaymentDate: month2, Confirmed: false},
		},
	})
	if err != nil {
		t.Fatalf("UpdatePayments() error = %v", err)
	}
	if !view.Ledger.TotalPaid.Equal(d(100)) {
		t.Errorf("TotalPaid = %v, want 100 (unconfirmed excluded)", view.Ledger.TotalPaid)
	}
	if !view.Ledger.CurrentDebt.Equal(d(200)) {
		t.Errorf("CurrentDebt = %v, want 200", view.Ledger.CurrentDebt)
	}
}

func TestServiceNotifyDebtors(t *testing.T) {
	nowFunc = func() time.Time { return month3 }
	defer func() { nowFunc = time.Now }()

	repo := &fakeRepo{recs: []EnrollmentRecord{
		record("Settled Student", "settled@test.test", StatusContinue, 300),
		record("Debtor Student", "debtor@test.test", StatusContinue, 0),
		record("No Email Debtor", "", StatusContinue, 0),
		record("Waiting Student", "waiting@test.test", StatusWaiting, 0),
	}}
	mails := &mailRecorder{}
	svc := NewService(repo, mails, testConf())

	n, err := svc.NotifyDebtors(context.Background())
	if err != nil {
		t.Fatalf("NotifyDebtors() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("notified %d, want 1", n)
	}
	if len(mails.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mails.sent))
	}
	if got := mails.sent[0].To[0].Address; got != "debtor@test.test" {
		t.Errorf("recipient = %q, want the indebted student with an email", got)
	}
}
