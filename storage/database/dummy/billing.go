package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core/billing"
)

type billingRepository struct {
	db *billingTable
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db.billing}
}

func (repo *billingRepository) GetEnrollment(ctx context.Context, studentID, groupID uuid.UUID) (billing.EnrollmentRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[enrollmentKey{studentID, groupID}]; ok {
		return *rec, nil
	}
	return billing.EnrollmentRecord{}, billing.ErrNotFound
}

func (repo *billingRepository) FilterEnrollments(
	ctx context.Context,
	filter billing.QueryFilter,
	statuses []billing.EnrollmentStatus,
) ([]billing.EnrollmentRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inStatuses := func(s billing.EnrollmentStatus) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, known := range statuses {
			if s == known {
				return true
			}
		}
		return false
	}
	inIDs := func(id uuid.UUID, ids []uuid.UUID) bool {
		if len(ids) == 0 {
			return true
		}
		for _, known := range ids {
			if id == known {
				return true
			}
		}
		return false
	}

	recs := make([]billing.EnrollmentRecord, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if !inStatuses(rec.Status) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(rec.StudentName), strings.ToLower(filter.Search)) {
			continue
		}
		if !inIDs(rec.GroupID, filter.GroupIDs) || !inIDs(rec.CourseID, filter.CourseIDs) {
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (repo *billingRepository) UpdateEnrollmentPayments(
	ctx context.Context,
	studentID, groupID uuid.UUID,
	payments []billing.Payment,
) (billing.EnrollmentRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[enrollmentKey{studentID, groupID}]
	if !ok {
		return billing.EnrollmentRecord{}, billing.ErrNotFound
	}
	rec.Payments = payments
	return *rec, nil
}
