package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/tahsilhub/tahsil/core/billing"
)

type billingRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *sqlx.DB) billing.Repository {
	return &billingRepository{db: db}
}

type enrollmentRow struct {
	StudentID        uuid.UUID       `db:"student_id"`
	GroupID          uuid.UUID       `db:"group_id"`
	Status           string          `db:"status"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	PaymentPartCount int             `db:"payment_part_count"`
	StoppedDate      null.Time       `db:"stopped_date"`
	FreezeDate       null.Time       `db:"freeze_date"`
	StudentName      string          `db:"student_name"`
	StudentEmail     string          `db:"student_email"`
	StudentPhone     string          `db:"student_phone"`
	GroupName        string          `db:"group_name"`
	CourseID         uuid.UUID       `db:"course_id"`
	CourseName       string          `db:"course_name"`
}

func (r enrollmentRow) toRecord() billing.EnrollmentRecord {
	rec := billing.EnrollmentRecord{
		Enrollment: billing.Enrollment{
			StudentID:        r.StudentID,
			GroupID:          r.GroupID,
			Status:           billing.EnrollmentStatus(r.Status),
			TotalAmount:      r.TotalAmount,
			PaymentPartCount: r.PaymentPartCount,
		},
		StudentName:  r.StudentName,
		StudentEmail: r.StudentEmail,
		StudentPhone: r.StudentPhone,
		GroupName:    r.GroupName,
		CourseID:     r.CourseID,
		CourseName:   r.CourseName,
	}
	if r.StoppedDate.Valid {
		d := r.StoppedDate.Time
		rec.StoppedDate = &d
	}
	if r.FreezeDate.Valid {
		d := r.FreezeDate.Time
		rec.FreezeDate = &d
	}
	return rec
}

const enrollmentQuery = `
	SELECT e.student_id, e.group_id, e.status, e.total_amount, e.payment_part_count,
	       e.stopped_date, e.freeze_date,
	       u.name AS student_name, u.email AS student_email, u.phone AS student_phone,
	       g.name AS group_name, g.course_id, c.name AS course_name
	FROM enrollments e
	JOIN users u ON u.id = e.student_id
	JOIN groups g ON g.id = e.group_id
	JOIN courses c ON c.id = g.course_id`

func (repo *billingRepository) GetEnrollment(ctx context.Context, studentID, groupID uuid.UUID) (billing.EnrollmentRecord, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		enrollmentQuery+" WHERE e.student_id = $1 AND e.group_id = $2", studentID, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return billing.EnrollmentRecord{}, billing.ErrNotFound
		}
		return billing.EnrollmentRecord{}, errors.Wrap(err, "getting enrollment")
	}

	rec := row.toRecord()
	if err = repo.loadContract(ctx, &rec.Enrollment); err != nil {
		return billing.EnrollmentRecord{}, err
	}
	return rec, nil
}

func (repo *billingRepository) FilterEnrollments(
	ctx context.Context,
	filter billing.QueryFilter,
	statuses []billing.EnrollmentStatus,
) ([]billing.EnrollmentRecord, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(statuses) > 0 {
		vals := make([]string, 0, len(statuses))
		for _, s := range statuses {
			vals = append(vals, string(s))
		}
		where = append(where, fmt.Sprintf("e.status = ANY (%s)", arg(pq.Array(vals))))
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("u.name ILIKE %s", arg("%"+filter.Search+"%")))
	}
	if len(filter.GroupIDs) > 0 {
		where = append(where, fmt.Sprintf("e.group_id = ANY (%s)", arg(pq.Array(filter.GroupIDs))))
	}
	if len(filter.CourseIDs) > 0 {
		where = append(where, fmt.Sprintf("g.course_id = ANY (%s)", arg(pq.Array(filter.CourseIDs))))
	}

	query := enrollmentQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.name, e.group_id"

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}

	recs := make([]billing.EnrollmentRecord, 0, len(rows))
	for _, row := range rows {
		rec := row.toRecord()
		if err := repo.loadContract(ctx, &rec.Enrollment); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo *billingRepository) UpdateEnrollmentPayments(
	ctx context.Context,
	studentID, groupID uuid.UUID,
	payments []billing.Payment,
) (billing.EnrollmentRecord, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return billing.EnrollmentRecord{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE enrollments SET updated_at = $1 WHERE student_id = $2 AND group_id = $3",
		time.Now().UTC(), studentID, groupID)
	if err != nil {
		return billing.EnrollmentRecord{}, errors.Wrap(err, "touching enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.EnrollmentRecord{}, billing.ErrNotFound
	}

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM payments WHERE student_id = $1 AND group_id = $2", studentID, groupID); err != nil {
		return billing.EnrollmentRecord{}, errors.Wrap(err, "clearing payments")
	}
	for _, p := range payments {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO payments (student_id, group_id, amount, payment_date, confirmed)
			VALUES ($1, $2, $3, $4, $5)`,
			studentID, groupID, p.Amount, p.PaymentDate, p.Confirmed); err != nil {
			return billing.EnrollmentRecord{}, errors.Wrap(err, "inserting payment")
		}
	}

	if err = tx.Commit(); err != nil {
		return billing.EnrollmentRecord{}, errors.Wrap(err, "committing payments")
	}
	return repo.GetEnrollment(ctx, studentID, groupID)
}

type installmentRow struct {
	Amount  decimal.Decimal `db:"amount"`
	DueDate time.Time       `db:"due_date"`
}

type paymentRow struct {
	Amount      decimal.Decimal `db:"amount"`
	PaymentDate time.Time       `db:"payment_date"`
	Confirmed   bool            `db:"confirmed"`
}

// loadContract fills the enrollment's installments and payments, both in
// insertion order.
func (repo *billingRepository) loadContract(ctx context.Context, enr *billing.Enrollment) error {
	var insts []installmentRow
	err := repo.db.SelectContext(ctx, &insts, `
		SELECT amount, due_date FROM installments
		WHERE student_id = $1 AND group_id = $2 ORDER BY id`,
		enr.StudentID, enr.GroupID)
	if err != nil {
		return errors.Wrap(err, "loading installments")
	}
	enr.Installments = make([]billing.Installment, 0, len(insts))
	for _, row := range insts {
		enr.Installments = append(enr.Installments, billing.Installment{Amount: row.Amount, DueDate: row.DueDate})
	}

	var pays []paymentRow
	err = repo.db.SelectContext(ctx, &pays, `
		SELECT amount, payment_date, confirmed FROM payments
		WHERE student_id = $1 AND group_id = $2 ORDER BY id`,
		enr.StudentID, enr.GroupID)
	if err != nil {
		return errors.Wrap(err, "loading payments")
	}
	enr.Payments = make([]billing.Payment, 0, len(pays))
	for _, row := range pays {
		enr.Payments = append(enr.Payments, billing.Payment{
			Amount:      row.Amount,
			PaymentDate: row.PaymentDate,
			Confirmed:   row.Confirmed,
		})
	}
	return nil
}
