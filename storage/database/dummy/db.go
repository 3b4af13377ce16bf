package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core/billing"
	"github.com/tahsilhub/tahsil/core/schedule"
	"github.com/tahsilhub/tahsil/core/user"
)

type enrollmentKey struct {
	StudentID uuid.UUID
	GroupID   uuid.UUID
}

type (
	// DB is an in-memory store backing the dummy repositories. It is used
	// by API tests and local development without Postgres.
	DB struct {
		user     *userTable
		billing  *billingTable
		schedule *scheduleTable
	}

	userTable struct {
		sync.RWMutex
		table map[uuid.UUID]*user.User
	}

	billingTable struct {
		sync.RWMutex
		table map[enrollmentKey]*billing.EnrollmentRecord
	}

	scheduleTable struct {
		sync.RWMutex
		groups   map[uuid.UUID]*schedule.Group
		syllabus map[uuid.UUID][]schedule.SyllabusTopic // by course ID
		lessons  []*schedule.Lesson
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[uuid.UUID]*user.User)},
		billing: &billingTable{table: make(map[enrollmentKey]*billing.EnrollmentRecord)},
		schedule: &scheduleTable{
			groups:   make(map[uuid.UUID]*schedule.Group),
			syllabus: make(map[uuid.UUID][]schedule.SyllabusTopic),
		},
	}
	return db, nil
}

// Reset clears all tables, for tests.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[uuid.UUID]*user.User)
	db.user.Unlock()

	db.billing.Lock()
	db.billing.table = make(map[enrollmentKey]*billing.EnrollmentRecord)
	db.billing.Unlock()

	db.schedule.Lock()
	db.schedule.groups = make(map[uuid.UUID]*schedule.Group)
	db.schedule.syllabus = make(map[uuid.UUID][]schedule.SyllabusTopic)
	db.schedule.lessons = nil
	db.schedule.Unlock()
}

// SetEnrollment seeds one enrollment record, for tests.
func (db *DB) SetEnrollment(rec billing.EnrollmentRecord) {
	db.billing.Lock()
	defer db.billing.Unlock()
	db.billing.table[enrollmentKey{rec.StudentID, rec.GroupID}] = &rec
}

// SetSyllabus seeds a course's syllabus, for tests.
func (db *DB) SetSyllabus(courseID uuid.UUID, topics []schedule.SyllabusTopic) {
	db.schedule.Lock()
	defer db.schedule.Unlock()
	db.schedule.syllabus[courseID] = topics
}
