package schedule

import (
	"time"

	"github.com/google/uuid"
)

// GroupStatus tracks a group's lifecycle.
type GroupStatus string

const (
	GroupWaiting GroupStatus = "waiting"
	GroupCurrent GroupStatus = "current"
	GroupEnded   GroupStatus = "ended"
)

// TemplateSlot is one recurring weekly lesson slot: "every Tuesday
// 18:00-20:00". Practical slots are logistics sessions that never consume
// a syllabus topic.
type TemplateSlot struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=1,max=7"`  // ISO: Monday=1 .. Sunday=7
	StartTime string `json:"start_time" validate:"required,hhmm"` // "HH:mm"
	EndTime   string `json:"end_time" validate:"required,hhmm"`   // "HH:mm"
	Practical bool   `json:"practical"`
}

// SyllabusTopic is one ordered unit of a course curriculum.
type SyllabusTopic struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	OrderNumber int       `json:"order_number"`
	Name        string    `json:"name"`
}

// Group is a cohort with a weekly timetable projected over [StartDate, EndDate].
type Group struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	GroupNumber int            `json:"group_number"`
	CourseID    uuid.UUID      `json:"course_id"`
	TeacherID   uuid.UUID      `json:"teacher_id"`
	MentorID    uuid.UUID      `json:"mentor_id"`
	StudentIDs  []uuid.UUID    `json:"student_ids"`
	StartDate   *time.Time     `json:"start_date,omitempty"`
	EndDate     *time.Time     `json:"end_date,omitempty"`
	Slots       []TemplateSlot `json:"slots"`
	Status      GroupStatus    `json:"status"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

// LessonStatus tracks the review state of one held (or upcoming) lesson.
type LessonStatus string

const (
	LessonUnviewed  LessonStatus = "unviewed"
	LessonConfirmed LessonStatus = "confirmed"
	LessonCancelled LessonStatus = "cancelled"
)

// LessonTopic is the content assigned to a generated lesson: either a
// syllabus topic or the fixed practical marker. A lesson past the end of
// the syllabus has no topic at all.
type LessonTopic struct {
	SyllabusID  *uuid.UUID `json:"syllabus_id,omitempty"`
	OrderNumber int        `json:"order_number,omitempty"`
	Name        string     `json:"name"`
}

// LessonStudent is one roster entry with its attendance mark.
type LessonStudent struct {
	StudentID  uuid.UUID `json:"student_id"`
	Attendance int       `json:"attendance"`
}

// Lesson is one concrete occurrence of a template slot on a calendar day.
type Lesson struct {
	ID           uuid.UUID       `json:"id"`
	GroupID      uuid.UUID       `json:"group_id"`
	CourseID     uuid.UUID       `json:"course_id"`
	Date         time.Time       `json:"date"`
	Day          int             `json:"day"` // ISO weekday of Date
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time"`
	TeacherID    uuid.UUID       `json:"teacher_id"`
	MentorID     uuid.UUID       `json:"mentor_id"`
	Students     []LessonStudent `json:"students"`
	Topic        *LessonTopic    `json:"topic,omitempty"`
	Status       LessonStatus    `json:"status"`
	EduConfirmed bool            `json:"edu_confirmed"`
}

// LessonFilter narrows lesson listings for one group.
type LessonFilter struct {
	GroupID   uuid.UUID    `query:"group"`
	TeacherID *uuid.UUID   `query:"teacher"`
	Status    LessonStatus `query:"status"`
	StartDate *time.Time   `query:"start_date"`
	EndDate   *time.Time   `query:"end_date"`
	Length    int          `query:"length"`
}

// LessonStatusCounts summarizes a group's reviewed lessons.
type LessonStatusCounts struct {
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}
