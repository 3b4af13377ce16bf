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
	"github.com/volatiletech/null/v8"

	"github.com/tahsilhub/tahsil/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

type groupRow struct {
	ID          uuid.UUID   `db:"id"`
	Name        string      `db:"name"`
	GroupNumber int         `db:"group_number"`
	CourseID    uuid.UUID   `db:"course_id"`
	TeacherID   null.String `db:"teacher_id"`
	MentorID    null.String `db:"mentor_id"`
	StartDate   null.Time   `db:"start_date"`
	EndDate     null.Time   `db:"end_date"`
	Status      string      `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r groupRow) toGroup() schedule.Group {
	g := schedule.Group{
		ID:          r.ID,
		Name:        r.Name,
		GroupNumber: r.GroupNumber,
		CourseID:    r.CourseID,
		Status:      schedule.GroupStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.TeacherID.Valid {
		g.TeacherID, _ = uuid.Parse(r.TeacherID.String)
	}
	if r.MentorID.Valid {
		g.MentorID, _ = uuid.Parse(r.MentorID.String)
	}
	if r.StartDate.Valid {
		d := r.StartDate.Time
		g.StartDate = &d
	}
	if r.EndDate.Valid {
		d := r.EndDate.Time
		g.EndDate = &d
	}
	return g
}

func nullUUID(id uuid.UUID) null.String {
	if id == uuid.Nil {
		return null.String{}
	}
	return null.StringFrom(id.String())
}

func nullDate(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(*t)
}

func (repo *scheduleRepository) CreateGroup(ctx context.Context, g schedule.Group) (schedule.Group, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Group{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, group_number, course_id, teacher_id, mentor_id,
		                    start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		g.ID, g.Name, g.GroupNumber, g.CourseID, nullUUID(g.TeacherID), nullUUID(g.MentorID),
		nullDate(g.StartDate), nullDate(g.EndDate), g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return schedule.Group{}, schedule.ErrGroupExists
		}
		return schedule.Group{}, errors.Wrap(err, "creating group")
	}

	if err = insertGroupDetails(ctx, tx, g); err != nil {
		return schedule.Group{}, err
	}
	if err = tx.Commit(); err != nil {
		return schedule.Group{}, errors.Wrap(err, "committing group")
	}
	return g, nil
}

func (repo *scheduleRepository) GetGroup(ctx context.Context, id uuid.UUID) (schedule.Group, error) {
	var row groupRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT id, name, group_number, course_id, teacher_id, mentor_id,
		       start_date, end_date, status, created_at, updated_at
		FROM groups WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Group{}, schedule.ErrGroupNotFound
		}
		return schedule.Group{}, errors.Wrap(err, "getting group")
	}

	g := row.toGroup()
	if err = repo.loadGroupDetails(ctx, &g); err != nil {
		return schedule.Group{}, err
	}
	return g, nil
}

func (repo *scheduleRepository) UpdateGroup(ctx context.Context, g schedule.Group) (schedule.Group, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Group{}, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE groups SET
			name = $2, group_number = $3, course_id = $4, teacher_id = $5, mentor_id = $6,
			start_date = $7, end_date = $8, status = $9, updated_at = $10
		WHERE id = $1`,
		g.ID, g.Name, g.GroupNumber, g.CourseID, nullUUID(g.TeacherID), nullUUID(g.MentorID),
		nullDate(g.StartDate), nullDate(g.EndDate), g.Status, g.UpdatedAt)
	if err != nil {
		return schedule.Group{}, errors.Wrap(err, "updating group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.Group{}, schedule.ErrGroupNotFound
	}

	// slots and roster are replaced wholesale
	if _, err = tx.ExecContext(ctx, "DELETE FROM group_slots WHERE group_id = $1", g.ID); err != nil {
		return schedule.Group{}, errors.Wrap(err, "clearing group slots")
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM group_students WHERE group_id = $1", g.ID); err != nil {
		return schedule.Group{}, errors.Wrap(err, "clearing group roster")
	}
	if err = insertGroupDetails(ctx, tx, g); err != nil {
		return schedule.Group{}, err
	}

	if err = tx.Commit(); err != nil {
		return schedule.Group{}, errors.Wrap(err, "committing group")
	}
	return g, nil
}

func insertGroupDetails(ctx context.Context, tx *sqlx.Tx, g schedule.Group) error {
	for _, slot := range g.Slots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_slots (group_id, day_of_week, start_time, end_time, practical)
			VALUES ($1, $2, $3, $4, $5)`,
			g.ID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Practical); err != nil {
			return errors.Wrap(err, "inserting group slot")
		}
	}
	for _, studentID := range g.StudentIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_students (group_id, student_id) VALUES ($1, $2)`,
			g.ID, studentID); err != nil {
			return errors.Wrap(err, "inserting group student")
		}
	}
	return nil
}

type slotRow struct {
	DayOfWeek int    `db:"day_of_week"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
	Practical bool   `db:"practical"`
}

func (repo *scheduleRepository) loadGroupDetails(ctx context.Context, g *schedule.Group) error {
	var rows []slotRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT day_of_week, start_time, end_time, practical
		FROM group_slots WHERE group_id = $1 ORDER BY id`, g.ID)
	if err != nil {
		return errors.Wrap(err, "loading group slots")
	}
	g.Slots = make([]schedule.TemplateSlot, 0, len(rows))
	for _, row := range rows {
		g.Slots = append(g.Slots, schedule.TemplateSlot{
			DayOfWeek: row.DayOfWeek,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			Practical: row.Practical,
		})
	}

	var students []uuid.UUID
	err = repo.db.SelectContext(ctx, &students, `
		SELECT student_id FROM group_students WHERE group_id = $1`, g.ID)
	if err != nil {
		return errors.Wrap(err, "loading group roster")
	}
	g.StudentIDs = students
	return nil
}

type syllabusRow struct {
	ID          uuid.UUID `db:"id"`
	CourseID    uuid.UUID `db:"course_id"`
	OrderNumber int       `db:"order_number"`
	Name        string    `db:"name"`
}

func (repo *scheduleRepository) QuerySyllabus(ctx context.Context, courseID uuid.UUID) ([]schedule.SyllabusTopic, error) {
	var rows []syllabusRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, order_number, name
		FROM syllabus WHERE course_id = $1 ORDER BY order_number`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying syllabus")
	}
	topics := make([]schedule.SyllabusTopic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, schedule.SyllabusTopic{
			ID:          row.ID,
			CourseID:    row.CourseID,
			OrderNumber: row.OrderNumber,
			Name:        row.Name,
		})
	}
	return topics, nil
}

func (repo *scheduleRepository) LessonsExist(ctx context.Context, groupID uuid.UUID) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM lessons WHERE group_id = $1)", groupID)
	return exists, errors.Wrap(err, "checking lessons existence")
}

func (repo *scheduleRepository) CreateLessons(ctx context.Context, lessons []schedule.Lesson) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var created int
	for _, lesson := range lessons {
		if lesson.ID == uuid.Nil {
			lesson.ID = uuid.New()
		}

		var syllabusID null.String
		var topicOrder null.Int
		var topicName null.String
		if lesson.Topic != nil {
			if lesson.Topic.SyllabusID != nil {
				syllabusID = null.StringFrom(lesson.Topic.SyllabusID.String())
			}
			topicOrder = null.IntFrom(lesson.Topic.OrderNumber)
			topicName = null.StringFrom(lesson.Topic.Name)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO lessons (id, group_id, course_id, date, day, start_time, end_time,
			                     teacher_id, mentor_id, syllabus_id, topic_order, topic_name,
			                     status, edu_confirmed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (group_id, date, start_time) DO NOTHING`,
			lesson.ID, lesson.GroupID, lesson.CourseID, lesson.Date, lesson.Day,
			lesson.StartTime, lesson.EndTime, nullUUID(lesson.TeacherID), nullUUID(lesson.MentorID),
			syllabusID, topicOrder, topicName, lesson.Status, lesson.EduConfirmed)
		if err != nil {
			return 0, errors.Wrap(err, "inserting lesson")
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			continue // another run already persisted this occurrence
		}
		created++

		for _, student := range lesson.Students {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO lesson_students (lesson_id, student_id, attendance)
				VALUES ($1, $2, $3)`,
				lesson.ID, student.StudentID, student.Attendance); err != nil {
				return 0, errors.Wrap(err, "inserting lesson student")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing lessons")
	}
	return created, nil
}

type lessonRow struct {
	ID           uuid.UUID   `db:"id"`
	GroupID      uuid.UUID   `db:"group_id"`
	CourseID     uuid.UUID   `db:"course_id"`
	Date         time.Time   `db:"date"`
	Day          int         `db:"day"`
	StartTime    string      `db:"start_time"`
	EndTime      string      `db:"end_time"`
	TeacherID    null.String `db:"teacher_id"`
	MentorID     null.String `db:"mentor_id"`
	SyllabusID   null.String `db:"syllabus_id"`
	TopicOrder   null.Int    `db:"topic_order"`
	TopicName    null.String `db:"topic_name"`
	Status       string      `db:"status"`
	EduConfirmed bool        `db:"edu_confirmed"`
}

func (r lessonRow) toLesson() schedule.Lesson {
	lesson := schedule.Lesson{
		ID:           r.ID,
		GroupID:      r.GroupID,
		CourseID:     r.CourseID,
		Date:         r.Date,
		Day:          r.Day,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Status:       schedule.LessonStatus(r.Status),
		EduConfirmed: r.EduConfirmed,
	}
	if r.TeacherID.Valid {
		lesson.TeacherID, _ = uuid.Parse(r.TeacherID.String)
	}
	if r.MentorID.Valid {
		lesson.MentorID, _ = uuid.Parse(r.MentorID.String)
	}
	if r.TopicName.Valid {
		topic := &schedule.LessonTopic{
			OrderNumber: r.TopicOrder.Int,
			Name:        r.TopicName.String,
		}
		if r.SyllabusID.Valid {
			if id, err := uuid.Parse(r.SyllabusID.String); err == nil {
				topic.SyllabusID = &id
			}
		}
		lesson.Topic = topic
	}
	return lesson
}

func (repo *scheduleRepository) FilterLessons(ctx context.Context, filter schedule.LessonFilter) ([]schedule.Lesson, error) {
	where := []string{"group_id = $1"}
	args := []interface{}{filter.GroupID}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TeacherID != nil {
		where = append(where, fmt.Sprintf("teacher_id = %s", arg(*filter.TeacherID)))
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = %s", arg(string(filter.Status))))
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("date >= %s", arg(*filter.StartDate)))
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("date <= %s", arg(*filter.EndDate)))
	}

	query := `
		SELECT id, group_id, course_id, date, day, start_time, end_time,
		       teacher_id, mentor_id, syllabus_id, topic_order, topic_name,
		       status, edu_confirmed
		FROM lessons WHERE ` + strings.Join(where, " AND ") + " ORDER BY date, start_time"
	if filter.Length > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(filter.Length))
	}

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering lessons")
	}

	lessons := make([]schedule.Lesson, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.toLesson())
		ids = append(ids, row.ID)
	}
	if err := repo.loadRosters(ctx, lessons, ids); err != nil {
		return nil, err
	}
	return lessons, nil
}

type lessonStudentRow struct {
	LessonID   uuid.UUID `db:"lesson_id"`
	StudentID  uuid.UUID `db:"student_id"`
	Attendance int       `db:"attendance"`
}

func (repo *scheduleRepository) loadRosters(ctx context.Context, lessons []schedule.Lesson, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	var rows []lessonStudentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT lesson_id, student_id, attendance
		FROM lesson_students WHERE lesson_id = ANY ($1)`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "loading lesson rosters")
	}

	byLesson := make(map[uuid.UUID][]schedule.LessonStudent, len(lessons))
	for _, row := range rows {
		byLesson[row.LessonID] = append(byLesson[row.LessonID], schedule.LessonStudent{
			StudentID:  row.StudentID,
			Attendance: row.Attendance,
		})
	}
	for i := range lessons {
		lessons[i].Students = byLesson[lessons[i].ID]
	}
	return nil
}

func (repo *scheduleRepository) CountLessonsByStatus(ctx context.Context, groupID uuid.UUID) (schedule.LessonStatusCounts, error) {
	var counts schedule.LessonStatusCounts
	err := repo.db.QueryRowxContext(ctx, `
		SELECT count(*) FILTER (WHERE status = 'confirmed'),
		       count(*) FILTER (WHERE status = 'cancelled')
		FROM lessons WHERE group_id = $1`, groupID).
		Scan(&counts.Confirmed, &counts.Cancelled)
	if err != nil {
		return schedule.LessonStatusCounts{}, errors.Wrap(err, "counting lessons")
	}
	return counts, nil
}
