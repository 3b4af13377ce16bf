package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core"
)

// PracticalTopicName is the fixed topic attached to practical slots.
const PracticalTopicName = "Praktika"

// BuildLessons projects a group's weekly timetable onto every civil day
// between its start and end dates (inclusive) in loc. Each matching slot
// yields one lesson. Non-practical lessons consume syllabus topics in
// ascending order through a cursor that never resets within one run;
// once the syllabus is exhausted, further lessons carry no topic.
//
// The returned lessons are not persisted; BuildLessons is a pure
// projection over its inputs.
func BuildLessons(g Group, syllabus []SyllabusTopic, loc *time.Location) []Lesson {
	if g.StartDate == nil || g.EndDate == nil || len(g.Slots) == 0 {
		return nil
	}

	topics := make([]SyllabusTopic, len(syllabus))
	copy(topics, syllabus)
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].OrderNumber < topics[j].OrderNumber })

	var lessons []Lesson
	cursor := 0

	days := core.NewDayRange(*g.StartDate, *g.EndDate, loc)
	for day, ok := days.Next(); ok; day, ok = days.Next() {
		weekday := core.ISOWeekday(day)
		for _, slot := range g.Slots {
			if slot.DayOfWeek != weekday {
				continue
			}

			lesson := Lesson{
				GroupID:   g.ID,
				CourseID:  g.CourseID,
				Date:      day,
				Day:       weekday,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				TeacherID: g.TeacherID,
				MentorID:  g.MentorID,
				Students:  rosterSnapshot(g.StudentIDs),
				Status:    LessonUnviewed,
			}

			if slot.Practical {
				lesson.Topic = &LessonTopic{Name: PracticalTopicName}
			} else if cursor < len(topics) {
				topic := topics[cursor]
				id := topic.ID
				lesson.Topic = &LessonTopic{
					SyllabusID:  &id,
					OrderNumber: topic.OrderNumber,
					Name:        topic.Name,
				}
				cursor++
			} else {
				cursor++ // past the syllabus; lesson stays topicless
			}

			lessons = append(lessons, lesson)
		}
	}
	return lessons
}

// rosterSnapshot copies the group's student list so later roster edits
// do not alias into already generated lessons.
func rosterSnapshot(studentIDs []uuid.UUID) []LessonStudent {
	roster := make([]LessonStudent, 0, len(studentIDs))
	for _, id := range studentIDs {
		roster = append(roster, LessonStudent{StudentID: id})
	}
	return roster
}
