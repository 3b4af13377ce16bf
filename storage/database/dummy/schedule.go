package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core/schedule"
)

type scheduleRepository struct {
	db *scheduleTable
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.schedule}
}

func (repo *scheduleRepository) CreateGroup(ctx context.Context, g schedule.Group) (schedule.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, known := range repo.db.groups {
		if known.Name == g.Name {
			return schedule.Group{}, schedule.ErrGroupExists
		}
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *scheduleRepository) GetGroup(ctx context.Context, id uuid.UUID) (schedule.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return *g, nil
	}
	return schedule.Group{}, schedule.ErrGroupNotFound
}

func (repo *scheduleRepository) UpdateGroup(ctx context.Context, g schedule.Group) (schedule.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.groups[g.ID]; !ok {
		return schedule.Group{}, schedule.ErrGroupNotFound
	}
	repo.db.groups[g.ID] = &g
	return g, nil
}

func (repo *scheduleRepository) QuerySyllabus(ctx context.Context, courseID uuid.UUID) ([]schedule.SyllabusTopic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.syllabus[courseID], nil
}

func (repo *scheduleRepository) LessonsExist(ctx context.Context, groupID uuid.UUID) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, lesson := range repo.db.lessons {
		if lesson.GroupID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *scheduleRepository) CreateLessons(ctx context.Context, lessons []schedule.Lesson) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	occupied := make(map[string]bool, len(repo.db.lessons))
	key := func(l schedule.Lesson) string {
		return l.GroupID.String() + l.Date.Format("2006-01-02") + l.StartTime
	}
	for _, known := range repo.db.lessons {
		occupied[key(*known)] = true
	}

	var created int
	for _, lesson := range lessons {
		if occupied[key(lesson)] {
			continue
		}
		if lesson.ID == uuid.Nil {
			lesson.ID = uuid.New()
		}
		occupied[key(lesson)] = true
		l := lesson
		repo.db.lessons = append(repo.db.lessons, &l)
		created++
	}
	return created, nil
}

func (repo *scheduleRepository) FilterLessons(ctx context.Context, filter schedule.LessonFilter) ([]schedule.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var lessons []schedule.Lesson
	for _, lesson := range repo.db.lessons {
		if lesson.GroupID != filter.GroupID {
			continue
		}
		if filter.TeacherID != nil && lesson.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.Status != "" && lesson.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && lesson.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && lesson.Date.After(*filter.EndDate) {
			continue
		}
		lessons = append(lessons, *lesson)
	}
	if filter.Length > 0 {
		if filter.Length >= len(lessons) {
			return nil, nil
		}
		lessons = lessons[filter.Length:]
	}
	return lessons, nil
}

func (repo *scheduleRepository) CountLessonsByStatus(ctx context.Context, groupID uuid.UUID) (schedule.LessonStatusCounts, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var counts schedule.LessonStatusCounts
	for _, lesson := range repo.db.lessons {
		if lesson.GroupID != groupID {
			continue
		}
		switch lesson.Status {
		case schedule.LessonConfirmed:
			counts.Confirmed++
		case schedule.LessonCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}
