package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tahsilhub/tahsil/core"
)

type fakeRepo struct {
	groups   map[uuid.UUID]Group
	syllabus map[uuid.UUID][]SyllabusTopic
	lessons  []Lesson

	createLessonsErr error
	syllabusErr      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		groups:   make(map[uuid.UUID]Group),
		syllabus: make(map[uuid.UUID][]SyllabusTopic),
	}
}

func (r *fakeRepo) CreateGroup(ctx context.Context, g Group) (Group, error) {
	g.ID = uuid.New()
	r.groups[g.ID] = g
	return g, nil
}

func (r *fakeRepo) GetGroup(ctx context.Context, id uuid.UUID) (Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, ErrGroupNotFound
	}
	return g, nil
}

func (r *fakeRepo) UpdateGroup(ctx context.Context, g Group) (Group, error) {
	if _, ok := r.groups[g.ID]; !ok {
		return Group{}, ErrGroupNotFound
	}
	r.groups[g.ID] = g
	return g, nil
}

func (r *fakeRepo) QuerySyllabus(ctx context.Context, courseID uuid.UUID) ([]SyllabusTopic, error) {
	if r.syllabusErr != nil {
		return nil, r.syllabusErr
	}
	return r.syllabus[courseID], nil
}

func (r *fakeRepo) LessonsExist(ctx context.Context, groupID uuid.UUID) (bool, error) {
	for _, lesson := range r.lessons {
		if lesson.GroupID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CreateLessons(ctx context.Context, lessons []Lesson) (int, error) {
	if r.createLessonsErr != nil {
		return 0, r.createLessonsErr
	}
	r.lessons = append(r.lessons, lessons...)
	return len(lessons), nil
}

func (r *fakeRepo) FilterLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error) {
	var out []Lesson
	for _, lesson := range r.lessons {
		if lesson.GroupID != filter.GroupID {
			continue
		}
		if filter.Status != "" && lesson.Status != filter.Status {
			continue
		}
		out = append(out, lesson)
	}
	return out, nil
}

func (r *fakeRepo) CountLessonsByStatus(ctx context.Context, groupID uuid.UUID) (LessonStatusCounts, error) {
	var counts LessonStatusCounts
	for _, lesson := range r.lessons {
		if lesson.GroupID != groupID {
			continue
		}
		switch lesson.Status {
		case LessonConfirmed:
			counts.Confirmed++
		case LessonCancelled:
			counts.Cancelled++
		}
	}
	return counts, nil
}

func testConf() *core.Config {
	conf := new(core.Config)
	conf.Timezone = "Asia/Baku"
	return conf
}

func readyGroup() Group {
	return Group{
		ID:        uuid.New(),
		CourseID:  uuid.New(),
		StartDate: datePtr(2021, time.March, 1),
		EndDate:   datePtr(2021, time.March, 14),
		Slots: []TemplateSlot{
			{DayOfWeek: 1, StartTime: "18:00", EndTime: "20:00"},
		},
		Status: GroupCurrent,
	}
}

func TestServiceGenerateLessonsSkips(t *testing.T) {
	svc := NewService(newFakeRepo(), testConf())
	ctx := context.Background()

	tests := []struct {
		name string
		mut  func(g *Group)
		want SkipReason
	}{
		{"missing start date", func(g *Group) { g.StartDate = nil }, SkipMissingDates},
		{"missing end date", func(g *Group) { g.EndDate = nil }, SkipMissingDates},
		{"no slots", func(g *Group) { g.Slots = nil }, SkipNoSlots},
		{"waiting group", func(g *Group) { g.Status = GroupWaiting }, SkipWaitingGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := readyGroup()
			tt.mut(&g)

			res, err := svc.GenerateLessons(ctx, g)
			if err != nil {
				t.Fatalf("GenerateLessons() error = %v", err)
			}
			if !res.WasSkipped() || res.Skipped != tt.want {
				t.Errorf("Skipped = %q; want %q", res.Skipped, tt.want)
			}
			if res.Created != 0 {
				t.Errorf("Created = %d; want 0", res.Created)
			}
		})
	}
}

func TestServiceGenerateLessonsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConf())
	ctx := context.Background()
	g := readyGroup()

	res, err := svc.GenerateLessons(ctx, g)
	if err != nil {
		t.Fatalf("first GenerateLessons() error = %v", err)
	}
	if res.WasSkipped() || res.Created != 2 {
		t.Fatalf("first run = %+v; want 2 created", res)
	}

	res, err = svc.GenerateLessons(ctx, g)
	if err != nil {
		t.Fatalf("second GenerateLessons() error = %v", err)
	}
	if res.Skipped != SkipAlreadyGenerated {
		t.Errorf("second run Skipped = %q; want %q", res.Skipped, SkipAlreadyGenerated)
	}
	if len(repo.lessons) != 2 {
		t.Errorf("persisted lessons = %d; want 2", len(repo.lessons))
	}
}

func TestServiceGenerateLessonsPersistFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createLessonsErr = errors.New("pq: deadlock detected")
	svc := NewService(repo, testConf())

	_, err := svc.GenerateLessons(context.Background(), readyGroup())
	if err == nil {
		t.Fatal("GenerateLessons() error = nil; want GenerationError")
	}
	if !IsGenerationError(err) {
		t.Errorf("IsGenerationError(%v) = false", err)
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error %v is not a *GenerationError", err)
	}
	if genErr.Err != repo.createLessonsErr {
		t.Errorf("wrapped error = %v; want %v", genErr.Err, repo.createLessonsErr)
	}
	// detection must survive further wrapping up the call stack
	if !IsGenerationError(errors.Wrap(err, "creating group")) {
		t.Error("IsGenerationError() = false for a wrapped generation error")
	}
	if IsGenerationError(repo.createLessonsErr) {
		t.Error("IsGenerationError() = true for the bare persistence error")
	}
}

func TestServiceCreateGroupGenerates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConf())
	courseID := uuid.New()
	repo.syllabus[courseID] = topics("Variables", "Loops")

	ng := NewGroup{
		Name:      "Backend 21",
		CourseID:  courseID,
		StartDate: datePtr(2021, time.March, 1),
		EndDate:   datePtr(2021, time.March, 14),
		Slots:     []TemplateSlot{{DayOfWeek: 1, StartTime: "18:00", EndTime: "20:00"}},
		Status:    GroupCurrent,
	}

	g, res, err := svc.CreateGroup(context.Background(), ng)
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if g.ID == uuid.Nil {
		t.Error("created group has no id")
	}
	if res.Created != 2 {
		t.Errorf("Created = %d; want 2", res.Created)
	}
	if repo.lessons[0].Topic == nil || repo.lessons[0].Topic.Name != "Variables" {
		t.Errorf("first lesson topic = %v; want Variables", repo.lessons[0].Topic)
	}
}

func TestServiceCreateGroupDefaultsToWaiting(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConf())

	g, res, err := svc.CreateGroup(context.Background(), NewGroup{Name: "Frontend 3", CourseID: uuid.New()})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if g.Status != GroupWaiting {
		t.Errorf("Status = %q; want %q", g.Status, GroupWaiting)
	}
	if !res.WasSkipped() {
		t.Error("generation should be skipped for a group without dates")
	}
}

func TestServiceUpdateGroupTriggersGeneration(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConf())
	ctx := context.Background()

	// Created waiting and dateless, so nothing is generated yet.
	g, _, err := svc.CreateGroup(ctx, NewGroup{Name: "Design 7", CourseID: uuid.New()})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if len(repo.lessons) != 0 {
		t.Fatalf("persisted lessons = %d; want 0", len(repo.lessons))
	}

	ug := UpdateGroup{
		StartDate: datePtr(2021, time.March, 1),
		EndDate:   datePtr(2021, time.March, 7),
		Slots:     []TemplateSlot{{DayOfWeek: 3, StartTime: "19:00", EndTime: "21:00"}},
		Status:    GroupCurrent,
	}

	updated, res, err := svc.UpdateGroup(ctx, g.ID, ug)
	if err != nil {
		t.Fatalf("UpdateGroup() error = %v", err)
	}
	if updated.Status != GroupCurrent {
		t.Errorf("Status = %q; want %q", updated.Status, GroupCurrent)
	}
	if res.Created != 1 {
		t.Errorf("Created = %d; want 1", res.Created)
	}
	if !repo.lessons[0].Date.Equal(time.Date(2021, time.March, 3, 0, 0, 0, 0, baku)) {
		t.Errorf("lesson date = %s; want 2021-03-03", repo.lessons[0].Date)
	}
}

func TestServiceLessons(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConf())
	groupID := uuid.New()
	repo.lessons = []Lesson{
		{GroupID: groupID, Status: LessonConfirmed},
		{GroupID: groupID, Status: LessonConfirmed},
		{GroupID: groupID, Status: LessonCancelled},
		{GroupID: groupID, Status: LessonUnviewed},
		{GroupID: uuid.New(), Status: LessonConfirmed},
	}

	lessons, counts, err := svc.Lessons(context.Background(), LessonFilter{GroupID: groupID})
	if err != nil {
		t.Fatalf("Lessons() error = %v", err)
	}
	if len(lessons) != 4 {
		t.Errorf("lessons = %d; want 4", len(lessons))
	}
	if counts.Confirmed != 2 || counts.Cancelled != 1 {
		t.Errorf("counts = %+v; want 2 confirmed, 1 cancelled", counts)
	}
}
