package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tahsilhub/tahsil/core"
)

var (
	// errors
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupExists   = errors.New("a group with this name already exists")

	nowFunc = time.Now // mockable
)

// SkipReason explains why a generation run deliberately produced nothing.
// A skip is a no-op result, not a failure.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipMissingDates     SkipReason = "missing-dates"
	SkipNoSlots          SkipReason = "no-slots"
	SkipWaitingGroup     SkipReason = "waiting-group"
	SkipAlreadyGenerated SkipReason = "already-generated"
)

// GenerationResult reports the outcome of one generation run.
type GenerationResult struct {
	Created int        `json:"created"`
	Skipped SkipReason `json:"skipped,omitempty"`
}

func (r GenerationResult) WasSkipped() bool { return r.Skipped != SkipNone }

// GenerationError wraps a persistence failure during lesson insertion so
// callers can tell "nothing to generate" from "failed to generate".
type GenerationError struct {
	GroupID uuid.UUID
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating lessons for group %s: %v", e.GroupID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group) (Group, error)
		GetGroup(ctx context.Context, id uuid.UUID) (Group, error)
		UpdateGroup(ctx context.Context, g Group) (Group, error)
		// QuerySyllabus returns a course's topics sorted ascending by order number.
		QuerySyllabus(ctx context.Context, courseID uuid.UUID) ([]SyllabusTopic, error)
		LessonsExist(ctx context.Context, groupID uuid.UUID) (bool, error)
		// CreateLessons batch-inserts lessons and reports how many rows were
		// actually written (duplicates of already persisted occurrences are
		// skipped by the storage layer's uniqueness guard).
		CreateLessons(ctx context.Context, lessons []Lesson) (int, error)
		FilterLessons(ctx context.Context, filter LessonFilter) ([]Lesson, error)
		CountLessonsByStatus(ctx context.Context, groupID uuid.UUID) (LessonStatusCounts, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
		loc  *time.Location
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo: repo,
		conf: conf,
		loc:  conf.Location(),
	}
}

// GenerateLessons projects the group's timetable into persisted lessons.
// It runs at most once per group's active lifetime: re-invocation after
// the first successful run is a deliberate no-op, as is invocation on a
// group that is not ready to run (missing dates, empty template, waiting
// status). The storage layer's uniqueness guard backs up the existence
// check against concurrent invocation for the same group.
func (svc *Service) GenerateLessons(ctx context.Context, g Group) (GenerationResult, error) {
	switch {
	case g.StartDate == nil || g.EndDate == nil:
		return GenerationResult{Skipped: SkipMissingDates}, nil
	case len(g.Slots) == 0:
		return GenerationResult{Skipped: SkipNoSlots}, nil
	case g.Status == GroupWaiting:
		return GenerationResult{Skipped: SkipWaitingGroup}, nil
	}

	exists, err := svc.repo.LessonsExist(ctx, g.ID)
	if err != nil {
		return GenerationResult{}, errors.Wrap(err, "checking existing lessons")
	}
	if exists {
		return GenerationResult{Skipped: SkipAlreadyGenerated}, nil
	}

	syllabus, err := svc.repo.QuerySyllabus(ctx, g.CourseID)
	if err != nil {
		return GenerationResult{}, errors.Wrap(err, "querying syllabus")
	}

	lessons := BuildLessons(g, syllabus, svc.loc)
	if len(lessons) == 0 {
		return GenerationResult{}, nil
	}

	created, err := svc.repo.CreateLessons(ctx, lessons)
	if err != nil {
		return GenerationResult{}, &GenerationError{GroupID: g.ID, Err: err}
	}
	return GenerationResult{Created: created}, nil
}

// CreateGroup persists a new group and immediately runs lesson
// generation for it. A generation failure is surfaced alongside the
// created group; the caller decides whether to reject the create.
func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (Group, GenerationResult, error) {
	now := nowFunc().UTC()
	g := Group{
		Name:        ng.Name,
		GroupNumber: ng.GroupNumber,
		CourseID:    ng.CourseID,
		TeacherID:   ng.TeacherID,
		MentorID:    ng.MentorID,
		StudentIDs:  ng.StudentIDs,
		StartDate:   ng.StartDate,
		EndDate:     ng.EndDate,
		Slots:       ng.Slots,
		Status:      ng.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if g.Status == "" {
		g.Status = GroupWaiting
	}

	g, err := svc.repo.CreateGroup(ctx, g)
	if err != nil {
		return Group{}, GenerationResult{}, err
	}

	res, err := svc.GenerateLessons(ctx, g)
	if err != nil {
		return g, res, err
	}
	return g, res, nil
}

// UpdateGroup saves group edits and re-runs generation, which is a no-op
// unless the group had never produced lessons before (e.g. it just left
// the waiting status or only now received dates).
func (svc *Service) UpdateGroup(ctx context.Context, id uuid.UUID, ug UpdateGroup) (Group, GenerationResult, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, GenerationResult{}, err
	}

	ug.apply(&g)
	g.UpdatedAt = nowFunc().UTC()

	g, err = svc.repo.UpdateGroup(ctx, g)
	if err != nil {
		return Group{}, GenerationResult{}, err
	}

	res, err := svc.GenerateLessons(ctx, g)
	if err != nil {
		return g, res, err
	}
	return g, res, nil
}

func (svc *Service) GetGroup(ctx context.Context, id uuid.UUID) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

// Lessons lists a group's lessons with the group's confirmed/cancelled
// totals, which the review views show next to any page.
func (svc *Service) Lessons(ctx context.Context, filter LessonFilter) ([]Lesson, LessonStatusCounts, error) {
	// align date bounds to civil days so callers can pass bare dates
	if filter.StartDate != nil {
		s := core.StartOfDay(*filter.StartDate, svc.loc)
		filter.StartDate = &s
	}
	if filter.EndDate != nil {
		e := core.EndOfDay(*filter.EndDate, svc.loc)
		filter.EndDate = &e
	}

	lessons, err := svc.repo.FilterLessons(ctx, filter)
	if err != nil {
		return nil, LessonStatusCounts{}, errors.Wrap(err, "filtering lessons")
	}
	counts, err := svc.repo.CountLessonsByStatus(ctx, filter.GroupID)
	if err != nil {
		return nil, LessonStatusCounts{}, errors.Wrap(err, "counting lessons")
	}
	return lessons, counts, nil
}
