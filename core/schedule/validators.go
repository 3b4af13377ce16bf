package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tahsilhub/tahsil/core"
)

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name        string         `json:"name" validate:"required"`
	GroupNumber int            `json:"group_number" validate:"omitempty,min=1"`
	CourseID    uuid.UUID      `json:"course_id" validate:"required"`
	TeacherID   uuid.UUID      `json:"teacher_id"`
	MentorID    uuid.UUID      `json:"mentor_id"`
	StudentIDs  []uuid.UUID    `json:"student_ids"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	Slots       []TemplateSlot `json:"slots" validate:"omitempty,dive"`
	Status      GroupStatus    `json:"status" validate:"omitempty,oneof=waiting current ended"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	if err := validate.Struct(ng); err != nil {
		return err
	}
	return validateDates(ng.StartDate, ng.EndDate)
}

// UpdateGroup defines what information may be provided to modify an
// existing Group. Nil fields are left untouched.
type UpdateGroup struct {
	Name       string         `json:"name"`
	TeacherID  *uuid.UUID     `json:"teacher_id"`
	MentorID   *uuid.UUID     `json:"mentor_id"`
	StudentIDs []uuid.UUID    `json:"student_ids"`
	StartDate  *time.Time     `json:"start_date"`
	EndDate    *time.Time     `json:"end_date"`
	Slots      []TemplateSlot `json:"slots" validate:"omitempty,dive"`
	Status     GroupStatus    `json:"status" validate:"omitempty,oneof=waiting current ended"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	if err := validate.Struct(ug); err != nil {
		return err
	}
	return validateDates(ug.StartDate, ug.EndDate)
}

func (ug *UpdateGroup) apply(g *Group) {
	if ug.Name != "" {
		g.Name = ug.Name
	}
	if ug.TeacherID != nil {
		g.TeacherID = *ug.TeacherID
	}
	if ug.MentorID != nil {
		g.MentorID = *ug.MentorID
	}
	if ug.StudentIDs != nil {
		g.StudentIDs = ug.StudentIDs
	}
	if ug.StartDate != nil {
		g.StartDate = ug.StartDate
	}
	if ug.EndDate != nil {
		g.EndDate = ug.EndDate
	}
	if ug.Slots != nil {
		g.Slots = ug.Slots
	}
	if ug.Status != "" {
		g.Status = ug.Status
	}
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "end_date", Error: "must not precede start_date",
		})
	}
	return nil
}
