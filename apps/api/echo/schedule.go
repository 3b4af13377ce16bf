package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tahsilhub/tahsil/core"
	"github.com/tahsilhub/tahsil/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, validate *validator.Validate) {
	api := scheduleApi{
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/groups", jwt)
	gg.POST("", api.create, adminMiddleware())

	dg := gg.Group("/:id", staffMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.GET("/lessons", api.lessons)
}

// Handlers

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	g, res, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == schedule.ErrGroupExists {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: schedule.ErrGroupExists.Error()})
		}
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, GroupResponse{Group: g, Generation: res})
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	g, err := api.svc.GetGroup(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == schedule.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	var data schedule.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	g, res, err := api.svc.UpdateGroup(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == schedule.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, GroupResponse{Group: g, Generation: res})
}

func (api *scheduleApi) lessons(ctx echo.Context) error {
	id, err := paramUUID(ctx, "id")
	if err != nil {
		return err
	}

	filter := schedule.LessonFilter{GroupID: id}
	if filter.TeacherID, err = queryUUID(ctx, "teacher"); err != nil {
		return err
	}
	filter.Status = schedule.LessonStatus(ctx.QueryParam("status"))
	if filter.StartDate, err = queryDate(ctx, "start_date"); err != nil {
		return err
	}
	if filter.EndDate, err = queryDate(ctx, "end_date"); err != nil {
		return err
	}
	if filter.Length, err = queryInt(ctx, "length"); err != nil {
		return err
	}

	lessons, counts, err := api.svc.Lessons(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []schedule.Lesson{}
	}
	return ctx.JSON(http.StatusOK, LessonsResponse{Lessons: lessons, Counts: counts})
}

type (
	GroupResponse struct {
		Group      schedule.Group            `json:"group"`
		Generation schedule.GenerationResult `json:"generation"`
	}

	LessonsResponse struct {
		Lessons []schedule.Lesson           `json:"lessons"`
		Counts  schedule.LessonStatusCounts `json:"counts"`
	}
)
