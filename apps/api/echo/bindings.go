package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tahsilhub/tahsil/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// query-param parsing helpers for filter fields echo cannot bind on its own

const queryDateLayout = "2006-01-02"

func queryDate(ctx echo.Context, name string) (*time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(queryDateLayout, val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: name, Error: "must be a date in YYYY-MM-DD format",
		})
	}
	return &t, nil
}

func queryUUID(ctx echo.Context, name string) (*uuid.UUID, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: name, Error: "must be a valid UUID",
		})
	}
	return &id, nil
}

func queryUUIDs(ctx echo.Context, name string) ([]uuid.UUID, error) {
	vals, ok := ctx.QueryParams()[name]
	if !ok {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(vals))
	for _, val := range vals {
		if val == "" {
			continue
		}
		id, err := uuid.Parse(val)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: name, Error: "must be a valid UUID",
			})
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: name, Error: "must be a non-negative integer",
		})
	}
	return n, nil
}

func paramUUID(ctx echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, errHttpNotFound
	}
	return id, nil
}
