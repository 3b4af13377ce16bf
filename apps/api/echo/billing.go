package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tahsilhub/tahsil/core/billing"
)

type billingApi struct {
	svc      *billing.Service
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *billing.Service, validate *validator.Validate) {
	api := billingApi{
		svc:      svc,
		validate: validate,
	}

	bg := g.Group("/tuition-fees", jwt, workerMiddleware())
	bg.GET("", api.query)
	bg.POST("/notify-debtors", api.notifyDebtors)
	bg.GET("/:studentID/:groupID", api.retrieve)
	bg.PUT("/:studentID/:groupID/payments", api.updatePayments)
}

// Handlers

func (api *billingApi) query(ctx echo.Context) error {
	filter := new(billing.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	views, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying tuition fees")
	}
	if views == nil {
		views = []billing.LedgerView{}
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *billingApi) retrieve(ctx echo.Context) error {
	studentID, err := paramUUID(ctx, "studentID")
	if err != nil {
		return err
	}
	groupID, err := paramUUID(ctx, "groupID")
	if err != nil {
		return err
	}

	view, err := api.svc.Ledger(ctx.Request().Context(), studentID, groupID)
	if err != nil {
		if errors.Cause(err) == billing.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "computing ledger")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *billingApi) updatePayments(ctx echo.Context) error {
	studentID, err := paramUUID(ctx, "studentID")
	if err != nil {
		return err
	}
	groupID, err := paramUUID(ctx, "groupID")
	if err != nil {
		return err
	}

	var data billing.UpdatePayments
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayments")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	view, err := api.svc.UpdatePayments(ctx.Request().Context(), studentID, groupID, data)
	if err != nil {
		if errors.Cause(err) == billing.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating payments")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *billingApi) notifyDebtors(ctx echo.Context) error {
	sent, err := api.svc.NotifyDebtors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "notifying debtors")
	}
	return ctx.JSON(http.StatusOK, NotifyDebtorsResponse{Notified: sent})
}

type NotifyDebtorsResponse struct {
	Notified int `json:"notified"`
}
