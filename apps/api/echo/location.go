package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/location"
	"github.com/darasahq/darasa/core/user"
)

type locationApi struct {
	svc      location.Service
	validate *validator.Validate
}

func registerLocationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc location.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := locationApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/locations", jwt)
	lg.POST("", api.create, operationMiddleware(user.OpLocationManage))
	lg.GET("", api.query)

	dg := lg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, operationMiddleware(user.OpLocationManage))
	dg.DELETE("", api.destroy, operationMiddleware(user.OpLocationManage))
}

// Handlers

func (api *locationApi) create(ctx echo.Context) error {
	var data location.NewLocation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLocation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	loc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating location")
	}
	return ctx.JSON(http.StatusCreated, loc)
}

func (api *locationApi) query(ctx echo.Context) error {
	locations, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying locations")
	}
	if locations == nil {
		locations = []location.Location{}
	}
	return ctx.JSON(http.StatusOK, locations)
}

func (api *locationApi) retrieve(ctx echo.Context) error {
	loc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loc)
}

func (api *locationApi) update(ctx echo.Context) error {
	loc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data location.UpdateLocation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLocation")
	}
	if err := data.Validate(api.validate, loc); err != nil {
		return err
	}

	loc, err = api.svc.Update(ctx.Request().Context(), loc.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating location")
	}
	return ctx.JSON(http.StatusOK, loc)
}

func (api *locationApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
