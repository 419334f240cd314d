package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
)

type analyticsApi struct {
	svc walkthrough.Service
}

func registerAnalyticsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc walkthrough.Service,
	usrSvc user.Service,
) {
	api := analyticsApi{svc: svc}

	ag := g.Group("/analytics", jwt, operationMiddleware(user.OpAnalyticsRead))
	ag.GET("/overview", api.overview)
	ag.GET("/locations", api.locations)
	ag.GET("/teachers", api.teachers)
}

// Handlers

func (api *analyticsApi) overview(ctx echo.Context) error {
	ov, err := api.svc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *analyticsApi) locations(ctx echo.Context) error {
	stats, err := api.svc.LocationStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying location stats")
	}
	if stats == nil {
		stats = []walkthrough.LocationStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) teachers(ctx echo.Context) error {
	stats, err := api.svc.TeacherStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teacher stats")
	}
	if stats == nil {
		stats = []walkthrough.TeacherStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}
