package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type assistApi struct {
	svc      core.AssistService
	validate *validator.Validate
}

// registerAssistAPI mounts the assistant endpoints. These are drafting aids;
// nothing they return is persisted until the caller submits it through the
// regular write endpoints.
func registerAssistAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc core.AssistService,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := assistApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/assist", jwt, operationMiddleware(user.OpAssistUse))
	ag.POST("/feedback", api.feedback)
	ag.POST("/standards", api.standards)
}

// Handlers

func (api *assistApi) feedback(ctx echo.Context) error {
	var data core.ObservationData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ObservationData")
	}

	fb, err := api.svc.GenerateFeedback(ctx.Request().Context(), data)
	if err != nil {
		return core.NewUpstreamError("assist.generateFeedback", err)
	}
	return ctx.JSON(http.StatusOK, fb)
}

func (api *assistApi) standards(ctx echo.Context) error {
	var data core.StandardsQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StandardsQuery")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	standards, err := api.svc.SuggestStandards(ctx.Request().Context(), data)
	if err != nil {
		return core.NewUpstreamError("assist.suggestStandards", err)
	}
	if standards == nil {
		standards = []string{}
	}
	return ctx.JSON(http.StatusOK, standards)
}
