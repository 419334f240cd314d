package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/lessonplan"
	"github.com/darasahq/darasa/core/user"
)

type lessonPlanApi struct {
	svc      lessonplan.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerLessonPlanAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc lessonplan.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := lessonPlanApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	pg := g.Group("/lesson-plans", jwt)
	pg.POST("", api.create, operationMiddleware(user.OpLessonPlanWrite))
	pg.GET("", api.query)
	pg.POST("/extract", api.extract, operationMiddleware(user.OpLessonPlanWrite))

	dg := pg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, operationMiddleware(user.OpLessonPlanWrite))
	dg.DELETE("", api.destroy, operationMiddleware(user.OpLessonPlanWrite))
}

// Handlers

func (api *lessonPlanApi) create(ctx echo.Context) error {
	var data lessonplan.NewLessonPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLessonPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	lp, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson plan")
	}
	return ctx.JSON(http.StatusCreated, lp)
}

func (api *lessonPlanApi) query(ctx echo.Context) error {
	filter := new(lessonplan.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lessonplan.LessonPlan{})
	}

	plans, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying lesson plans")
	}
	if plans == nil {
		plans = []lessonplan.LessonPlan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *lessonPlanApi) retrieve(ctx echo.Context) error {
	lp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *lessonPlanApi) update(ctx echo.Context) error {
	lp, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	var data lessonplan.UpdateLessonPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLessonPlan")
	}
	if err := data.Validate(api.validate, lp); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	lp, err = api.svc.Update(ctx.Request().Context(), actor, lp.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *lessonPlanApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// extract drafts lesson-plan fields from raw document text. Nothing is
// persisted; the caller reviews the draft and submits a create separately.
func (api *lessonPlanApi) extract(ctx echo.Context) error {
	var data lessonplan.ExtractRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExtractRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fields, err := api.svc.ExtractFromDocument(ctx.Request().Context(), data.DocumentText)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fields)
}
