package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
)

type walkthroughApi struct {
	svc      walkthrough.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerWalkthroughAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc walkthrough.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := walkthroughApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	wg := g.Group("/walkthroughs", jwt)
	wg.POST("", api.create, operationMiddleware(user.OpWalkthroughWrite))
	wg.GET("", api.query)

	dg := wg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, operationMiddleware(user.OpWalkthroughWrite))
	dg.PATCH("", api.saveReviewDraft, operationMiddleware(user.OpReviewAct))
	dg.DELETE("", api.destroy, operationMiddleware(user.OpWalkthroughWrite))
}

// Handlers

func (api *walkthroughApi) create(ctx echo.Context) error {
	var data walkthrough.NewWalkthrough
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWalkthrough")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating walkthrough")
	}
	return ctx.JSON(http.StatusCreated, wt)
}

func (api *walkthroughApi) query(ctx echo.Context) error {
	filter := new(walkthrough.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []walkthrough.Walkthrough{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "observed_at", "created_at", "review_status", "subject")

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wts, err := api.svc.Filter(ctx.Request().Context(), actor, *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying walkthroughs")
	}
	if wts == nil {
		wts = []walkthrough.Walkthrough{}
	}
	return ctx.JSON(http.StatusOK, wts)
}

func (api *walkthroughApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.GetByID(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wt)
}

func (api *walkthroughApi) update(ctx echo.Context) error {
	var data walkthrough.UpdateWalkthrough
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateWalkthrough")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wt)
}

// saveReviewDraft persists reviewer fields without touching the review status.
func (api *walkthroughApi) saveReviewDraft(ctx echo.Context) error {
	var data walkthrough.ReviewDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDraft")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.SaveReviewDraft(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wt)
}

func (api *walkthroughApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
