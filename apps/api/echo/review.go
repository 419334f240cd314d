package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/core/walkthrough"
)

type reviewApi struct {
	svc      walkthrough.Service
	usrSvc   user.Service
	validate *validator.Validate
}

// registerReviewAPI mounts the reviewer workflow: the per-status queues and
// the transition endpoints. All routes require the review capability; being
// the assigned reviewer is enforced by the service per record.
func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc walkthrough.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := reviewApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	rg := g.Group("/reviews", jwt, operationMiddleware(user.OpReviewAct))
	rg.GET("/pending", api.queryPending)
	rg.GET("/in-progress", api.queryInProgress)
	rg.GET("/completed", api.queryCompleted)

	dg := rg.Group("/:id")
	dg.POST("/start", api.start)
	dg.POST("/complete", api.complete)
}

// Handlers

func (api *reviewApi) queryPending(ctx echo.Context) error {
	return api.queryByStatus(ctx, walkthrough.ReviewPending)
}

func (api *reviewApi) queryInProgress(ctx echo.Context) error {
	return api.queryByStatus(ctx, walkthrough.ReviewInProgress)
}

func (api *reviewApi) queryCompleted(ctx echo.Context) error {
	return api.queryByStatus(ctx, walkthrough.ReviewCompleted)
}

func (api *reviewApi) queryByStatus(ctx echo.Context, status walkthrough.ReviewStatus) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wts, err := api.svc.Reviews(ctx.Request().Context(), actor, status)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if wts == nil {
		wts = []walkthrough.Walkthrough{}
	}
	return ctx.JSON(http.StatusOK, wts)
}

func (api *reviewApi) start(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.StartReview(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wt)
}

func (api *reviewApi) complete(ctx echo.Context) error {
	var data walkthrough.ReviewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	wt, err := api.svc.CompleteReview(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wt)
}
