package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/review"
	"github.com/somo-lms/somo/core/user"
)

type reviewApi struct {
	svc      review.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerReviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc review.Service, usrSvc user.Service, validate *validator.Validate) {
	api := reviewApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses/:id")
	cg.GET("/reviews", api.queryByCourse)
	cg.GET("/rating", api.rating)
	cg.POST("/reviews", api.create, jwt)

	rg := g.Group("/reviews/:id", jwt)
	rg.DELETE("", api.destroy)
}

// Handlers

func (api *reviewApi) create(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rev, err := api.svc.Create(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewApi) queryByCourse(ctx echo.Context) error {
	paging := new(Paging)
	paging.Bind(ctx)

	page, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("id"), paging.Page, paging.Limit)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if page.Reviews == nil {
		page.Reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *reviewApi) rating(ctx echo.Context) error {
	rating, err := api.svc.Rating(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course rating")
	}
	return ctx.JSON(http.StatusOK, rating)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}
