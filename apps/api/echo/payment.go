package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/payment"
	"github.com/somo-lms/somo/core/user"
)

type paymentApi struct {
	svc    payment.Service
	usrSvc user.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc payment.Service, usrSvc user.Service) {
	api := paymentApi{
		svc:    svc,
		usrSvc: usrSvc,
	}

	g.POST("/courses/:id/checkout", api.checkout, jwt)

	pg := g.Group("/payments", jwt)
	pg.GET("", api.queryMine)
	pg.POST("/:id/confirm", api.confirm)
	pg.POST("/:id/cancel", api.cancel)
}

// Handlers

func (api *paymentApi) checkout(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	intent, err := api.svc.Checkout(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking out course")
	}
	return ctx.JSON(http.StatusCreated, intent)
}

// confirm re-checks the provider intent status and, on success, enrolls
// the payer into the course.
func (api *paymentApi) confirm(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	pmt, err := api.svc.Confirm(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) cancel(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	pmt, err := api.svc.Cancel(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "canceling payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	payments, err := api.svc.QueryMine(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}
