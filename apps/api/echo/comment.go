package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core/comment"
	"github.com/somo-lms/somo/core/user"
)

// commentApi is the REST surface of the lesson comment feed. Clients that
// hold a websocket connection get the same operations over the gateway;
// both paths share comment.Service so broadcasts fire either way.
type commentApi struct {
	svc      comment.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCommentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc comment.Service, usrSvc user.Service, validate *validator.Validate) {
	api := commentApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	lg := g.Group("/lessons/:id", jwt)
	lg.GET("/comments", api.queryThread)
	lg.POST("/comments", api.create)
	lg.GET("/comments/stats", api.stats)

	cg := g.Group("/comments/:id", jwt)
	cg.GET("", api.retrieve)
	cg.PUT("", api.update)
	cg.DELETE("", api.destroy)
	cg.POST("/replies", api.createReply)

	rg := g.Group("/replies/:id", jwt)
	rg.PUT("", api.updateReply)
	rg.DELETE("", api.destroyReply)
}

// Handlers

func (api *commentApi) queryThread(ctx echo.Context) error {
	paging := new(Paging)
	paging.Bind(ctx)

	thread, err := api.svc.GetThread(ctx.Request().Context(), ctx.Param("id"), paging.Page, paging.Limit)
	if err != nil {
		return errors.Wrap(err, "querying comment thread")
	}
	if thread.Comments == nil {
		thread.Comments = []comment.Comment{}
	}
	return ctx.JSON(http.StatusOK, thread)
}

func (api *commentApi) create(ctx echo.Context) error {
	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	data.LessonID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *commentApi) retrieve(ctx echo.Context) error {
	cmt, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding comment by ID")
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) update(ctx echo.Context) error {
	var data comment.UpdateContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating comment")
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *commentApi) createReply(ctx echo.Context) error {
	var data comment.NewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	data.CommentID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rpl, err := api.svc.CreateReply(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating reply")
	}
	return ctx.JSON(http.StatusCreated, rpl)
}

func (api *commentApi) updateReply(ctx echo.Context) error {
	var data comment.UpdateContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rpl, err := api.svc.UpdateReply(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating reply")
	}
	return ctx.JSON(http.StatusOK, rpl)
}

func (api *commentApi) destroyReply(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteReply(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting reply")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *commentApi) stats(ctx echo.Context) error {
	sts, err := api.svc.Stats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying comment stats")
	}
	return ctx.JSON(http.StatusOK, sts)
}
