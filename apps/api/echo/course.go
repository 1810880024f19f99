package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somo-lms/somo/core"
	"github.com/somo-lms/somo/core/course"
	"github.com/somo-lms/somo/core/user"
)

type courseApi struct {
	svc      course.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.Service, usrSvc user.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/courses")

	// un-authed endpoints
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/slug/:slug", api.retrieveBySlug)
	cg.GET("/:id/lessons", api.queryLessons)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, teacherMiddleware())
	ag.PUT("/:id", api.update, teacherMiddleware())
	ag.POST("/:id/lessons", api.addLesson, teacherMiddleware())
	ag.POST("/:id/enroll", api.enroll)

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.queryEnrollments)

	lg := g.Group("/lessons")
	lg.GET("/:id", api.retrieveLesson)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

// query lists the catalog. Drafts are hidden from everyone except admins
// and the owning teacher.
func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "price", "created_at")

	claims := optionalClaims(ctx)
	if claims == nil || !(claims.IsTeacher || claims.IsAdmin) {
		published := true
		filter.IsPublished = &published
	}

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}

	// teachers see their own drafts but nobody else's
	if claims != nil && claims.IsTeacher && !claims.IsAdmin {
		visible := courses[:0]
		for _, crs := range courses {
			if crs.IsPublished || crs.TeacherID == claims.Subject {
				visible = append(visible, crs)
			}
		}
		courses = visible
	}

	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) retrieveBySlug(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding course by slug")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	// a teacher may only touch their own course
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && crs.TeacherID != ctxUsr.ID {
		return errHttpForbidden
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && crs.TeacherID != ctxUsr.ID {
		return errHttpForbidden
	}

	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	les, err := api.svc.AddLesson(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *courseApi) queryLessons(ctx echo.Context) error {
	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	les, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, les)
}

// enroll grants direct enrollment into a free course. Paid courses go
// through the payments checkout instead.
func (api *courseApi) enroll(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if !crs.IsFree() {
		return core.NewValidationError(errors.New("this course is paid, use checkout"))
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr.ID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling user")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) queryEnrollments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enrollments, err := api.svc.QueryEnrollments(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}
