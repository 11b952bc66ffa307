package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/enrollment"
)

type enrollmentApi struct {
	handler
	enrollments *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, enrollments *enrollment.Service) {
	api := enrollmentApi{handler: h, enrollments: enrollments}

	eg := g.Group("/enrollments", jwt, active)
	eg.GET("/me", api.mine, studentMiddleware)
	eg.GET("", api.query, staffMiddleware)
	eg.POST("", api.create, adminMiddleware())

	dg := eg.Group("/:id", staffMiddleware, api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("/status", api.updateStatus, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *enrollmentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		e, err := api.enrollments.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting enrollment")
		}
		ctx.Set("object", e)
		return next(ctx)
	}
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.enrollments.Enroll(ctx.Request().Context(), centerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	enrollments, err := api.enrollments.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) mine(ctx echo.Context) error {
	stud, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.enrollments.ForStudent(ctx.Request().Context(), stud.CenterID, stud.ID)
	if err != nil {
		return errors.Wrap(err, "querying student enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *enrollmentApi) updateStatus(ctx echo.Context) error {
	e := ctx.Get("object").(enrollment.Enrollment)

	var data enrollment.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.enrollments.UpdateStatus(ctx.Request().Context(), e, data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	e := ctx.Get("object").(enrollment.Enrollment)
	if err := api.enrollments.Delete(ctx.Request().Context(), e.CenterID, e.ID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
