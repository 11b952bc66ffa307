package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/faculty"
)

type facultyApi struct {
	handler
}

func registerFacultyAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler) {
	api := facultyApi{handler: h}

	fg := g.Group("/faculty", jwt, active)
	fg.GET("/me", api.me, facultyMiddleware)
	fg.GET("", api.query, staffMiddleware)
	fg.POST("", api.create, adminMiddleware())

	dg := fg.Group("/:id", staffMiddleware, api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *facultyApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		f, err := api.faculty.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting faculty")
		}
		ctx.Set("object", f)
		return next(ctx)
	}
}

func (api *facultyApi) create(ctx echo.Context) error {
	var data faculty.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.users); err != nil {
		return err
	}

	f, err := api.faculty.Create(ctx.Request().Context(), centerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *facultyApi) query(ctx echo.Context) error {
	filter := new(faculty.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	members, err := api.faculty.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying faculty")
	}
	if members == nil {
		members = []faculty.Faculty{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *facultyApi) me(ctx echo.Context) error {
	f, err := api.contextFaculty(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facultyApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *facultyApi) update(ctx echo.Context) error {
	f := ctx.Get("object").(faculty.Faculty)

	var data faculty.UpdateFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFaculty")
	}
	if err := data.Validate(f, api.validate); err != nil {
		return err
	}

	f, err := api.faculty.Update(ctx.Request().Context(), f, data)
	if err != nil {
		return errors.Wrap(err, "updating faculty")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facultyApi) destroy(ctx echo.Context) error {
	f := ctx.Get("object").(faculty.Faculty)
	if err := api.faculty.Delete(ctx.Request().Context(), f.CenterID, f.ID); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.NoContent(http.StatusNoContent)
}
