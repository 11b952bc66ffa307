package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/services/spreadsheet"
)

var errNoImportFile = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "an .xlsx file is required"})

type studentApi struct {
	handler
}

func registerStudentAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler) {
	api := studentApi{handler: h}

	sg := g.Group("/students", jwt, active)
	sg.GET("/me", api.me, studentMiddleware)
	sg.GET("", api.query, staffMiddleware)
	sg.GET("/batches", api.batches, staffMiddleware)
	sg.POST("", api.create, adminMiddleware())
	sg.POST("/import", api.importRows, adminMiddleware())
	sg.GET("/import-template", api.importTemplate, adminMiddleware())

	dg := sg.Group("/:id", staffMiddleware, api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.students.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting student")
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.users); err != nil {
		return err
	}

	s, err := api.students.Create(ctx.Request().Context(), centerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) importRows(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errNoImportFile
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	rows, err := spreadsheet.ReadStudentRows(file)
	if err != nil {
		return err
	}

	report, err := api.students.Import(ctx.Request().Context(), centerID(ctx), rows, api.validate)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *studentApi) importTemplate(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := spreadsheet.WriteStudentTemplate(&buf); err != nil {
		return errors.Wrap(err, "writing student template")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="students.xlsx"`)
	return ctx.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	studs, err := api.students.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if studs == nil {
		studs = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, studs)
}

func (api *studentApi) batches(ctx echo.Context) error {
	batches, err := api.students.ListBatches(ctx.Request().Context(), centerID(ctx))
	if err != nil {
		return errors.Wrap(err, "listing batches")
	}
	if batches == nil {
		batches = []student.Batch{}
	}
	return ctx.JSON(http.StatusOK, batches)
}

func (api *studentApi) me(ctx echo.Context) error {
	s, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *studentApi) update(ctx echo.Context) error {
	s := ctx.Get("object").(student.Student)

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s, api.validate); err != nil {
		return err
	}

	s, err := api.students.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s := ctx.Get("object").(student.Student)
	if err := api.students.Delete(ctx.Request().Context(), s.CenterID, s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
