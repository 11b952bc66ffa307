package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/result"
)

type resultApi struct {
	handler
	results *result.Service
}

func registerResultAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, results *result.Service) {
	api := resultApi{handler: h, results: results}

	rg := g.Group("/results", jwt, active)

	// student portal
	rg.GET("/me", api.mine, studentMiddleware)
	rg.GET("/me/report", api.myReport, studentMiddleware)

	// staff
	sg := rg.Group("", staffMiddleware)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.POST("/bulk", api.createBulk)
	sg.GET("/stats", api.stats)
	sg.GET("/report/:student_id", api.report)

	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *resultApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r, err := api.results.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting test result")
		}
		ctx.Set("object", r)
		return next(ctx)
	}
}

// checkTeaches rejects faculty marking subjects they do not teach. Admins mark everything.
func (api *resultApi) checkTeaches(ctx echo.Context, subjectID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return nil
	}
	member, err := api.contextFaculty(ctx)
	if err != nil {
		return err
	}
	if !member.Teaches(subjectID) {
		return errHttpForbidden
	}
	return nil
}

func (api *resultApi) create(ctx echo.Context) error {
	var data result.NewResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkTeaches(ctx, data.SubjectID); err != nil {
		return err
	}

	usr, err := api.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	r, err := api.results.Record(ctx.Request().Context(), usr.CenterID, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "recording test result")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *resultApi) createBulk(ctx echo.Context) error {
	var data result.BulkResults
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkResults")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkTeaches(ctx, data.SubjectID); err != nil {
		return err
	}

	usr, err := api.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	results, err := api.results.RecordBulk(ctx.Request().Context(), usr.CenterID, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "recording test results")
	}
	return ctx.JSON(http.StatusCreated, results)
}

func (api *resultApi) query(ctx echo.Context) error {
	filter := new(result.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return err
	}
	filter.Clean()

	results, err := api.results.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying test results")
	}
	if results == nil {
		results = []result.TestResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) stats(ctx echo.Context) error {
	subjectID, testName := ctx.QueryParam("subject_id"), ctx.QueryParam("test_name")
	if subjectID == "" || testName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id and test_name are required")
	}

	stats, err := api.results.TestStats(ctx.Request().Context(), centerID(ctx), subjectID, testName)
	if err != nil {
		return errors.Wrap(err, "computing test stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *resultApi) report(ctx echo.Context) error {
	report, err := api.results.StudentReport(ctx.Request().Context(), centerID(ctx), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *resultApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *resultApi) update(ctx echo.Context) error {
	r := ctx.Get("object").(result.TestResult)
	if err := api.checkTeaches(ctx, r.SubjectID); err != nil {
		return err
	}

	var data result.UpdateResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResult")
	}
	if err := data.Validate(r, api.validate); err != nil {
		return err
	}

	r, err := api.results.Update(ctx.Request().Context(), r, data)
	if err != nil {
		return errors.Wrap(err, "updating test result")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *resultApi) destroy(ctx echo.Context) error {
	r := ctx.Get("object").(result.TestResult)
	if err := api.checkTeaches(ctx, r.SubjectID); err != nil {
		return err
	}
	if err := api.results.Delete(ctx.Request().Context(), r.CenterID, r.ID); err != nil {
		return errors.Wrap(err, "deleting test result")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Student portal

func (api *resultApi) mine(ctx echo.Context) error {
	stud, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	filter := new(result.QueryFilter)
	if err = bindQuery(ctx, filter); err != nil {
		return err
	}
	filter.Clean()
	filter.StudentID = stud.ID

	results, err := api.results.Query(ctx.Request().Context(), stud.CenterID, filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying student results")
	}
	if results == nil {
		results = []result.TestResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) myReport(ctx echo.Context) error {
	stud, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	report, err := api.results.StudentReport(ctx.Request().Context(), stud.CenterID, stud.ID)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, report)
}
