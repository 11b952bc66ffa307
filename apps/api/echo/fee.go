package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/services/spreadsheet"
)

type feeApi struct {
	handler
	fees *fee.Service
}

func registerFeeAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, fees *fee.Service) {
	api := feeApi{handler: h, fees: fees}

	fg := g.Group("/fees", jwt, active)

	// student portal
	fg.GET("/me", api.mine, studentMiddleware)
	fg.GET("/me/summary", api.mySummary, studentMiddleware)

	// admin portal
	ag := fg.Group("", adminMiddleware())
	ag.GET("/structures", api.queryStructures)
	ag.POST("/structures", api.createStructure)
	sg := ag.Group("/structures/:id", api.structureMiddleware)
	sg.GET("", api.retrieve)
	sg.PUT("", api.updateStructure)
	sg.DELETE("", api.destroyStructure)

	ag.GET("", api.query)
	ag.GET("/summary", api.summary)
	ag.GET("/collection", api.collection)
	ag.GET("/export", api.export)
	ag.POST("/generate", api.generate)
	ag.POST("/assign", api.assign)
	ag.POST("/reminders", api.reminders)

	dg := ag.Group("/:id", api.feeMiddleware)
	dg.GET("", api.retrieve)
	dg.POST("/payments", api.recordPayment)
	dg.POST("/waive", api.waive)
}

func (api *feeApi) structureMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.fees.GetStructure(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting fee structure")
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}

func (api *feeApi) feeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		f, err := api.fees.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting fee")
		}
		ctx.Set("object", f)
		return next(ctx)
	}
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

// Structures

func (api *feeApi) createStructure(ctx echo.Context) error {
	var data fee.NewStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStructure")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.fees.CreateStructure(ctx.Request().Context(), centerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *feeApi) queryStructures(ctx echo.Context) error {
	filter := new(fee.StructureFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return err
	}

	structures, err := api.fees.QueryStructures(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying fee structures")
	}
	if structures == nil {
		structures = []fee.Structure{}
	}
	return ctx.JSON(http.StatusOK, structures)
}

func (api *feeApi) updateStructure(ctx echo.Context) error {
	s := ctx.Get("object").(fee.Structure)

	var data fee.UpdateStructure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStructure")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.fees.UpdateStructure(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating fee structure")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *feeApi) destroyStructure(ctx echo.Context) error {
	s := ctx.Get("object").(fee.Structure)
	if err := api.fees.DeleteStructure(ctx.Request().Context(), s.CenterID, s.ID); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Student fees

func (api *feeApi) bindFilter(ctx echo.Context) (*fee.QueryFilter, error) {
	filter := new(fee.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return nil, err
	}
	filter.Clean()
	return filter, nil
}

func (api *feeApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	fees, err := api.fees.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	if fees == nil {
		fees = []fee.StudentFee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) summary(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	sum, err := api.fees.Summary(ctx.Request().Context(), centerID(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing fees")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *feeApi) collection(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	buckets, err := api.fees.MonthlyCollection(ctx.Request().Context(), centerID(ctx), filter, ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return errors.Wrap(err, "computing monthly collection")
	}
	if buckets == nil {
		buckets = []fee.CollectionBucket{}
	}
	return ctx.JSON(http.StatusOK, buckets)
}

func (api *feeApi) export(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}

	fees, err := api.fees.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}

	now := time.Now()
	var buf bytes.Buffer
	if err = spreadsheet.WriteFees(&buf, fees, now); err != nil {
		return errors.Wrap(err, "writing fees spreadsheet")
	}

	name := "fees-" + now.Format("2006-01-02")
	if filter.Period != "" {
		name = "fees-" + filter.Period
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	return ctx.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

func (api *feeApi) generate(ctx echo.Context) error {
	var data fee.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	report, err := api.fees.GenerateMonthly(ctx.Request().Context(), centerID(ctx), data.Period)
	if err != nil {
		return errors.Wrap(err, "generating monthly fees")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *feeApi) assign(ctx echo.Context) error {
	var data fee.AssignRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	report, err := api.fees.AssignBulk(ctx.Request().Context(), centerID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "assigning fees")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *feeApi) reminders(ctx echo.Context) error {
	var data fee.ReminderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReminderRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	report, err := api.fees.SendReminders(ctx.Request().Context(), centerID(ctx), data.Period)
	if err != nil {
		return errors.Wrap(err, "sending fee reminders")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *feeApi) recordPayment(ctx echo.Context) error {
	f := ctx.Get("object").(fee.StudentFee)

	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	f, err = api.fees.RecordPayment(ctx.Request().Context(), f, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) waive(ctx echo.Context) error {
	f, err := api.fees.Waive(ctx.Request().Context(), ctx.Get("object").(fee.StudentFee))
	if err != nil {
		return errors.Wrap(err, "waiving fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

// Student portal

func (api *feeApi) mine(ctx echo.Context) error {
	stud, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	filter.StudentID = stud.ID
	filter.Batch = ""

	fees, err := api.fees.Query(ctx.Request().Context(), stud.CenterID, filter, orderings(ctx))
	if err != nil {
		return errors.Wrap(err, "querying student fees")
	}
	if fees == nil {
		fees = []fee.StudentFee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) mySummary(ctx echo.Context) error {
	stud, err := api.contextStudent(ctx)
	if err != nil {
		return err
	}

	sum, err := api.fees.Summary(ctx.Request().Context(), stud.CenterID, &fee.QueryFilter{StudentID: stud.ID})
	if err != nil {
		return errors.Wrap(err, "summarizing student fees")
	}
	return ctx.JSON(http.StatusOK, sum)
}
