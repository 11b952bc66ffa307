package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/announcement"
)

const maxLatest = 50

type announcementApi struct {
	handler
	announcements *announcement.Service
}

func registerAnnouncementAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, announcements *announcement.Service) {
	api := announcementApi{handler: h, announcements: announcements}

	ag := g.Group("/announcements", jwt, active)
	ag.GET("", api.query)
	ag.GET("/latest", api.latest)
	ag.GET("/group", api.group)
	ag.POST("", api.create, staffMiddleware)

	dg := ag.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware, api.editableMiddleware)
	dg.DELETE("", api.destroy, staffMiddleware, api.editableMiddleware)
}

// objectMiddleware loads the `:id` announcement; those not addressed to the caller do not exist.
func (api *announcementApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := api.announcements.Get(ctx.Request().Context(), centerID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting announcement")
		}
		viewer, err := api.viewer(ctx)
		if err != nil {
			return err
		}
		if !a.Visible(viewer) {
			return errHttpNotFound
		}
		ctx.Set("object", a)
		return next(ctx)
	}
}

func (api *announcementApi) editableMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.contextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if !ctx.Get("object").(announcement.Announcement).EditableBy(usr) {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

func (api *announcementApi) bindFilter(ctx echo.Context) (*announcement.QueryFilter, error) {
	filter := new(announcement.QueryFilter)
	if err := bindQuery(ctx, filter); err != nil {
		return nil, err
	}
	filter.Clean()
	return filter, nil
}

func (api *announcementApi) create(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.announcements.Create(ctx.Request().Context(), usr.CenterID, data, usr)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// query lists every announcement to admins and the ones addressed to the caller otherwise.
func (api *announcementApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	viewer, err := api.viewer(ctx)
	if err != nil {
		return err
	}

	var anns []announcement.Announcement
	if viewer.IsAdmin {
		anns, err = api.announcements.Query(ctx.Request().Context(), centerID(ctx), filter, orderings(ctx))
	} else {
		anns, err = api.announcements.ForViewer(ctx.Request().Context(), centerID(ctx), viewer, filter)
	}
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) latest(ctx echo.Context) error {
	n := 5
	if param := ctx.QueryParam("n"); param != "" {
		var err error
		if n, err = strconv.Atoi(param); err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "n must be a positive integer")
		}
		if n > maxLatest {
			n = maxLatest
		}
	}
	viewer, err := api.viewer(ctx)
	if err != nil {
		return err
	}

	anns, err := api.announcements.Latest(ctx.Request().Context(), centerID(ctx), viewer, n)
	if err != nil {
		return errors.Wrap(err, "querying latest announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) group(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	viewer, err := api.viewer(ctx)
	if err != nil {
		return err
	}

	by := ctx.QueryParam("by")
	if by == "" {
		by = announcement.GroupByMonth
	}
	groups, err := api.announcements.Group(ctx.Request().Context(), centerID(ctx), viewer, filter, by)
	if err != nil {
		return errors.Wrap(err, "grouping announcements")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *announcementApi) update(ctx echo.Context) error {
	a := ctx.Get("object").(announcement.Announcement)

	var data announcement.UpdateAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err := data.Validate(a, api.validate); err != nil {
		return err
	}

	a, err := api.announcements.Update(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	a := ctx.Get("object").(announcement.Announcement)
	if err := api.announcements.Delete(ctx.Request().Context(), a.CenterID, a.ID); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
