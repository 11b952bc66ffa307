package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/center"
	"github.com/trezcool/darasa/core/user"
)

type centerApi struct {
	handler
	centers center.ServiceInterface
}

func registerCenterAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, centers center.ServiceInterface) {
	api := centerApi{handler: h, centers: centers}

	cg := g.Group("/centers/current", jwt, active)
	cg.GET("", api.retrieve)
	cg.PUT("", api.update, adminMiddleware(user.RoleAdminOwner))
}

func (api *centerApi) retrieve(ctx echo.Context) error {
	c, err := api.centers.Get(ctx.Request().Context(), centerID(ctx))
	if err != nil {
		return errors.Wrap(err, "getting center")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *centerApi) update(ctx echo.Context) error {
	c, err := api.centers.Get(ctx.Request().Context(), centerID(ctx))
	if err != nil {
		return errors.Wrap(err, "getting center")
	}

	var data center.UpdateCenter
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCenter")
	}
	// owners cannot lock themselves out
	if data.IsActive != nil && !*data.IsActive {
		return errHttpForbidden
	}
	if err = data.Validate(c, api.validate); err != nil {
		return err
	}

	c, err = api.centers.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating center")
	}
	return ctx.JSON(http.StatusOK, c)
}
