package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, svc *dashboard.Service) {
	// portal is picked from the token: admin, then faculty, then student
	g.GET("/dashboard", func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}

		switch {
		case claims.IsAdmin:
			board, err := svc.Admin(ctx.Request().Context(), claims.CenterID)
			if err != nil {
				return errors.Wrap(err, "building admin dashboard")
			}
			return ctx.JSON(http.StatusOK, board)

		case claims.IsFaculty:
			member, err := h.contextFaculty(ctx)
			if err != nil {
				return err
			}
			board, err := svc.Faculty(ctx.Request().Context(), member)
			if err != nil {
				return errors.Wrap(err, "building faculty dashboard")
			}
			return ctx.JSON(http.StatusOK, board)

		case claims.IsStudent:
			stud, err := h.contextStudent(ctx)
			if err != nil {
				return err
			}
			board, err := svc.Student(ctx.Request().Context(), stud)
			if err != nil {
				return errors.Wrap(err, "building student dashboard")
			}
			return ctx.JSON(http.StatusOK, board)
		}
		return errHttpForbidden
	}, jwt, active)
}
