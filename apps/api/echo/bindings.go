package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-field`.
func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam))
}

func orderings(ctx echo.Context) []core.DBOrdering {
	ord := new(Ordering)
	ord.Bind(ctx)
	return ord.Orderings
}

// bindQuery binds the query params of a GET request into filter; unparsable params are a 400.
func bindQuery(ctx echo.Context, filter interface{}) error {
	if err := ctx.Bind(filter); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Internal != nil {
			return core.NewValidationError(herr.Internal)
		}
		return core.NewValidationError(err)
	}
	return nil
}
