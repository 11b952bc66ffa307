package echoapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/services/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registerLiveAPI serves the announcement feed. Browsers cannot set headers on websockets,
// the JWT is read from the `token` query param.
func registerLiveAPI(g *echo.Group, jwt, active echo.MiddlewareFunc, h handler, hub *live.Hub) {
	g.GET("/announcements/live", func(ctx echo.Context) error {
		viewer, err := h.viewer(ctx)
		if err != nil {
			return err
		}
		conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
		if err != nil {
			// the upgrader already replied
			h.logger.Debug("upgrading connection", err)
			return nil
		}
		hub.Serve(conn, centerID(ctx), viewer)
		return nil
	}, jwt, active)
}
