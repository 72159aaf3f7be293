package stats

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	statssvc "librarydesk/service/stats"
)

type Controller struct {
	Svc statssvc.Service
	Log *slog.Logger
}

// GET /api/stats  (staff)
func (h *Controller) Overview(c echo.Context) error {
	if !jwtx.MustIdentity(c).Staff() {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	out, err := h.Svc.Overview(c.Request().Context())
	if err != nil {
		h.Log.Error("stats", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}
