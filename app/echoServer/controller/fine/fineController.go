package fine

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/service/circulation"
	finesvc "librarydesk/service/fine"
)

type Controller struct {
	Svc finesvc.Service
	Log *slog.Logger
}

func caller(c echo.Context) circulation.Caller {
	id := jwtx.MustIdentity(c)
	return circulation.Caller{UserID: id.UserID, Role: id.Role}
}

// GET /api/fines
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context(), caller(c))
	if err != nil {
		h.Log.Error("fine list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /api/fines/:id/pay
func (h *Controller) Pay(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	f, err := h.Svc.Pay(c.Request().Context(), caller(c), id)
	if err != nil {
		switch finesvc.Code(err) {
		case finesvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "fine not found"})
		case finesvc.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case finesvc.ErrAlreadyPaid:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already paid"})
		default:
			h.Log.Error("fine pay", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, f)
}
