package reservation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	reservationsvc "librarydesk/service/reservation"
)

type Controller struct {
	Svc reservationsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/reservations
func (h *Controller) List(c echo.Context) error {
	id := jwtx.MustIdentity(c)
	var (
		rows []reservationsvc.Row
		err  error
	)
	if id.Staff() {
		rows, err = h.Svc.ListAll(c.Request().Context())
	} else {
		rows, err = h.Svc.ListByUser(c.Request().Context(), id.UserID)
	}
	if err != nil {
		h.Log.Error("reservation list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /api/reservations
func (h *Controller) Create(c echo.Context) error {
	var req CreateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	r, err := h.Svc.Create(c.Request().Context(), jwtx.MustIdentity(c).UserID, req.BookID, req.Notes)
	if err != nil {
		switch reservationsvc.Code(err) {
		case reservationsvc.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case reservationsvc.ErrDuplicateRequest:
			return c.JSON(http.StatusConflict, echo.Map{"message": "request already pending"})
		case reservationsvc.ErrAlreadyBorrowed:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book already borrowed by you"})
		default:
			h.Log.Error("reservation create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, r)
}

// PATCH /api/reservations/:id  (staff)
// @Summary      Approve or reject a borrow request
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        id       path  int                   true  "Reservation ID"
// @Param        payload  body  DecideReservationReq  true  "Decision"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any "not pending / no copies"
// @Security     BearerAuth
// @Router       /api/reservations/{id} [patch]
func (h *Controller) Decide(c echo.Context) error {
	id := jwtx.MustIdentity(c)
	if !id.Staff() {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || rid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req DecideReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	var (
		out any
		svc = h.Svc
		ctx = c.Request().Context()
	)
	if req.Action == "approve" {
		out, err = svc.Approve(ctx, id.UserID, rid, req.Notes)
	} else {
		out, err = svc.Reject(ctx, id.UserID, rid, req.Notes)
	}
	if err != nil {
		switch reservationsvc.Code(err) {
		case reservationsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case reservationsvc.ErrNotPending:
			return c.JSON(http.StatusConflict, echo.Map{"message": "reservation is not pending"})
		case reservationsvc.ErrNoCopies:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copies available"})
		case reservationsvc.ErrAlreadyBorrowed:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book already borrowed by requester"})
		default:
			h.Log.Error("reservation decide", "action", req.Action, "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/reservations/expire  (staff)
func (h *Controller) Expire(c echo.Context) error {
	if !jwtx.MustIdentity(c).Staff() {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	n, err := h.Svc.ExpireStale(c.Request().Context())
	if err != nil {
		h.Log.Error("reservation expire", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}
