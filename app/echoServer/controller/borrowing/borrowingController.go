package borrowing

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
	"librarydesk/service/circulation"
)

type Controller struct {
	Svc circulation.Service
	V   *validator.Validate
	Log *slog.Logger
}

func caller(c echo.Context) circulation.Caller {
	id := jwtx.MustIdentity(c)
	return circulation.Caller{UserID: id.UserID, Role: id.Role}
}

// POST /api/borrowing
// @Summary      Borrow a book
// @Tags         borrowing
// @Accept       json
// @Produce      json
// @Param        payload  body  BorrowReq  true  "Borrow payload"
// @Success      201  {object}  map[string]any
// @Failure      409  {object}  map[string]any "no copies / already borrowed"
// @Security     BearerAuth
// @Router       /api/borrowing [post]
func (h *Controller) Borrow(c echo.Context) error {
	var req BorrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b, err := h.Svc.Borrow(c.Request().Context(), caller(c), req.BookID, req.UserID)
	if err != nil {
		switch circulation.Code(err) {
		case circulation.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case circulation.ErrUserNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		case circulation.ErrNoCopies:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no copies available"})
		case circulation.ErrAlreadyBorrowed:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already borrowed by this user"})
		case circulation.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			h.Log.Error("borrow", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, b)
}

// POST /api/borrowing/return  (staff)
func (h *Controller) Return(c echo.Context) error {
	var req BorrowingIDReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	out, err := h.Svc.Return(c.Request().Context(), caller(c), req.BorrowingID)
	if err != nil {
		switch circulation.Code(err) {
		case circulation.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case circulation.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already returned"})
		case circulation.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			h.Log.Error("return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/borrowing/renew
func (h *Controller) Renew(c echo.Context) error {
	var req BorrowingIDReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b, err := h.Svc.Renew(c.Request().Context(), caller(c), req.BorrowingID)
	if err != nil {
		switch circulation.Code(err) {
		case circulation.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "borrowing not found"})
		case circulation.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case circulation.ErrRenewLimit:
			return c.JSON(http.StatusConflict, echo.Map{"message": "renewal limit reached"})
		case circulation.ErrOverdue:
			return c.JSON(http.StatusConflict, echo.Map{"message": "borrowing is overdue"})
		case circulation.ErrUnpaidFine:
			return c.JSON(http.StatusConflict, echo.Map{"message": "unpaid fine on this borrowing"})
		case circulation.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "already returned"})
		default:
			h.Log.Error("renew", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, b)
}

// GET /api/borrowing  (staff: all active loans)
func (h *Controller) ListActive(c echo.Context) error {
	if !jwtx.MustIdentity(c).Staff() {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rows, err := h.Svc.ListActive(c.Request().Context())
	if err != nil {
		h.Log.Error("borrowing list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/borrowing/my
func (h *Controller) MyHistory(c echo.Context) error {
	rows, err := h.Svc.History(c.Request().Context(), jwtx.MustIdentity(c).UserID)
	if err != nil {
		h.Log.Error("borrowing history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
