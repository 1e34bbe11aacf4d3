package reservation

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bookstore/app/echoServer/jwtx"
	"bookstore/model"
	rs "bookstore/service/reservation"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

func httpError(c echo.Context, err error) error {
	switch rs.Code(err) {
	case rs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
	case rs.ErrBookUnavailable:
		return c.JSON(http.StatusConflict, echo.Map{"message": "book is not available for reservation"})
	case rs.ErrDuplicateActive:
		return c.JSON(http.StatusConflict, echo.Map{"message": "an active reservation for this book already exists"})
	case rs.ErrInvalidTransition:
		return c.JSON(http.StatusConflict, echo.Map{"message": "reservation is not active"})
	case rs.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func paramID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// POST /api/v1/reservations
func (h *Controller) Create(c echo.Context) error {
	var req CreateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid := jwtx.UserID(c)

	res, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, req.Note)
	if err != nil {
		if rs.Code(err) == rs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		if rs.Code(err) == "" {
			h.Log.Error("reservation create", "err", err)
		}
		return httpError(c, err)
	}

	row, err := h.Svc.Get(c.Request().Context(), uid, res.ID)
	if err != nil {
		h.Log.Error("reservation create readback", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, RowJSON(row))
}

// GET /api/v1/reservations?status=&from=&to=&page=&per_page=
func (h *Controller) List(c echo.Context) error {
	uid := jwtx.UserID(c)

	var f rs.Filter
	if v := c.QueryParam("status"); v != "" {
		st, err := model.ParseReservationStatus(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
		}
		f.Status = &st
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid from"})
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid to"})
		}
		f.To = &t
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

	rows, total, err := h.Svc.List(c.Request().Context(), uid, f)
	if err != nil {
		h.Log.Error("reservation list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":  RowsJSON(rows),
		"total": total,
	})
}

// GET /api/v1/reservations/:id
func (h *Controller) Show(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Get(c.Request().Context(), jwtx.UserID(c), id)
	if err != nil {
		if rs.Code(err) == "" {
			h.Log.Error("reservation show", "err", err)
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, RowJSON(row))
}

// PATCH /api/v1/reservations/:id
func (h *Controller) Update(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	var st *model.ReservationStatus
	if req.Status != nil {
		parsed, err := model.ParseReservationStatus(*req.Status)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
		}
		st = &parsed
	}

	row, err := h.Svc.Update(c.Request().Context(), jwtx.UserID(c), id, req.Note, st)
	if err != nil {
		if rs.Code(err) == "" {
			h.Log.Error("reservation update", "err", err)
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, RowJSON(row))
}

// DELETE /api/v1/reservations/:id
func (h *Controller) Cancel(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), jwtx.UserID(c), id); err != nil {
		if rs.Code(err) == "" {
			h.Log.Error("reservation cancel", "err", err)
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation cancelled"})
}

// POST /api/v1/reservations/:id/complete  (admin)
func (h *Controller) Complete(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Complete(c.Request().Context(), id); err != nil {
		if rs.Code(err) == "" {
			h.Log.Error("reservation complete", "err", err)
		}
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation completed"})
}
