package book

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bookstore/app/echoServer/jwtx"
	"bookstore/model"
	booksvc "bookstore/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/v1/books
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("book list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, rowsJSON(rows))
}

// GET /api/v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("book detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if row == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	return c.JSON(http.StatusOK, rowJSON(row))
}

// GET /api/v1/books/search?title=&author=&category=&min_price=&max_price=&status=
func (h *Controller) Search(c echo.Context) error {
	var f booksvc.SearchFilter
	f.Title = c.QueryParam("title")
	f.Author = c.QueryParam("author")
	f.Category = c.QueryParam("category")
	if v := c.QueryParam("min_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid min_price"})
		}
		f.MinPrice = &p
	}
	if v := c.QueryParam("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid max_price"})
		}
		f.MaxPrice = &p
	}
	if v := c.QueryParam("status"); v != "" {
		st, err := model.ParseBookStatus(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
		}
		f.Status = &st
	}

	rows, err := h.Svc.Search(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("book search", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, rowsJSON(rows))
}

// POST /api/v1/books  (admin)
func (h *Controller) Create(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin access required"})
	}
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b := &model.Book{}
	if err := apply(b, &req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
	}
	if err := h.Svc.Create(c.Request().Context(), b); err != nil {
		h.Log.Error("book create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, b)
}

// PATCH /api/v1/books/:id  (admin)
func (h *Controller) Update(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin access required"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("book update lookup", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if row == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}

	var req BookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b := row.Book
	if err := apply(&b, &req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
	}
	ok, err := h.Svc.Update(c.Request().Context(), &b)
	if err != nil {
		h.Log.Error("book update", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	return c.JSON(http.StatusOK, b)
}

// DELETE /api/v1/books/:id  (admin)
func (h *Controller) Delete(c echo.Context) error {
	if !jwtx.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin access required"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	ok, err := h.Svc.Delete(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("book delete", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func apply(b *model.Book, req *BookReq) error {
	b.Title = req.Title
	b.Author = req.Author
	b.ISBN = req.ISBN
	b.Description = req.Description
	if req.Condition != "" {
		b.Condition = req.Condition
	}
	b.Price = req.Price
	b.Stock = req.Stock
	b.CategoryID = req.CategoryID
	if req.Status != nil {
		st, err := model.ParseBookStatus(*req.Status)
		if err != nil {
			return err
		}
		b.Status = st
	}
	if req.PublishedAt != nil {
		t, err := time.Parse("2006-01-02", *req.PublishedAt)
		if err != nil {
			return err
		}
		b.PublishedAt = &t
	}
	return nil
}
