package category

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bookstore/model"
	categorysvc "bookstore/service/category"
)

type Controller struct {
	Svc categorysvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CategoryReq struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// GET /api/v1/categories
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("category list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, rows)
}

// GET /api/v1/categories/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("category detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if row == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	return c.JSON(http.StatusOK, row)
}

// POST /api/v1/categories
func (h *Controller) Create(c echo.Context) error {
	var req CategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	cat := &model.Category{Name: req.Name, Description: req.Description}
	if err := h.Svc.Create(c.Request().Context(), cat); err != nil {
		h.Log.Error("category create", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, cat)
}

// PATCH /api/v1/categories/:id
func (h *Controller) Update(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req CategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	cat := &model.Category{ID: id, Name: req.Name, Description: req.Description}
	found, err := h.Svc.Update(c.Request().Context(), cat)
	if err != nil {
		h.Log.Error("category update", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	row, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil || row == nil {
		h.Log.Error("category update readback", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, row)
}

// DELETE /api/v1/categories/:id
func (h *Controller) Delete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	found, err := h.Svc.Delete(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("category delete", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Not Found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func paramID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
