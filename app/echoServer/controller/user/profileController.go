package user

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookstore/app/echoServer/controller/reservation"
	"bookstore/app/echoServer/jwtx"
	userrepo "bookstore/repository/user"
	reservationsvc "bookstore/service/reservation"
)

type Controller struct {
	Users userrepo.Repo
	Svc   reservationsvc.Service
	Log   *slog.Logger
}

// GET /api/v1/users/profile
func (ct *Controller) Show(c echo.Context) error {
	uid := jwtx.UserID(c)

	u, err := ct.Users.ByID(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("profile user lookup", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	if u == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	counts, recent, err := ct.Svc.Summary(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("profile summary", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user": echo.Map{
			"id":         u.ID,
			"email":      u.Email,
			"admin":      u.Admin,
			"created_at": u.CreatedAt,
		},
		"reservations_summary": counts,
		"recent_reservations":  reservation.RowsJSON(recent),
	})
}
