// app/echoServer/jwtx/user.go
package jwtx

import (
	"github.com/labstack/echo/v4"
)

func UserID(c echo.Context) int64 {
	uid, _ := c.Get("user_id").(int64)
	return uid
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}
