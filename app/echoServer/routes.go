package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"bookstore/app/echoServer/controller/auth"
	"bookstore/app/echoServer/controller/book"
	"bookstore/app/echoServer/controller/category"
	"bookstore/app/echoServer/controller/reservation"
	"bookstore/app/echoServer/controller/user"
)

type C struct {
	Auth        *auth.Controller
	Profile     *user.Controller
	Category    *category.Controller
	Book        *book.Controller
	Reservation *reservation.Controller
	JWTSecret   string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/api/v1")
	pub.POST("/users/sign_up", c.Auth.Register)
	pub.POST("/users/sign_in", c.Auth.Login)
	pub.DELETE("/users/sign_out", c.Auth.Logout)

	pub.GET("/categories", c.Category.List)
	pub.GET("/categories/:id", c.Category.Detail)

	pub.GET("/books", c.Book.List)
	pub.GET("/books/search", c.Book.Search)
	pub.GET("/books/:id", c.Book.Detail)

	// Auth
	authed := e.Group("/api/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	authed.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tok, ok := ctx.Get("user").(*jwt.Token)
			if !ok || tok == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", int64(sub))
			if role, ok := claims["role"].(string); ok {
				ctx.Set("role", role)
			}
			return next(ctx)
		}
	})

	authed.GET("/users/profile", c.Profile.Show)

	authed.POST("/categories", c.Category.Create)
	authed.PATCH("/categories/:id", c.Category.Update)
	authed.DELETE("/categories/:id", c.Category.Delete)

	// Admin endpoints
	authed.POST("/books", c.Book.Create)
	authed.PATCH("/books/:id", c.Book.Update)
	authed.DELETE("/books/:id", c.Book.Delete)

	authed.GET("/reservations", c.Reservation.List)
	authed.POST("/reservations", c.Reservation.Create)
	authed.GET("/reservations/:id", c.Reservation.Show)
	authed.PATCH("/reservations/:id", c.Reservation.Update)
	authed.DELETE("/reservations/:id", c.Reservation.Cancel)
	authed.POST("/reservations/:id/complete", c.Reservation.Complete)
}
