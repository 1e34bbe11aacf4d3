// Package main bookstore API.
//
// @title           Bookstore Reservation API
// @version         1.0
// @description     bookstore service (catalog, categories, users, stock-backed reservations).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"bookstore/app/echoServer"
	authctrl "bookstore/app/echoServer/controller/auth"
	bookctrl "bookstore/app/echoServer/controller/book"
	categoryctrl "bookstore/app/echoServer/controller/category"
	reservationctrl "bookstore/app/echoServer/controller/reservation"
	userctrl "bookstore/app/echoServer/controller/user"
	"bookstore/app/echoServer/validation"
	"bookstore/config"
	bookrepo "bookstore/repository/book"
	categoryrepo "bookstore/repository/category"
	reservationrepo "bookstore/repository/reservation"
	userrepo "bookstore/repository/user"
	authsvc "bookstore/service/auth"
	booksvc "bookstore/service/book"
	categorysvc "bookstore/service/category"
	reservationsvc "bookstore/service/reservation"
	"bookstore/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	sdb := sqlx.NewDb(db.DB, "pgx")

	// repos
	ur := userrepo.New(sdb)
	cr := categoryrepo.New(sdb)
	br := bookrepo.New(sdb)
	rr := reservationrepo.New(db.DB)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	cs := categorysvc.New(cr)
	bs := booksvc.New(br)
	rs := reservationsvc.New(db, rr)

	// expiry sweeper: stale active holds get cancelled through the same
	// state machine as a user cancel
	sweeper := reservationsvc.NewSweeper(rr, rs, log)
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for range t.C {
			n, err := sweeper.ReleaseExpired(ctx)
			if err != nil {
				log.Error("reservation sweep", "err", err)
				continue
			}
			if n > 0 {
				log.Info("reservation sweep", "cancelled", n)
			}
		}
	}()

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	profileC := &userctrl.Controller{Users: ur, Svc: rs, Log: log}
	categoryC := &categoryctrl.Controller{Svc: cs, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	reservationC := &reservationctrl.Controller{Svc: rs, V: v, Log: log}

	// echo
	e := echo.New()
	e.JSONSerializer = echoServer.JSONSerializer{}
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Profile:     profileC,
		Category:    categoryC,
		Book:        bookC,
		Reservation: reservationC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
