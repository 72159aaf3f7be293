// Package main library desk API.
//
// @title           Library Desk API
// @version         1.0
// @description     Library management service (catalog, circulation, reservations, fines).
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

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"librarydesk/app/echoServer"
	authctrl "librarydesk/app/echoServer/controller/auth"
	bookctrl "librarydesk/app/echoServer/controller/book"
	borrowctrl "librarydesk/app/echoServer/controller/borrowing"
	finectrl "librarydesk/app/echoServer/controller/fine"
	reservationctrl "librarydesk/app/echoServer/controller/reservation"
	statsctrl "librarydesk/app/echoServer/controller/stats"
	userctrl "librarydesk/app/echoServer/controller/user"
	"librarydesk/app/echoServer/validation"
	"librarydesk/config"
	bookrepo "librarydesk/repository/book"
	borrowrepo "librarydesk/repository/borrowing"
	finerepo "librarydesk/repository/fine"
	openlibraryrepo "librarydesk/repository/openlibrary"
	reservationrepo "librarydesk/repository/reservation"
	statsrepo "librarydesk/repository/stats"
	userrepo "librarydesk/repository/user"
	authsvc "librarydesk/service/auth"
	booksvc "librarydesk/service/book"
	"librarydesk/service/circulation"
	finesvc "librarydesk/service/fine"
	reservationsvc "librarydesk/service/reservation"
	statssvc "librarydesk/service/stats"
	usersvc "librarydesk/service/user"
	"librarydesk/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	// repos
	ur := userrepo.New(db.DB)
	br := bookrepo.New(db.DB)
	cr := borrowrepo.New(db.DB)
	rr := reservationrepo.New(db.DB)
	fr := finerepo.New(db.DB)
	sr := statsrepo.New(db.DB)
	olr := openlibraryrepo.NewHTTP()

	// services
	as := authsvc.New(ur, cfg.JWTSecret, cfg.JWTTTLHours)
	us := usersvc.New(ur)
	bs := booksvc.New(br, olr)
	cs := circulation.New(db, cr)
	rs := reservationsvc.New(db, rr, cr, br)
	fs := finesvc.New(db, fr)
	ss := statssvc.New(sr)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, V: v, Log: log}
	borrowC := &borrowctrl.Controller{Svc: cs, V: v, Log: log}
	reservationC := &reservationctrl.Controller{Svc: rs, V: v, Log: log}
	fineC := &finectrl.Controller{Svc: fs, Log: log}
	statsC := &statsctrl.Controller{Svc: ss, Log: log}

	// echo
	e := echo.New()
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
		Book:        bookC,
		User:        userC,
		Borrowing:   borrowC,
		Reservation: reservationC,
		Fine:        fineC,
		Stats:       statsC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
