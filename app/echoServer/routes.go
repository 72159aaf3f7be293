package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	authctrl "librarydesk/app/echoServer/controller/auth"
	bookctrl "librarydesk/app/echoServer/controller/book"
	borrowctrl "librarydesk/app/echoServer/controller/borrowing"
	finectrl "librarydesk/app/echoServer/controller/fine"
	reservationctrl "librarydesk/app/echoServer/controller/reservation"
	statsctrl "librarydesk/app/echoServer/controller/stats"
	userctrl "librarydesk/app/echoServer/controller/user"
)

type C struct {
	Auth        *authctrl.Controller
	Book        *bookctrl.Controller
	User        *userctrl.Controller
	Borrowing   *borrowctrl.Controller
	Reservation *reservationctrl.Controller
	Fine        *finectrl.Controller
	Stats       *statsctrl.Controller
	JWTSecret   string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/api/auth")
	pub.POST("/register", c.Auth.Register)
	pub.POST("/login", c.Auth.Login)

	// Auth
	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	api.Use(Identity())

	// Books
	api.GET("/books", c.Book.List)
	api.GET("/books/lookup", c.Book.Lookup)
	api.GET("/books/:id", c.Book.Detail)
	api.POST("/books", c.Book.Create)
	api.PUT("/books/:id", c.Book.Update)
	api.DELETE("/books/:id", c.Book.Delete)

	// Users (admin)
	api.GET("/users", c.User.List)
	api.GET("/users/:id", c.User.Detail)
	api.POST("/users", c.User.Create)
	api.PUT("/users/:id", c.User.Update)
	api.DELETE("/users/:id", c.User.Delete)

	// Borrowing
	api.GET("/borrowing", c.Borrowing.ListActive)
	api.GET("/borrowing/my", c.Borrowing.MyHistory)
	api.POST("/borrowing", c.Borrowing.Borrow)
	api.POST("/borrowing/return", c.Borrowing.Return)
	api.POST("/borrowing/renew", c.Borrowing.Renew)

	// Reservations
	api.GET("/reservations", c.Reservation.List)
	api.POST("/reservations", c.Reservation.Create)
	api.POST("/reservations/expire", c.Reservation.Expire)
	api.PATCH("/reservations/:id", c.Reservation.Decide)

	// Fines
	api.GET("/fines", c.Fine.List)
	api.POST("/fines/:id/pay", c.Fine.Pay)

	// Stats
	api.GET("/stats", c.Stats.Overview)
}
