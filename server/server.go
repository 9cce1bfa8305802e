package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"goflare.io/quotes/handlers"
)

type Server struct {
	echo        *echo.Echo
	Quote       handlers.QuoteHandler
	Seller      handlers.SellerHandler
	Maintenance handlers.MaintenanceHandler
}

func NewServer(
	Quote handlers.QuoteHandler,
	Seller handlers.SellerHandler,
	Maintenance handlers.MaintenanceHandler,
) *Server {
	return &Server{
		echo:        echo.New(),
		Quote:       Quote,
		Seller:      Seller,
		Maintenance: Maintenance,
	}
}

// Start initializes the server by registering middlewares and routes, and starts listening for connections on the provided address.
// It returns an error if there is an issue starting the server.
func (s *Server) Start(address string) error {
	s.registerMiddlewares()
	s.registerRoutes()
	return s.echo.Start(address)
}

// Run starts the server by calling the Start method in a goroutine. If an error occurs, it
// logs the error and terminates the server. It then listens for an OS interrupt signal or a SIGTERM
// signal to gracefully shut down the server. Once the signal is received, it creates a context with
// a timeout of 5 seconds, cancels the context after the method returns, and returns the result of
// shutting down the server.
func (s *Server) Run(address string) error {

	go func() {
		if err := s.Start(address); err != nil {
			s.echo.Logger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

func (s *Server) registerMiddlewares() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(handlers.SessionMiddleware())
}

func (s *Server) registerRoutes() {

	s.echo.POST("/quotes", s.Quote.CreateQuote)
	s.echo.GET("/quotes", s.Quote.ListQuotes)
	s.echo.GET("/quotes/:id", s.Quote.GetQuote)
	s.echo.PUT("/quotes/:id", s.Quote.UpdateQuote)
	s.echo.GET("/quotes/:id/children", s.Quote.ListChildren)
	s.echo.POST("/quotes/:id/use", s.Quote.UseQuote)
	s.echo.GET("/quotes-enabled", s.Quote.QuoteEnabled)
	s.echo.POST("/carts/:orderFormId/clear", s.Quote.ClearCart)

	s.echo.GET("/seller/quotes", s.Seller.ListSellerQuotes)
	s.echo.GET("/seller/quotes/:id", s.Seller.GetSellerQuote)
	s.echo.PUT("/seller/quotes/:id", s.Seller.SaveSellerQuote)

	s.echo.POST("/quotes/expire", s.Maintenance.ExpireQuotes)
	s.echo.POST("/hooks/order", s.Maintenance.HandleOrderHook)
	s.echo.GET("/settings", s.Maintenance.GetSettings)
	s.echo.PUT("/settings", s.Maintenance.SaveSettings)
}
