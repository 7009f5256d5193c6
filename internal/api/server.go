//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package api serves the on-demand job triggers and the read endpoints over
// the analytical schema.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/model"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

// Runner triggers a job by name.
type Runner interface {
	Trigger(ctx context.Context, name string) (string, error)
}

// Queries is the read side of the warehouse.
type Queries interface {
	GetCustomer(ctx context.Context, customerID string) (*model.Customer, error)
	CustomerOrders(ctx context.Context, customerID string, limit int) ([]warehouse.OrderLine, error)
	TopCustomers(ctx context.Context, limit int, r warehouse.DateRange) ([]warehouse.TopCustomer, error)
	Sales(ctx context.Context, f warehouse.SalesFilter) ([]warehouse.SaleDetail, error)
	ProductPerformance(ctx context.Context, productCode string, r warehouse.DateRange) ([]warehouse.ProductPerformance, error)
	RegionalSales(ctx context.Context, r warehouse.DateRange) ([]warehouse.RegionSales, error)
	SalesRepPerformance(ctx context.Context, r warehouse.DateRange) ([]warehouse.RepPerformance, error)
	LatestInsights(ctx context.Context) ([]warehouse.Insight, error)
}

// Server is the HTTP surface.
type Server struct {
	echo    *echo.Echo
	addr    string
	runner  Runner
	queries Queries
}

// requestValidator adapts validator/v10 to echo.
type requestValidator struct {
	v *validator.Validate
}

func (rv requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// NewServer creates a server listening on host:port.
func NewServer(host string, port int, runner Runner, queries Queries) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = requestValidator{v: model.Validator()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logging.Info()
			if v.Error != nil {
				ev = logging.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("HTTP request")
			return nil
		},
	}))

	s := &Server{
		echo:    e,
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		runner:  runner,
		queries: queries,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.POST("/api/process-sap-data", s.processSAPData)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/jobs/:name", s.triggerJob)
	v1.GET("/customers/top", s.topCustomers)
	v1.GET("/customers/:id", s.getCustomer)
	v1.GET("/customers/:id/orders", s.customerOrders)
	v1.GET("/sales", s.sales)
	v1.GET("/products/performance", s.productPerformance)
	v1.GET("/regions/sales", s.regionalSales)
	v1.GET("/reps/performance", s.repPerformance)
	v1.GET("/insights", s.latestInsights)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info().Msg("Stopping HTTP server")
	return s.echo.Shutdown(ctx)
}
