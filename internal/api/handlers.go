//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pgEdge/pgedge-salesync/internal/jobs"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
	"github.com/pgEdge/pgedge-salesync/internal/pipeline"
	"github.com/pgEdge/pgedge-salesync/internal/warehouse"
)

type rangeRequest struct {
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type customerRequest struct {
	ID string `param:"id" validate:"required"`
}

type customerOrdersRequest struct {
	ID    string `param:"id" validate:"required"`
	Limit int    `query:"limit" validate:"gte=0,lte=1000"`
}

type topCustomersRequest struct {
	Limit     int    `query:"limit" validate:"gte=0,lte=1000"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type salesRequest struct {
	StartDate  string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Region     string `query:"region"`
	CustomerID string `query:"customer_id"`
	Limit      int    `query:"limit" validate:"gte=0,lte=10000"`
	Offset     int    `query:"offset" validate:"gte=0"`
}

type productPerformanceRequest struct {
	ProductCode string `query:"product_code"`
	StartDate   string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type jobRequest struct {
	Name string `param:"name" validate:"required"`
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// bind binds path and query parameters into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request parameters")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

func serverError(c echo.Context, what string, err error) error {
	logging.Error().Err(err).Str("path", c.Path()).Msg(what)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": what + ": " + err.Error()})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "healthy"})
}

func (s *Server) processSAPData(c echo.Context) error {
	result, err := s.runner.Trigger(c.Request().Context(), pipeline.JobName)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error processing SAP data: "+err.Error())
	}
	return c.String(http.StatusOK, "SAP data processing completed: "+result)
}

func (s *Server) triggerJob(c echo.Context) error {
	var req jobRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := s.runner.Trigger(c.Request().Context(), req.Name)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.String(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, result)
}

func (s *Server) getCustomer(c echo.Context) error {
	var req customerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	customer, err := s.queries.GetCustomer(c.Request().Context(), req.ID)
	if err != nil {
		if errors.Is(err, warehouse.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
		}
		return serverError(c, "Error getting customer data", err)
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) customerOrders(c echo.Context) error {
	var req customerOrdersRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	orders, err := s.queries.CustomerOrders(c.Request().Context(), req.ID, req.Limit)
	if err != nil {
		return serverError(c, "Error getting customer orders", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) topCustomers(c echo.Context) error {
	var req topCustomersRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := warehouse.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(err.Error())
	}

	top, err := s.queries.TopCustomers(c.Request().Context(), req.Limit, r)
	if err != nil {
		return serverError(c, "Error getting top customers", err)
	}
	return c.JSON(http.StatusOK, top)
}

func (s *Server) sales(c echo.Context) error {
	var req salesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := warehouse.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(err.Error())
	}

	sales, err := s.queries.Sales(c.Request().Context(), warehouse.SalesFilter{
		DateRange:  r,
		Region:     req.Region,
		CustomerID: req.CustomerID,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return serverError(c, "Error getting sales data", err)
	}
	return c.JSON(http.StatusOK, sales)
}

func (s *Server) productPerformance(c echo.Context) error {
	var req productPerformanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := warehouse.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(err.Error())
	}

	perf, err := s.queries.ProductPerformance(c.Request().Context(), req.ProductCode, r)
	if err != nil {
		return serverError(c, "Error getting product performance", err)
	}
	return c.JSON(http.StatusOK, perf)
}

func (s *Server) regionalSales(c echo.Context) error {
	var req rangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := warehouse.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(err.Error())
	}

	regions, err := s.queries.RegionalSales(c.Request().Context(), r)
	if err != nil {
		return serverError(c, "Error getting regional sales", err)
	}
	return c.JSON(http.StatusOK, regions)
}

func (s *Server) repPerformance(c echo.Context) error {
	var req rangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := warehouse.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return badRequest(err.Error())
	}

	reps, err := s.queries.SalesRepPerformance(c.Request().Context(), r)
	if err != nil {
		return serverError(c, "Error getting sales rep performance", err)
	}
	return c.JSON(http.StatusOK, reps)
}

func (s *Server) latestInsights(c echo.Context) error {
	insights, err := s.queries.LatestInsights(c.Request().Context())
	if err != nil {
		return serverError(c, "Error getting insights", err)
	}
	return c.JSON(http.StatusOK, insights)
}
