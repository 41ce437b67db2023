package api

import (
	"errors"
	nethttp "net/http"

	"github.com/labstack/echo/v4"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/usecase"
	pchttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/objstore"
)

// ForecastHandler serves the prepared series, stored forecast reports, and
// pipeline status over HTTP.
type ForecastHandler struct {
	candles     *usecase.CandleService
	store       objstore.Store
	stream      drepo.MarketStream
	environment string
	reportPath  func(symbol string) string
	logger      *applogger.Logger
}

func NewForecastHandler(
	candles *usecase.CandleService,
	store objstore.Store,
	stream drepo.MarketStream,
	environment string,
	reportPath func(symbol string) string,
	log *applogger.Logger,
) *ForecastHandler {
	return &ForecastHandler{
		candles:     candles,
		store:       store,
		stream:      stream,
		environment: environment,
		reportPath:  reportPath,
		logger:      log,
	}
}

// RegisterRoutes mounts the API under /api.
func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/forecast/report", h.Report)
	g.GET("/status", h.Status)
}

// Candles returns the prepared series for one column of one symbol.
func (h *ForecastHandler) Candles(c echo.Context) error {
	req := new(models.CandlesRequest)
	if errs := pchttp.ReadAndValidateRequest(c, req); errs != nil {
		return pchttp.BadRequestResponse(c, errs)
	}

	resp, err := h.candles.Candles(c.Request().Context(), req)
	if err != nil {
		return h.domainError(c, err)
	}
	return pchttp.SuccessResponse(c, resp)
}

// Report streams the stored CSV report for one symbol.
func (h *ForecastHandler) Report(c echo.Context) error {
	req := new(models.ReportRequest)
	if errs := pchttp.ReadAndValidateRequest(c, req); errs != nil {
		return pchttp.BadRequestResponse(c, errs)
	}

	path := h.reportPath(req.Symbol)
	data, err := h.store.Get(c.Request().Context(), path)
	if errors.Is(err, objstore.ErrNotFound) {
		return pchttp.NotFoundResponse(c, "no report for "+req.Symbol)
	}
	if err != nil {
		h.logger.Error("report fetch failed",
			applogger.String("path", path),
			applogger.Error(err))
		return pchttp.InternalServerErrorResponse(c)
	}

	return c.Blob(nethttp.StatusOK, "text/csv", data)
}

// Status reports stream health and recent errors.
func (h *ForecastHandler) Status(c echo.Context) error {
	resp := models.StatusResponse{
		Environment: h.environment,
		StreamUp:    h.stream != nil && h.stream.IsConnected(),
	}
	if recent := h.logger.RecentErrors(); len(recent) > 0 {
		resp.RecentErrors = recent
	}
	return pchttp.SuccessResponse(c, resp)
}

// domainError maps pipeline error types onto HTTP statuses.
func (h *ForecastHandler) domainError(c echo.Context, err error) error {
	var malformed *models.MalformedInputError
	var rangeErr *models.RangeError
	switch {
	case errors.As(err, &malformed):
		return pchttp.BadRequestResponse(c, malformed.Error())
	case errors.As(err, &rangeErr):
		return pchttp.BadRequestResponse(c, rangeErr.Error())
	default:
		h.logger.Error("candles request failed", applogger.Error(err))
		return pchttp.InternalServerErrorResponse(c)
	}
}
