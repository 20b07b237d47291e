package api

import (
    "strconv"
    "strings"
    "time"

    models "OpsPulse/internal/domain/models"
    domrepo "OpsPulse/internal/domain/repository"
    "OpsPulse/internal/usecase"
    xhttp "OpsPulse/pkg/http"
    xlogger "OpsPulse/pkg/logger"

    "github.com/labstack/echo/v4"
)

// ReportsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ReportsEchoHandler struct {
	logger   *xlogger.Logger
	builder  *usecase.ReportBuilder
	averages *usecase.AveragesUseCase
	history  *usecase.HistoryUseCase
	overview *usecase.OverviewUseCase
}

func NewReportsEchoHandler(
	logger *xlogger.Logger,
	builder *usecase.ReportBuilder,
	averages *usecase.AveragesUseCase,
	history *usecase.HistoryUseCase,
	overview *usecase.OverviewUseCase,
) *ReportsEchoHandler {
	return &ReportsEchoHandler{
		logger:   logger,
		builder:  builder,
		averages: averages,
		history:  history,
		overview: overview,
	}
}

func (h *ReportsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/metrics/:id/trend", h.Trend)
	g.GET("/metrics/:id/threshold", h.Threshold)
	g.GET("/metrics/:id/averages", h.Averages)
	g.GET("/metrics/:id/history", h.History)
	g.GET("/overview", h.Overview)
}

func (h *ReportsEchoHandler) Trend(c echo.Context) error {
	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := domrepo.NormalizeWindow(req.Window)

	res, err := h.builder.TrendReport(c.Request().Context(), usecase.TrendParams{
		MetricID:    req.MetricID,
		Window:      w,
		Limit:       req.Limit,
		ShortPeriod: req.ShortPeriod,
		LongPeriod:  req.LongPeriod,
	})
	if err != nil {
		h.logger.Error("trend usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Threshold(c echo.Context) error {
	req := &models.ThresholdRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := domrepo.NormalizeWindow(req.Window)

	res, err := h.builder.Threshold(c.Request().Context(), usecase.ThresholdParams{
		MetricID:   req.MetricID,
		Window:     w,
		Limit:      req.Limit,
		Period:     req.Period,
		Multiplier: req.Multiplier,
	})
	if err != nil {
		h.logger.Error("threshold usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Averages(c echo.Context) error {
	req := &models.AveragesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := domrepo.NormalizeWindow(req.Window)

	var alphas []float64
	if req.Kind == "dma" {
		var err error
		alphas, err = parseAlphas(req.Alpha)
		if err != nil {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid alpha: %v", err))
		}
	}

	res, err := h.averages.GetAverages(c.Request().Context(), usecase.AveragesParams{
		MetricID: req.MetricID,
		Window:   w,
		Limit:    req.Limit,
		Kind:     req.Kind,
		Period:   req.Period,
		Times:    req.Times,
		Alphas:   alphas,
		NoHead:   req.NoHead,
	})
	if err != nil {
		h.logger.Error("averages usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := domrepo.NormalizeWindow(req.Window)

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(req.From, now.AddDate(0, 0, -7))
	to := xhttp.ParseTimeDefault(req.To, now)

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		MetricID: req.MetricID,
		From:     from,
		To:       to,
		Window:   w,
		Limit:    req.Limit,
	})
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ReportsEchoHandler) Overview(c echo.Context) error {
	req := &models.OverviewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.overview.Overview(c.Request().Context(), req.Window)
	if err != nil {
		h.logger.Error("overview usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

// parseAlphas splits a comma-separated weight list. A single value is
// valid; the calculator broadcasts it over the series.
func parseAlphas(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
