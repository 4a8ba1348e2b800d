package api

import (
	"time"

	models "Noesis/internal/domain/models"
	drepo "Noesis/internal/domain/repository"
	"Noesis/internal/usecase"
	xhttp "Noesis/pkg/http"
	xlogger "Noesis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// IncidentsEchoHandler is the primary HTTP surface: incidents, predictions,
// on-demand collection, and service status.
type IncidentsEchoHandler struct {
	logger    *xlogger.Logger
	store     drepo.IncidentStore
	cycle     *usecase.Cycle
	risk      *usecase.RiskPrediction
	sources   []string
	metrics   drepo.Metrics
	startedAt time.Time
}

func NewIncidentsEchoHandler(logger *xlogger.Logger, store drepo.IncidentStore, cycle *usecase.Cycle, risk *usecase.RiskPrediction, sources []string, metrics drepo.Metrics) *IncidentsEchoHandler {
	return &IncidentsEchoHandler{
		logger:    logger,
		store:     store,
		cycle:     cycle,
		risk:      risk,
		sources:   sources,
		metrics:   metrics,
		startedAt: time.Now(),
	}
}

func (h *IncidentsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/incidents", h.Incidents)
	g.GET("/predictions", h.Predictions)
	g.POST("/collect", h.Collect)
	g.GET("/status", h.Status)
}

func (h *IncidentsEchoHandler) Incidents(c echo.Context) error {
	req := &models.IncidentsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	incidents, err := h.store.Query(c.Request().Context(), drepo.IncidentFilter{
		Severity: req.Severity,
		Status:   req.Status,
		Region:   req.Region,
		Since:    xhttp.ParseTimeDefault(req.Since, time.Time{}),
		Limit:    req.Limit,
	})
	if err != nil {
		h.logger.Error("incidents query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, incidents, int64(len(incidents)))
}

func (h *IncidentsEchoHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// Predictions are derived from the recent incident history on every
	// call; there is no prediction store.
	history, err := h.store.Query(c.Request().Context(), drepo.IncidentFilter{Limit: 500})
	if err != nil {
		h.logger.Error("predictions history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	predictions := h.risk.Predict(history)
	filtered := make([]models.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Confidence < req.ConfidenceThreshold {
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordLocationRisk(p.Location, p.RiskScore)
		}
		filtered = append(filtered, p)
		if len(filtered) >= req.Limit {
			break
		}
	}
	return xhttp.ListResponse(c, filtered, int64(len(filtered)))
}

func (h *IncidentsEchoHandler) Collect(c echo.Context) error {
	req := &models.CollectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, err := h.cycle.RunFrom(c.Request().Context(), req.Sources)
	if err != nil {
		h.logger.Error("collect cycle error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	failures := make([]string, 0, len(result.Tally.Failures))
	for _, f := range result.Tally.Failures {
		failures = append(failures, f.Source)
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"signals_collected": result.Tally.Total,
		"per_source":        result.Tally.Collected,
		"failed_sources":    failures,
		"incidents_formed":  len(result.Incidents),
		"alerts_sent":       result.Alerted,
		"took_ms":           result.Tally.Duration.Milliseconds(),
	})
}

func (h *IncidentsEchoHandler) Status(c echo.Context) error {
	storage := "ok"
	if err := h.store.Health(c.Request().Context()); err != nil {
		storage = "unavailable"
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"service":        "noesis",
		"storage":        storage,
		"sources":        h.sources,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
