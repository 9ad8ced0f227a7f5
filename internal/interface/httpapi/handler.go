package httpapi

import (
	"net/http"
	"strconv"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"
	"fare-crawler-service/internal/usecase"
	"fare-crawler-service/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// StatusProvider exposes the scheduler state
type StatusProvider interface {
	Snapshot() usecase.SchedulerSnapshot
}

// ErrorResponse is returned for failed admin requests
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AdminHandler serves the operational endpoints
type AdminHandler struct {
	status  StatusProvider
	runs    repository.CrawlRunRepository
	version string
	logger  logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(status StatusProvider, runs repository.CrawlRunRepository, version string, logger logger.Logger) *AdminHandler {
	return &AdminHandler{
		status:  status,
		runs:    runs,
		version: version,
		logger:  logger.With("component", "admin_api"),
	}
}

// Health reports liveness
func (h *AdminHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Status returns the scheduler snapshot
func (h *AdminHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status.Snapshot())
}

// Runs returns the most recent crawl runs, newest first
func (h *AdminHandler) Runs(c echo.Context) error {
	limit := defaultRunsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runs.Latest(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load crawl runs", "error", err)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "store_unavailable",
			Message: "crawl run history is unavailable",
		})
	}
	if runs == nil {
		runs = []*entity.CrawlRun{}
	}
	return c.JSON(http.StatusOK, runs)
}
