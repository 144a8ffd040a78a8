// Package handlers exposes the read-side HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/internal/services"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// ClimateHandler handles climate API endpoints
type ClimateHandler struct {
	climateService *services.ClimateService
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewClimateHandler creates a new climate handler
func NewClimateHandler(
	climateService *services.ClimateService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimateHandler {
	return &ClimateHandler{
		climateService: climateService,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ListStations handles GET /api/stations
func (h *ClimateHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/stations").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)

	stations, err := h.climateService.ListStations(ctx, limit, (page-1)*limit)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_STATIONS_ERROR] Failed to list stations", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/stations")
		h.sendError(w, r, "failed to retrieve stations", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/stations", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": stations, "page": page, "limit": limit}, http.StatusOK)
}

// GetObservations handles GET /api/observations
func (h *ClimateHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/observations").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)

	filter := repository.ObservationFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if stationID := r.URL.Query().Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			h.sendError(w, r, "invalid from format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.From = &from
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			h.sendError(w, r, "invalid to format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.To = &to
	}

	observations, total, err := h.climateService.GetObservations(ctx, filter)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			h.sendError(w, r, validationErr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error(ctx, "[API_GET_OBSERVATIONS_ERROR] Failed to get observations", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/observations")
		h.sendError(w, r, "failed to retrieve observations", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/observations", "GET", "200")
	h.sendJSON(w, paginated(observations, total, page, limit), http.StatusOK)
}

// GetSummaries handles GET /api/summaries
func (h *ClimateHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/summaries").Observe(duration.Seconds())
	}()

	page, limit := parsePagination(r)

	filter := repository.SummaryFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if stationID := r.URL.Query().Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	if kindStr := r.URL.Query().Get("kind"); kindStr != "" {
		kind, ok := parseIntervalKind(kindStr)
		if !ok {
			h.sendError(w, r, "invalid kind, expected one of day, month, season, year, decade", http.StatusBadRequest)
			return
		}
		filter.Kind = &kind
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			h.sendError(w, r, "invalid from format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.From = &from
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			h.sendError(w, r, "invalid to format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.To = &to
	}

	summaries, total, err := h.climateService.GetSummaries(ctx, filter)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			h.sendError(w, r, validationErr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error(ctx, "[API_GET_SUMMARIES_ERROR] Failed to get summaries", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/summaries")
		h.sendError(w, r, "failed to retrieve summaries", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/summaries", "GET", "200")
	h.sendJSON(w, paginated(summaries, total, page, limit), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ClimateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.climateService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Health check failed", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 100

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	return page, limit
}

func parseIntervalKind(name string) (models.IntervalKind, bool) {
	switch name {
	case "day":
		return models.IntervalDay, true
	case "month":
		return models.IntervalMonth, true
	case "season":
		return models.IntervalSeason, true
	case "year":
		return models.IntervalYear, true
	case "decade":
		return models.IntervalDecade, true
	default:
		return 0, false
	}
}

func paginated(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// sendJSON sends a JSON response
func (h *ClimateHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ClimateHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all climate API routes
func (h *ClimateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stations", h.ListStations).Methods("GET")
	router.HandleFunc("/api/observations", h.GetObservations).Methods("GET")
	router.HandleFunc("/api/summaries", h.GetSummaries).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
