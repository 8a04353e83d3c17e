// Package api exposes the engine's three outward queries over HTTP. It is a
// thin translation layer only: query-param parsing, status codes, and JSON
// shaping. Grounded on the teacher's Handler-struct-plus-constructor shape
// and its c.Query/c.Param-driven handler bodies.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/engine"
	"github.com/wxconsensus/engine/internal/errs"
)

// Handler wraps the core Engine with HTTP-facing endpoints.
type Handler struct {
	engine *engine.Engine
}

// NewHandler builds a Handler over eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "weather-consensus-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// locationFromQuery parses either a "q" text query or "lat"/"lon" pair from
// the request, matching spec §6's "selector is either a text location or a
// (lat, lon) pair" contract for the aggregate-forecast and compare queries.
func locationFromQuery(c *gin.Context) (engine.Location, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr != "" && lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return engine.Location{}, errs.New(errs.InvalidInput, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return engine.Location{}, errs.New(errs.InvalidInput, "lon must be a number")
		}
		coords, err := domain.NewCoordinates(lat, lon)
		if err != nil {
			return engine.Location{}, err
		}
		return engine.Location{Coordinates: &coords}, nil
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return engine.Location{}, errs.New(errs.InvalidInput, "either q or both lat and lon are required")
	}
	return engine.Location{Query: query}, nil
}

// daysFromQuery parses "days", defaulting to 3; a value outside REST's [1,7]
// window is rejected with InvalidInput.
func daysFromQuery(c *gin.Context) (int, error) {
	daysStr := c.Query("days")
	if daysStr == "" {
		return 3, nil
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return 0, errs.New(errs.InvalidInput, "days must be an integer")
	}
	if days < 1 || days > 7 {
		return 0, errs.New(errs.InvalidInput, "days must be between 1 and 7")
	}
	return days, nil
}

// AggregateForecast handles GET /api/forecast.
func (h *Handler) AggregateForecast(c *gin.Context) {
	loc, err := locationFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	days, err := daysFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	timezone := c.DefaultQuery("timezone", "auto")

	result, err := h.engine.AggregateForecast(c.Request.Context(), loc, days, timezone)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"aggregated": result.Aggregated,
		"narrative":  result.Narrative,
		"failures":   result.Failures,
	})
}

// Compare handles GET /api/compare.
func (h *Handler) Compare(c *gin.Context) {
	loc, err := locationFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	days, err := daysFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	timezone := c.DefaultQuery("timezone", "auto")

	result, err := h.engine.Compare(c.Request.Context(), loc, days, timezone)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"forecasts":        result.Forecasts,
		"failures":         result.Failures,
		"overall_outliers": result.OverallOutliers,
		"weights":          result.Weights,
	})
}

// Geocode handles GET /api/geocode.
func (h *Handler) Geocode(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.Error(errs.New(errs.GeocodingInvalidInput, "q is required"))
		return
	}

	count := 5
	if countStr := c.Query("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil {
			c.Error(errs.New(errs.InvalidInput, "count must be an integer"))
			return
		}
		count = parsed
	}

	results, err := h.engine.Geocode(c.Request.Context(), query, count)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}
