package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/engine"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/geocode"
	"github.com/wxconsensus/engine/internal/units"
	"github.com/wxconsensus/engine/internal/weather/fanout"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (s *stubGeocoder) Resolve(ctx context.Context, query string, opts geocode.Options) (domain.GeocodingResult, error) {
	return s.result, s.err
}

func (s *stubGeocoder) Search(ctx context.Context, query string, opts geocode.Options) ([]domain.GeocodingResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.GeocodingResult{s.result}, nil
}

type stubFetcher struct{}

func (s *stubFetcher) Fetch(ctx context.Context, model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (domain.ModelForecast, error) {
	ts := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	return domain.ModelForecast{
		Model:       model,
		Coordinates: coords,
		ValidFrom:   ts,
		ValidTo:     ts.Add(time.Hour),
		Hourly:      []domain.HourlyForecast{{Timestamp: ts, Metrics: domain.WeatherMetrics{Temperature: units.NewCelsius(15)}}},
		Daily:       []domain.DailyForecast{{Date: ts}},
	}, nil
}

func newTestHandler(geo *stubGeocoder) *Handler {
	coordinator := fanout.NewCoordinator(&stubFetcher{}, nil)
	return NewHandler(engine.New(geo, coordinator, nil))
}

func newTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			status := http.StatusInternalServerError
			if errs.Is(err, errs.InvalidInput) || errs.Is(err, errs.GeocodingInvalidInput) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
		}
	})
	r.GET("/api/forecast", h.AggregateForecast)
	r.GET("/api/compare", h.Compare)
	r.GET("/api/geocode", h.Geocode)
	r.GET("/api/health", h.HealthCheck)
	return r
}

func TestHealthCheckReturnsOK(t *testing.T) {
	h := newTestHandler(&stubGeocoder{})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAggregateForecastWithCoordinates(t *testing.T) {
	h := newTestHandler(&stubGeocoder{err: errs.New(errs.GeocodingServiceError, "must not be called")})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/forecast?lat=47.6&lon=-122.3&days=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAggregateForecastWithTextQuery(t *testing.T) {
	coords, err := domain.NewCoordinates(47.6, -122.3)
	require.NoError(t, err)
	h := newTestHandler(&stubGeocoder{result: domain.GeocodingResult{Name: "Seattle", Coordinates: coords}})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/forecast?q=Seattle", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAggregateForecastMissingSelectorIsBadRequest(t *testing.T) {
	h := newTestHandler(&stubGeocoder{})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/forecast", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAggregateForecastDaysOutOfRangeIsBadRequest(t *testing.T) {
	h := newTestHandler(&stubGeocoder{})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/forecast?q=Seattle&days=30", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeocodeMissingQueryIsBadRequest(t *testing.T) {
	h := newTestHandler(&stubGeocoder{})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/geocode", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeocodeReturnsResults(t *testing.T) {
	h := newTestHandler(&stubGeocoder{result: domain.GeocodingResult{Name: "Paris"}})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/geocode?q=Paris", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Paris")
}

func TestCompareReturnsWeightsAndForecasts(t *testing.T) {
	coords, err := domain.NewCoordinates(10, 10)
	require.NoError(t, err)
	h := newTestHandler(&stubGeocoder{result: domain.GeocodingResult{Coordinates: coords}})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/compare?q=Anywhere", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "weights")
	assert.Contains(t, w.Body.String(), "forecasts")
}
