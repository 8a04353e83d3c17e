package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/units"
)

const (
	defaultTimeout    = 30 * time.Second
	maxRetries        = 1
	baseBackoff       = 250 * time.Millisecond
)

// Client fetches and normalizes one model's forecast. It holds no
// per-request state and is safe for concurrent use across goroutines, which
// is what lets the Fanout Coordinator share one Client across all models.
type Client struct {
	resolver   *Resolver
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client. A nil logger is replaced with a no-op logger so
// callers in tests don't need to wire one up.
func NewClient(resolver *Resolver, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		resolver:   resolver,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Fetch issues the upstream request for one model and returns a normalized
// ModelForecast. forecastDays must be in [1,16]; timezone is an IANA name or
// "auto".
func (c *Client) Fetch(ctx context.Context, model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (domain.ModelForecast, error) {
	if forecastDays < 1 || forecastDays > 16 {
		return domain.ModelForecast{}, errs.New(errs.InvalidInput, fmt.Sprintf("forecastDays %d must be in [1,16]", forecastDays))
	}

	url, err := c.resolver.URL(model, coords, forecastDays, timezone)
	if err != nil {
		return domain.ModelForecast{}, errs.Wrap(errs.InvalidInput, "failed to resolve endpoint", err)
	}

	raw, err := c.getWithRetry(ctx, url, model)
	if err != nil {
		return domain.ModelForecast{}, err
	}

	return c.normalize(model, coords, raw, timezone)
}

func (c *Client) getWithRetry(ctx context.Context, url string, model domain.ModelID) (*rawResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			backoff += time.Duration(rand.Intn(100)) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errs.Wrap(errs.Cancelled, "fetch cancelled during backoff", ctx.Err())
			}
		}

		raw, retryable, err := c.getOnce(ctx, url)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("retrying model fetch after transient error",
			zap.String("model", string(model)), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, lastErr
}

// getOnce issues a single HTTP GET and classifies the outcome. The bool
// return reports whether the caller should retry.
func (c *Client) getOnce(ctx context.Context, url string) (*rawResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errs.Wrap(errs.ApiInvalidResponse, "failed to build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, errs.Wrap(errs.Cancelled, "fetch cancelled", ctx.Err())
		}
		return nil, true, errs.Wrap(errs.ApiUnavailable, "network error contacting upstream", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errs.Wrap(errs.ApiUnavailable, "failed to read upstream response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if h := resp.Header.Get("Retry-After"); h != "" {
			if v, err := strconv.Atoi(h); err == nil {
				retryAfter = v
			}
		}
		return nil, false, &errs.Error{
			Kind:              errs.ApiRateLimited,
			Message:           "upstream rate limit exceeded",
			RetryAfterSeconds: retryAfter,
		}
	case resp.StatusCode >= 500:
		return nil, true, errs.New(errs.ApiUnavailable, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, false, errs.New(errs.ApiInvalidResponse, fmt.Sprintf("upstream returned status %d: %s", resp.StatusCode, excerpt))
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warn("failed to decode upstream response", zap.Error(err))
		return nil, false, errs.Wrap(errs.ApiInvalidResponse, "failed to decode upstream response", err)
	}
	if raw.Error {
		return nil, false, errs.New(errs.ApiInvalidResponse, raw.Reason)
	}

	return &raw, false, nil
}

// normalize converts the column-oriented raw response into a ModelForecast:
// zipping columns by index, replacing missing cells with neutral defaults,
// parsing timestamps to UTC, and binding each daily row to its 24 hourly
// rows.
func (c *Client) normalize(model domain.ModelID, coords domain.Coordinates, raw *rawResponse, timezone string) (domain.ModelForecast, error) {
	loc, err := resolveLocation(timezone, raw)
	if err != nil {
		return domain.ModelForecast{}, errs.Wrap(errs.ApiInvalidResponse, "failed to resolve provider timezone", err)
	}

	hourly, err := buildHourly(raw, loc)
	if err != nil {
		return domain.ModelForecast{}, err
	}
	daily, err := buildDaily(raw, loc, hourly)
	if err != nil {
		return domain.ModelForecast{}, err
	}

	var validFrom, validTo time.Time
	if len(hourly) > 0 {
		validFrom = hourly[0].Timestamp
		validTo = hourly[len(hourly)-1].Timestamp.Add(time.Hour)
	}

	return domain.ModelForecast{
		Model:       model,
		Coordinates: coords,
		GeneratedAt: time.Now().UTC(),
		ValidFrom:   validFrom,
		ValidTo:     validTo,
		Hourly:      hourly,
		Daily:       daily,
	}, nil
}

func resolveLocation(timezone string, raw *rawResponse) (*time.Location, error) {
	if timezone == "" || timezone == "auto" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}

// buildHourly zips the hourly columns by index. A missing temperature takes
// the previous row's value, or the next available value when no earlier row
// has one; a row is dropped only when the temperature column has no value at
// all. Every other missing numeric cell falls back to its metric's neutral
// default.
func buildHourly(raw *rawResponse, loc *time.Location) ([]domain.HourlyForecast, error) {
	h := raw.Hourly
	n := len(h.Time)
	out := make([]domain.HourlyForecast, 0, n)

	lastTemp := 0.0
	haveTemp := false

	for i := 0; i < n; i++ {
		ts, err := parseWallClock(h.Time[i], loc)
		if err != nil {
			return nil, errs.Wrap(errs.ApiInvalidResponse, "failed to parse hourly timestamp", err)
		}

		temp, haveValue := floatAt(h.Temperature2m, i)
		if !haveValue {
			if !haveTemp {
				found := false
				for j := i + 1; j < len(h.Temperature2m); j++ {
					if v, ok := floatAt(h.Temperature2m, j); ok {
						temp, found = v, true
						break
					}
				}
				if !found {
					continue
				}
			} else {
				temp = lastTemp
			}
		} else {
			lastTemp = temp
			haveTemp = true
		}

		apparent := numAt(h.ApparentTemperature, i, temp)
		humidity := numAt(h.RelativeHumidity2m, i, 0)
		pressure := numAt(h.SurfacePressure, i, 0)
		windSpeed := numAt(h.WindSpeed10m, i, 0)
		windDir := numAt(h.WindDirection10m, i, 0)
		precip := numAt(h.Precipitation, i, 0)
		precipProb := numAt(h.PrecipitationProbability, i, 0) / 100
		cloud := numAt(h.CloudCover, i, 0)
		visibility := numAt(h.Visibility, i, 0)
		uv := numAt(h.UVIndex, i, 0)
		code := 0
		if i < len(h.WeatherCode) && h.WeatherCode[i] != nil {
			code = *h.WeatherCode[i]
		}

		metrics := domain.WeatherMetrics{
			Temperature:              units.NewCelsius(temp),
			ApparentTemperature:      units.NewCelsius(apparent),
			Humidity:                 clampPercent(humidity),
			Pressure:                 units.NewHectoPascals(pressure),
			WindSpeed:                clampNonNegativeSpeed(windSpeed),
			WindDirection:            units.NormalizeDegrees(windDir),
			Precipitation:            clampNonNegativeMM(precip),
			PrecipitationProbability: clampProbability(precipProb),
			CloudCover:               clampPercent(cloud),
			Visibility:               clampNonNegativeMeters(visibility),
			UVIndex:                  clampNonNegativeUV(uv),
			WeatherCode:              units.WeatherCode(code),
		}
		if v, ok := floatAt(h.WindGusts10m, i); ok {
			gust := clampNonNegativeSpeed(v)
			metrics.WindGust = &gust
		}

		out = append(out, domain.HourlyForecast{Timestamp: ts, Metrics: metrics})
	}
	return out, nil
}

// buildDaily zips the daily columns by index and binds each day to the 24
// hourly rows whose calendar date (in loc) matches.
func buildDaily(raw *rawResponse, loc *time.Location, hourly []domain.HourlyForecast) ([]domain.DailyForecast, error) {
	d := raw.Daily
	out := make([]domain.DailyForecast, 0, len(d.Time))

	for i := range d.Time {
		date, err := time.ParseInLocation("2006-01-02", d.Time[i], loc)
		if err != nil {
			return nil, errs.Wrap(errs.ApiInvalidResponse, "failed to parse daily date", err)
		}

		tMax := numAt(d.Temperature2mMax, i, 0)
		tMin := numAt(d.Temperature2mMin, i, 0)
		precipSum := numAt(d.PrecipitationSum, i, 0)

		code := 0
		if i < len(d.WeatherCode) && d.WeatherCode[i] != nil {
			code = *d.WeatherCode[i]
		}

		sunrise, _ := parseWallClock(stringAt(d.Sunrise, i), loc)
		sunset, _ := parseWallClock(stringAt(d.Sunset, i), loc)
		daylight := numAt(d.DaylightDuration, i, 0)

		dayHourly := hourlyForDate(hourly, date, loc)
		humidityRange, pressureRange := rangesFromHourly(dayHourly)
		cloudAvg, cloudMax := cloudCoverFromHourly(dayHourly)

		daily := domain.DailyForecast{
			Date:             date,
			TemperatureRange: domain.Range{Min: tMin, Max: tMax},
			HumidityRange:    humidityRange,
			PressureRange:    pressureRange,
			Precipitation: domain.PrecipitationSummary{
				TotalMM:     clampNonNegativeMM(precipSum),
				Probability: clampProbability(numAt(d.PrecipitationProbability, i, 0) / 100),
				Hours:       numAt(d.PrecipitationHours, i, 0),
			},
			Wind: domain.WindSummary{
				Avg:               clampNonNegativeSpeed(numAt(d.WindSpeed10mMax, i, 0)),
				Max:               clampNonNegativeSpeed(numAt(d.WindGusts10mMax, i, 0)),
				DominantDirection: units.NormalizeDegrees(numAt(d.WindDirection10mDominant, i, 0)),
			},
			CloudCoverAvg: cloudAvg,
			CloudCoverMax: cloudMax,
			UVMax:         clampNonNegativeUV(numAt(d.UVIndexMax, i, 0)),
			Sun: domain.SunTimes{
				Sunrise:      sunrise,
				Sunset:       sunset,
				DaylightSecs: daylight,
			},
			DominantCode: units.WeatherCode(code),
		}

		for j := 0; j < 24 && j < len(dayHourly); j++ {
			daily.Hourly[j] = dayHourly[j]
		}

		out = append(out, daily)
	}
	return out, nil
}

// rangesFromHourly computes the daily humidity and pressure (min, max) from
// a day's bound hourly slice. Open-Meteo's daily endpoint exposes no
// humidity/pressure range columns directly, so these are derived rather
// than read from the wire.
func rangesFromHourly(hourly []domain.HourlyForecast) (humidity, pressure domain.Range) {
	if len(hourly) == 0 {
		return domain.Range{}, domain.Range{}
	}
	humidity = domain.Range{Min: hourly[0].Metrics.Humidity.Float(), Max: hourly[0].Metrics.Humidity.Float()}
	pressure = domain.Range{Min: hourly[0].Metrics.Pressure.Float(), Max: hourly[0].Metrics.Pressure.Float()}
	for _, h := range hourly[1:] {
		if v := h.Metrics.Humidity.Float(); v < humidity.Min {
			humidity.Min = v
		} else if v > humidity.Max {
			humidity.Max = v
		}
		if v := h.Metrics.Pressure.Float(); v < pressure.Min {
			pressure.Min = v
		} else if v > pressure.Max {
			pressure.Max = v
		}
	}
	return humidity, pressure
}

func cloudCoverFromHourly(hourly []domain.HourlyForecast) (avg, max units.Percent) {
	if len(hourly) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, h := range hourly {
		v := h.Metrics.CloudCover.Float()
		sum += v
		if v > float64(max) {
			max = units.Percent(v)
		}
	}
	return units.Percent(sum / float64(len(hourly))), max
}

func hourlyForDate(hourly []domain.HourlyForecast, date time.Time, loc *time.Location) []domain.HourlyForecast {
	var out []domain.HourlyForecast
	y, m, d := date.In(loc).Date()
	for _, h := range hourly {
		hy, hm, hd := h.Timestamp.In(loc).Date()
		if hy == y && hm == m && hd == d {
			out = append(out, h)
		}
	}
	return out
}

func parseWallClock(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err == nil {
		return t.UTC(), nil
	}
	// Fallback for RFC3339-style timestamps the upstream occasionally emits.
	t2, err2 := time.Parse(time.RFC3339, s)
	if err2 == nil {
		return t2.UTC(), nil
	}
	return time.Time{}, err
}

func stringAt(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func floatAt(col []*float64, i int) (float64, bool) {
	if i < len(col) && col[i] != nil {
		return *col[i], true
	}
	return 0, false
}

// numAt reads column i, falling back to fallback when the cell is missing,
// null, or the index is out of range.
func numAt(col []*float64, i int, fallback float64) float64 {
	if v, ok := floatAt(col, i); ok {
		return v
	}
	return fallback
}

func clampPercent(v float64) units.Percent {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return units.Percent(v)
}

func clampProbability(v float64) units.Probability {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return units.Probability(v)
}

func clampNonNegativeSpeed(v float64) units.MetersPerSecond {
	if v < 0 {
		v = 0
	}
	return units.MetersPerSecond(v)
}

func clampNonNegativeMM(v float64) units.Millimeters {
	if v < 0 {
		v = 0
	}
	return units.Millimeters(v)
}

func clampNonNegativeMeters(v float64) units.Meters {
	if v < 0 {
		v = 0
	}
	return units.Meters(v)
}

func clampNonNegativeUV(v float64) units.UVIndex {
	if v < 0 {
		v = 0
	}
	return units.UVIndex(v)
}
