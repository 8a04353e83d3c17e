// Package openmeteo implements the Endpoint Resolver and Model Client
// against Open-Meteo's multi-model forecast API. Seven models are
// supported: six have dedicated upstream paths, one (JMA) is multiplexed
// behind the generic forecast endpoint with a models= selector.
package openmeteo

import (
	"fmt"
	"strings"

	"github.com/wxconsensus/engine/internal/domain"
)

const defaultBaseURL = "https://api.open-meteo.com"

// hourlyVariables is the fixed set of hourly columns requested for every
// model, in the order listed in the wire protocol. Keeping this list fixed
// across models guarantees schema parity for the Aggregator.
var hourlyVariables = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"surface_pressure",
	"wind_speed_10m",
	"wind_direction_10m",
	"wind_gusts_10m",
	"precipitation",
	"precipitation_probability",
	"cloud_cover",
	"visibility",
	"uv_index",
	"weather_code",
}

// dailyVariables is the fixed set of daily columns requested for every model.
var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"apparent_temperature_max",
	"apparent_temperature_min",
	"precipitation_sum",
	"precipitation_probability_max",
	"precipitation_hours",
	"wind_speed_10m_max",
	"wind_gusts_10m_max",
	"wind_direction_10m_dominant",
	"sunrise",
	"sunset",
	"daylight_duration",
	"uv_index_max",
	"weather_code",
}

// endpoint describes how a model id maps onto an upstream request: either a
// dedicated path, or the generic path plus a models= selector.
type endpoint struct {
	path     string
	selector string // empty for models with a dedicated path
}

var endpoints = map[domain.ModelID]endpoint{
	domain.ModelECMWF:       {path: "/v1/ecmwf"},
	domain.ModelGFS:         {path: "/v1/gfs"},
	domain.ModelICON:        {path: "/v1/dwd-icon"},
	domain.ModelMeteoFrance: {path: "/v1/meteofrance"},
	domain.ModelMetNo:       {path: "/v1/metno"},
	domain.ModelGEM:         {path: "/v1/gem"},
	domain.ModelJMA:         {path: "/v1/forecast", selector: "jma_seamless"},
}

// Resolver maps model ids onto upstream request parameters. It holds no
// state beyond the configurable base URL, which tests override to point at
// an httptest server.
type Resolver struct {
	baseURL string
}

// NewResolver builds a Resolver. An empty baseURL falls back to the public
// Open-Meteo API, matching the "environment overrides for base URLs" design
// note — callers pass a non-empty override (e.g. from config) in tests.
func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL builds the full request URL for one model fetch.
func (r *Resolver) URL(model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (string, error) {
	ep, ok := endpoints[model]
	if !ok {
		return "", fmt.Errorf("unknown model id %q", model)
	}

	q := fmt.Sprintf(
		"latitude=%.6f&longitude=%.6f&hourly=%s&daily=%s&timezone=%s&forecast_days=%d",
		coords.Latitude.Float(), coords.Longitude.Float(),
		strings.Join(hourlyVariables, ","),
		strings.Join(dailyVariables, ","),
		timezone,
		forecastDays,
	)
	if ep.selector != "" {
		q += "&models=" + ep.selector
	}
	return r.baseURL + ep.path + "?" + q, nil
}
